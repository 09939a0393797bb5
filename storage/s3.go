package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vrscout/config"
)

// SnapshotArchive keeps the rendered HTML of every classified listing
// in S3-compatible storage, so extraction bugs can be replayed against
// the exact pages a run saw.
type SnapshotArchive struct {
	client *s3.Client
	cfg    config.S3Config
}

func NewSnapshotArchive(ctx context.Context, cfg config.S3Config) (*SnapshotArchive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &SnapshotArchive{client: client, cfg: cfg}, nil
}

// Store uploads one rendered page and returns its object key,
// content-addressed so re-rendering an unchanged page is a no-op
// overwrite.
func (a *SnapshotArchive) Store(ctx context.Context, siteID string, runID int64, url, html string) (string, error) {
	sum := sha256.Sum256([]byte(html))
	key := fmt.Sprintf("snapshots/%s/%d/%s.html", siteID, runID, hex.EncodeToString(sum[:16]))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata:    map[string]string{"source-url": url},
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot: %w", err)
	}
	return key, nil
}

// PublicURL returns the browsable URL for a stored snapshot key.
func (a *SnapshotArchive) PublicURL(key string) string {
	if a.cfg.Endpoint != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(a.cfg.Endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s/%s", a.cfg.Bucket, host, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.cfg.Bucket, a.cfg.Region, key)
}
