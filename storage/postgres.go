package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vrscout/models"
)

// PostgresStore is the durable sink for normalized addresses. It is
// optional: without DATABASE_URL the pipeline keeps everything in the
// operational SQLite database only.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id BIGSERIAL PRIMARY KEY,
		site_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		urls_discovered INT DEFAULT 0,
		pages_fetched INT DEFAULT 0,
		listings_classified INT DEFAULT 0,
		pages_with_candidates INT DEFAULT 0,
		addresses_normalized INT DEFAULT 0,
		unreachable INT DEFAULT 0,
		errors_count INT DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS listing_addresses (
		id UUID PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES scrape_runs(id),
		site_id TEXT NOT NULL,
		url TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		street_line1 TEXT,
		street_line2 TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		country TEXT,
		final_confidence REAL,
		inference_method TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (run_id, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_listing_addresses_fp ON listing_addresses(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_listing_addresses_site ON listing_addresses(site_id, created_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scrape_runs (site_id, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id`,
		run.SiteID, run.StartedAt, run.Status).Scan(&id)
	return id, err
}

func (s *PostgresStore) UpdateScrapeRun(ctx context.Context, id int64, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_runs SET finished_at = $1, status = $2, urls_discovered = $3,
			pages_fetched = $4, listings_classified = $5, pages_with_candidates = $6,
			addresses_normalized = $7, unreachable = $8, errors_count = $9
		WHERE id = $10`,
		run.FinishedAt, run.Status, run.URLsDiscovered, run.PagesFetched,
		run.ListingsClassified, run.PagesWithCandidates, run.AddressesNormalized,
		run.Unreachable, run.ErrorsCount, id)
	return err
}

// UpsertAddress mirrors the SQLite upsert semantics: per run and
// fingerprint, the higher-confidence record survives.
func (s *PostgresStore) UpsertAddress(ctx context.Context, runID int64, siteID string, addr *models.NormalizedAddress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO listing_addresses (id, run_id, site_id, url, fingerprint,
			street_line1, street_line2, city, state, postal_code, country,
			final_confidence, inference_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, fingerprint) DO UPDATE SET
			url = EXCLUDED.url,
			street_line1 = EXCLUDED.street_line1,
			street_line2 = EXCLUDED.street_line2,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			final_confidence = EXCLUDED.final_confidence,
			inference_method = EXCLUDED.inference_method
		WHERE EXCLUDED.final_confidence > listing_addresses.final_confidence`,
		addr.ID, runID, siteID, addr.URL, addr.Fingerprint,
		addr.StreetLine1, addr.StreetLine2, addr.City, addr.State, addr.PostalCode,
		addr.Country, addr.FinalConfidence, addr.InferenceMethod, addr.CreatedAt)
	return err
}

