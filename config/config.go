package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Scheduler SchedulerConfig
	Proxy     ProxyConfig
	S3        S3Config
	LLM       LLMConfig
	DBPath    string
	PGURL     string
	LogLevel  string
	SitesDir  string
	Sites     map[string]*SiteProfile
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ProxyConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional: DO Spaces, R2, etc.
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Confidence float64 // raw_confidence assigned to llm candidates
}

func (c LLMConfig) Enabled() bool {
	return c.BaseURL != "" && c.Model != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		LLM: LLMConfig{
			BaseURL:    os.Getenv("LLM_BASE_URL"),
			APIKey:     os.Getenv("LLM_API_KEY"),
			Model:      os.Getenv("LLM_MODEL"),
			Confidence: getEnvFloat("LLM_CONFIDENCE", 0.35),
		},
		DBPath:   getEnv("DB_PATH", "vrscout.db"),
		PGURL:    os.Getenv("DATABASE_URL"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		SitesDir: getEnv("SITES_DIR", "config/sites"),
		Sites:    make(map[string]*SiteProfile),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSiteProfiles(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSiteProfiles() error {
	entries, err := os.ReadDir(c.SitesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		profile, err := LoadProfile(filepath.Join(c.SitesDir, entry.Name()))
		if err != nil {
			return err
		}
		c.Sites[profile.ID] = profile
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
