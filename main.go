package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"vrscout/config"
	"vrscout/httputil"
	"vrscout/llm"
	"vrscout/logging"
	"vrscout/pipeline"
	"vrscout/scheduler"
	"vrscout/storage"
)

var (
	scrapeNow  = flag.Bool("scrape", false, "Run a scrape of all sites once and exit")
	scrapeSite = flag.String("site", "", "With -scrape, limit the run to one site id")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("vrscout.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting vrscout...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d site profiles", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s)", site.Name, id)
	}

	clients := httputil.NewClients(&cfg.Proxy)

	ctx := context.Background()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	var pgStore *storage.PostgresStore
	if cfg.PGURL != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.PGURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("Postgres migration failed: %v", err)
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.PGURL))
	}

	var archive *storage.SnapshotArchive
	if cfg.S3.Enabled() {
		archive, err = storage.NewSnapshotArchive(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize snapshot archive: %v", err)
		}
		log.Printf("Snapshot archive: s3://%s", cfg.S3.Bucket)
	}

	var llmClient *llm.Client
	if cfg.LLM.Enabled() {
		llmClient = llm.NewClient(cfg.LLM, clients.API)
		log.Printf("LLM enrichment: %s (%s)", cfg.LLM.Model, cfg.LLM.BaseURL)
	}

	pipe := pipeline.New(cfg, sqliteStore, pgStore, archive, llmClient, clients)

	if *scrapeNow {
		if *scrapeSite != "" {
			log.Printf("Running scrape for %s...", *scrapeSite)
			if err := pipe.RunSite(ctx, *scrapeSite); err != nil {
				log.Fatalf("Scrape failed: %v", err)
			}
		} else {
			log.Println("Running scrape...")
			pipe.RunAll(ctx)
		}
		log.Println("Scrape complete!")
		return
	}

	sched := scheduler.New(cfg, pipe, sqliteStore)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks the password segment of a connection
// string for logging.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
