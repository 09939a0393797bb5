package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"vrscout/models"
)

// SQLiteStore is the operational database: run manifests, extraction
// audit trail, normalized results, logs, and the command queue the
// daemon polls.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		urls_discovered INTEGER DEFAULT 0,
		pages_fetched INTEGER DEFAULT 0,
		listings_classified INTEGER DEFAULT 0,
		pages_with_candidates INTEGER DEFAULT 0,
		addresses_normalized INTEGER DEFAULT 0,
		unreachable INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS address_candidates (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		raw_text TEXT,
		method TEXT,
		raw_confidence REAL,
		snippet TEXT,
		requires_enrichment BOOLEAN DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES scrape_runs(id)
	);

	CREATE TABLE IF NOT EXISTS normalized_addresses (
		id TEXT PRIMARY KEY,
		run_id INTEGER NOT NULL,
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
		created_at DATETIME,
		UNIQUE(run_id, fingerprint),
		FOREIGN KEY (run_id) REFERENCES scrape_runs(id)
	);

	CREATE TABLE IF NOT EXISTS address_listing_urls (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		url TEXT NOT NULL,
		UNIQUE(run_id, fingerprint, url)
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE TABLE IF NOT EXISTS site_stats (
		site_id TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_addresses INTEGER,
		total_candidates INTEGER,
		success_rate REAL,
		avg_run_duration_sec INTEGER
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_run ON address_candidates(run_id, url);
	CREATE INDEX IF NOT EXISTS idx_addresses_fingerprint ON normalized_addresses(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_addresses_run ON normalized_addresses(run_id);
	CREATE INDEX IF NOT EXISTS idx_listing_urls_fp ON address_listing_urls(run_id, fingerprint);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (site_id, started_at, status)
		VALUES (?, ?, ?)`,
		run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, urls_discovered = ?,
			pages_fetched = ?, listings_classified = ?, pages_with_candidates = ?,
			addresses_normalized = ?, unreachable = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.URLsDiscovered, run.PagesFetched,
		run.ListingsClassified, run.PagesWithCandidates, run.AddressesNormalized,
		run.Unreachable, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, site_id, started_at, finished_at, status, urls_discovered,
			pages_fetched, listings_classified, pages_with_candidates,
			addresses_normalized, unreachable, errors_count
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	err := row.Scan(&run.ID, &run.SiteID, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.URLsDiscovered, &run.PagesFetched, &run.ListingsClassified,
		&run.PagesWithCandidates, &run.AddressesNormalized, &run.Unreachable, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveCandidates records the raw extraction audit trail for one page.
func (s *SQLiteStore) SaveCandidates(runID int64, candidates []models.AddressCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO address_candidates (run_id, url, raw_text, method, raw_confidence, snippet, requires_enrichment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candidates {
		if _, err := stmt.Exec(runID, c.URL, c.RawText, string(c.Method),
			c.RawConfidence, c.Snippet, c.RequiresEnrichment); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveAddress upserts a normalized address keyed by (run, fingerprint).
// When the same property surfaces through a second listing URL in one
// run, the higher-confidence record wins and the extra URL is recorded
// in address_listing_urls either way. Returns true when a new
// fingerprint was inserted.
func (s *SQLiteStore) SaveAddress(runID int64, addr *models.NormalizedAddress) (bool, error) {
	result, err := s.db.Exec(`
		INSERT INTO normalized_addresses (id, run_id, url, fingerprint, street_line1,
			street_line2, city, state, postal_code, country, final_confidence,
			inference_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, fingerprint) DO NOTHING`,
		addr.ID.String(), runID, addr.URL, addr.Fingerprint, addr.StreetLine1,
		addr.StreetLine2, addr.City, addr.State, addr.PostalCode, addr.Country,
		addr.FinalConfidence, addr.InferenceMethod, addr.CreatedAt)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	inserted := affected > 0

	if !inserted {
		_, err = s.db.Exec(`
			UPDATE normalized_addresses SET url = ?, street_line1 = ?, street_line2 = ?,
				city = ?, state = ?, postal_code = ?, country = ?, final_confidence = ?,
				inference_method = ?
			WHERE run_id = ? AND fingerprint = ? AND final_confidence < ?`,
			addr.URL, addr.StreetLine1, addr.StreetLine2, addr.City, addr.State,
			addr.PostalCode, addr.Country, addr.FinalConfidence, addr.InferenceMethod,
			runID, addr.Fingerprint, addr.FinalConfidence)
		if err != nil {
			return false, err
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO address_listing_urls (run_id, fingerprint, url)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, fingerprint, url) DO NOTHING`,
		runID, addr.Fingerprint, addr.URL)
	return inserted, err
}

func (s *SQLiteStore) GetAddressesForRun(runID int64) ([]models.NormalizedAddress, error) {
	rows, err := s.db.Query(`
		SELECT id, url, fingerprint, street_line1, street_line2, city, state,
			postal_code, country, final_confidence, inference_method, created_at
		FROM normalized_addresses WHERE run_id = ? ORDER BY final_confidence DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []models.NormalizedAddress
	for rows.Next() {
		var a models.NormalizedAddress
		var id string
		if err := rows.Scan(&id, &a.URL, &a.Fingerprint, &a.StreetLine1, &a.StreetLine2,
			&a.City, &a.State, &a.PostalCode, &a.Country, &a.FinalConfidence,
			&a.InferenceMethod, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ID, _ = uuid.Parse(id)
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (s *SQLiteStore) GetListingURLs(runID int64, fingerprint string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT url FROM address_listing_urls
		WHERE run_id = ? AND fingerprint = ? ORDER BY url`, runID, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) UpdateSiteStats(siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO site_stats (site_id, last_run_at, last_run_status, total_addresses,
			total_candidates, success_rate, avg_run_duration_sec)
		SELECT
			?,
			(SELECT started_at FROM scrape_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT status FROM scrape_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COUNT(DISTINCT fingerprint) FROM normalized_addresses
				WHERE run_id IN (SELECT id FROM scrape_runs WHERE site_id = ?)),
			(SELECT COUNT(*) FROM address_candidates
				WHERE run_id IN (SELECT id FROM scrape_runs WHERE site_id = ?)),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM scrape_runs WHERE site_id = ?),
			(SELECT AVG(CAST((julianday(finished_at) - julianday(started_at)) * 86400 AS INTEGER))
				FROM scrape_runs WHERE site_id = ? AND finished_at IS NOT NULL)
		ON CONFLICT(site_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_addresses = excluded.total_addresses,
			total_candidates = excluded.total_candidates,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		siteID, siteID, siteID, siteID, siteID, siteID, siteID)
	return err
}

func (s *SQLiteStore) GetSiteStats(siteID string) (*models.SiteStats, error) {
	row := s.db.QueryRow(`
		SELECT site_id, last_run_at, last_run_status, total_addresses, total_candidates,
			COALESCE(success_rate, 0), COALESCE(avg_run_duration_sec, 0)
		FROM site_stats WHERE site_id = ?`, siteID)

	var st models.SiteStats
	err := row.Scan(&st.SiteID, &st.LastRunAt, &st.LastRunStatus, &st.TotalAddresses,
		&st.TotalCandidates, &st.SuccessRate, &st.AvgRunDurationSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) EnqueueCommand(command models.CommandType, params *models.CommandParams) error {
	var raw any
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = string(b)
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, command, raw)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
