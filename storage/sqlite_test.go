package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"vrscout/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testAddress(fingerprint, url string, conf float64) *models.NormalizedAddress {
	return &models.NormalizedAddress{
		ID:              uuid.New(),
		URL:             url,
		Fingerprint:     fingerprint,
		StreetLine1:     "123 Gulf View Ln",
		City:            "Santa Rosa Beach",
		State:           "FL",
		PostalCode:      "32459",
		Country:         "USA",
		FinalConfidence: conf,
		InferenceMethod: "json_ld:parser",
		CreatedAt:       time.Now().UTC(),
	}
}

func TestRunLifecycle(t *testing.T) {
	store := testStore(t)

	run := &models.ScrapeRun{SiteID: "example", StartedAt: time.Now(), Status: models.RunStatusRunning}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run.ID = id

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.URLsDiscovered = 12
	run.PagesFetched = 12
	run.ListingsClassified = 9
	run.AddressesNormalized = 7
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.Status != models.RunStatusCompleted || got.AddressesNormalized != 7 {
		t.Errorf("run = %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at not persisted")
	}
}

func TestSaveAddressDedup(t *testing.T) {
	store := testStore(t)
	runID, err := store.CreateRun(&models.ScrapeRun{SiteID: "example", StartedAt: time.Now(), Status: models.RunStatusRunning})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	low := testAddress("fp-1", "https://example.com/property/a", 0.5)
	high := testAddress("fp-1", "https://example.com/property/b", 0.9)

	inserted, err := store.SaveAddress(runID, low)
	if err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}
	if !inserted {
		t.Error("first save should insert")
	}

	inserted, err = store.SaveAddress(runID, high)
	if err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}
	if inserted {
		t.Error("same fingerprint should not insert twice")
	}

	addrs, err := store.GetAddressesForRun(runID)
	if err != nil {
		t.Fatalf("GetAddressesForRun: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("got %d addresses, want 1", len(addrs))
	}
	if addrs[0].FinalConfidence != 0.9 {
		t.Errorf("confidence = %v, want the higher record to win", addrs[0].FinalConfidence)
	}

	urls, err := store.GetListingURLs(runID, "fp-1")
	if err != nil {
		t.Fatalf("GetListingURLs: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("got %d listing URLs, want both recorded: %v", len(urls), urls)
	}
}

func TestSaveCandidates(t *testing.T) {
	store := testStore(t)
	runID, _ := store.CreateRun(&models.ScrapeRun{SiteID: "example", StartedAt: time.Now(), Status: models.RunStatusRunning})

	err := store.SaveCandidates(runID, []models.AddressCandidate{
		{URL: "https://example.com/p", RawText: "123 Gulf View Ln", Method: models.MethodJSONLD, RawConfidence: 0.9},
		{URL: "https://example.com/p", RawText: "30.39,-86.49", Method: models.MethodMapWidget, RawConfidence: 0.3, RequiresEnrichment: true},
	})
	if err != nil {
		t.Fatalf("SaveCandidates: %v", err)
	}

	if err := store.SaveCandidates(runID, nil); err != nil {
		t.Fatalf("SaveCandidates(nil): %v", err)
	}
}

func TestCommandQueue(t *testing.T) {
	store := testStore(t)

	if err := store.EnqueueCommand(models.CmdScrapeSite, &models.CommandParams{Site: "example"}); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}

	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("ParseCommandParams: %v", err)
	}
	if params.Site != "example" {
		t.Errorf("site = %q", params.Site)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("MarkCommandProcessed: %v", err)
	}
	cmds, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("processed command still pending")
	}
}

func TestSiteStats(t *testing.T) {
	store := testStore(t)

	started := time.Now().Add(-time.Minute)
	finished := time.Now()
	run := &models.ScrapeRun{SiteID: "example", StartedAt: started, Status: models.RunStatusRunning}
	id, _ := store.CreateRun(run)
	run.ID = id
	run.Status = models.RunStatusCompleted
	run.FinishedAt = &finished
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	if _, err := store.SaveAddress(id, testAddress("fp-1", "https://example.com/p", 0.9)); err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}

	if err := store.UpdateSiteStats("example"); err != nil {
		t.Fatalf("UpdateSiteStats: %v", err)
	}

	stats, err := store.GetSiteStats("example")
	if err != nil {
		t.Fatalf("GetSiteStats: %v", err)
	}
	if stats == nil {
		t.Fatal("stats not found")
	}
	if stats.TotalAddresses != 1 {
		t.Errorf("total addresses = %d, want 1", stats.TotalAddresses)
	}
	if stats.SuccessRate != 1.0 {
		t.Errorf("success rate = %v, want 1.0", stats.SuccessRate)
	}
}

func TestLog(t *testing.T) {
	store := testStore(t)
	runID, _ := store.CreateRun(&models.ScrapeRun{SiteID: "example", StartedAt: time.Now(), Status: models.RunStatusRunning})

	if err := store.Log(&runID, models.LogLevelInfo, "discovery started", "example"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := store.Log(nil, models.LogLevelError, "renderer crashed", "example"); err != nil {
		t.Fatalf("Log(nil run): %v", err)
	}
}
