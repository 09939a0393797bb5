package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"vrscout/classify"
	"vrscout/config"
	"vrscout/crawler"
	"vrscout/extract"
	"vrscout/httputil"
	"vrscout/llm"
	"vrscout/models"
	"vrscout/normalize"
	"vrscout/render"
	"vrscout/storage"
)

// Pipeline drives a full scrape for one or more sites: discovery,
// render, classification, extraction, normalization, persistence.
type Pipeline struct {
	cfg     *config.Config
	store   *storage.SQLiteStore
	pg      *storage.PostgresStore   // optional
	archive *storage.SnapshotArchive // optional
	llm     *llm.Client              // optional
	clients *httputil.Clients

	// newRenderer is swappable so tests run without a browser.
	newRenderer func(profile *config.SiteProfile) (render.Renderer, error)

	mu     sync.Mutex
	paused bool
}

func New(cfg *config.Config, store *storage.SQLiteStore, pg *storage.PostgresStore,
	archive *storage.SnapshotArchive, llmClient *llm.Client, clients *httputil.Clients) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		pg:      pg,
		archive: archive,
		llm:     llmClient,
		clients: clients,
		newRenderer: func(profile *config.SiteProfile) (render.Renderer, error) {
			return render.NewPlaywrightRenderer(""), nil
		},
	}
}

func (p *Pipeline) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	log.Println("pipeline: paused")
}

func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	log.Println("pipeline: resumed")
}

func (p *Pipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// RunAll scrapes every configured site sequentially, in stable order.
// Per-site failures are logged and do not stop the remaining sites.
func (p *Pipeline) RunAll(ctx context.Context) {
	ids := make([]string, 0, len(p.cfg.Sites))
	for id := range p.cfg.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if p.Paused() {
			log.Println("pipeline: paused, skipping remaining sites")
			return
		}
		if err := p.RunSite(ctx, id); err != nil {
			log.Printf("pipeline: site %s: %v", id, err)
		}
	}
}

// RunSite executes one full scrape run for a site and records its
// manifest. The returned error covers setup failures only; per-page
// errors are counted in the manifest and logged.
func (p *Pipeline) RunSite(ctx context.Context, siteID string) error {
	profile, ok := p.cfg.Sites[siteID]
	if !ok {
		return fmt.Errorf("unknown site %q", siteID)
	}

	run := &models.ScrapeRun{
		SiteID:    siteID,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusRunning,
	}
	runID, err := p.store.CreateRun(run)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.ID = runID
	p.store.Log(&runID, models.LogLevelInfo, "run started", siteID)

	var pgRunID int64
	if p.pg != nil {
		if pgRunID, err = p.pg.CreateScrapeRun(ctx, run); err != nil {
			log.Printf("pipeline: %s: postgres run: %v", siteID, err)
			pgRunID = 0
		}
	}

	renderer, err := p.newRenderer(profile)
	if err != nil {
		p.finishRun(ctx, run, pgRunID, models.RunStatusFailed, nil)
		return fmt.Errorf("start renderer: %w", err)
	}
	defer renderer.Close()

	stats := &runStats{}
	status := p.runSite(ctx, profile, renderer, runID, stats)
	p.finishRun(ctx, run, pgRunID, status, stats)
	return nil
}

func (p *Pipeline) runSite(ctx context.Context, profile *config.SiteProfile,
	renderer render.Renderer, runID int64, stats *runStats) models.RunStatus {

	urls := p.discover(ctx, profile, renderer)
	stats.add(func(s *runStats) { s.urlsDiscovered = len(urls) })
	p.store.Log(&runID, models.LogLevelInfo,
		fmt.Sprintf("discovered %d candidate listing URLs", len(urls)), profile.ID)

	if len(urls) == 0 {
		if ctx.Err() != nil {
			return models.RunStatusFailed
		}
		return models.RunStatusCompleted
	}

	classifier := classify.New(classify.Rules{
		PositiveKeywords: profile.Classify.PositiveKeywords,
		NegativeKeywords: profile.Classify.NegativeKeywords,
		Threshold:        profile.Classify.Threshold,
	})
	extractor := extract.New(profile)
	normalizer := normalize.New(normalize.Context{
		MarketName:  profile.MarketName,
		KnownPlaces: profile.KnownPlaces,
	})

	sem := make(chan struct{}, profile.Crawl.MaxConcurrency)
	var wg sync.WaitGroup
	for _, du := range urls {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(du models.DiscoveredURL) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processPage(ctx, profile, renderer, classifier, extractor, normalizer, runID, du, stats)
		}(du)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return models.RunStatusFailed
	}
	return models.RunStatusCompleted
}

// discover merges sitemap seeds with the browser crawl, deduplicated by
// URL.
func (p *Pipeline) discover(ctx context.Context, profile *config.SiteProfile, renderer render.Renderer) []models.DiscoveredURL {
	seen := make(map[string]bool)
	var merged []models.DiscoveredURL

	if len(profile.SitemapURLs) > 0 && p.clients != nil {
		for _, du := range crawler.NewSitemapSeeder(p.clients.Scraping, profile).Seed(ctx) {
			if !seen[du.URL] {
				seen[du.URL] = true
				merged = append(merged, du)
			}
		}
	}

	crawled, err := crawler.NewDiscoverer(profile, renderer).Discover(ctx)
	if err != nil {
		log.Printf("pipeline: %s: discover: %v", profile.ID, err)
	}
	for _, du := range crawled {
		if !seen[du.URL] {
			seen[du.URL] = true
			merged = append(merged, du)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].URL < merged[j].URL })
	return merged
}

func (p *Pipeline) processPage(ctx context.Context, profile *config.SiteProfile,
	renderer render.Renderer, classifier *classify.Classifier, extractor *extract.Extractor,
	normalizer *normalize.Normalizer, runID int64, du models.DiscoveredURL, stats *runStats) {

	result, err := p.renderWithRetry(ctx, renderer, profile, du.URL)
	if err != nil {
		stats.add(func(s *runStats) { s.unreachable++; s.errors++ })
		p.store.Log(&runID, models.LogLevelWarn,
			fmt.Sprintf("unreachable after retries: %s: %v", du.URL, err), profile.ID)
		return
	}
	stats.add(func(s *runStats) { s.pagesFetched++ })

	verdict := classifier.Classify(du.URL, result.HTML)
	if !verdict.IsListing {
		return
	}
	stats.add(func(s *runStats) { s.listingsClassified++ })

	if p.archive != nil {
		if key, err := p.archive.Store(ctx, profile.ID, runID, du.URL, result.HTML); err != nil {
			// Snapshots are diagnostics; their failure never costs a
			// page.
			log.Printf("pipeline: %s: snapshot: %v", du.URL, err)
		} else {
			log.Printf("pipeline: %s: snapshot at %s", du.URL, p.archive.PublicURL(key))
		}
	}

	candidates := extractor.Extract(du.URL, result.HTML)
	addr := normalizer.Normalize(du.URL, candidates)

	if addr == nil && p.llm != nil {
		if llmCand := p.llmCandidate(ctx, profile, du.URL, result.HTML); llmCand != nil {
			candidates = append(candidates, *llmCand)
			addr = normalizer.Normalize(du.URL, candidates)
		}
	}

	if len(candidates) > 0 {
		stats.add(func(s *runStats) { s.pagesWithCandidates++ })
		if err := p.store.SaveCandidates(runID, candidates); err != nil {
			stats.add(func(s *runStats) { s.errors++ })
			log.Printf("pipeline: %s: save candidates: %v", du.URL, err)
		}
	}

	if addr == nil {
		return
	}

	inserted, err := p.store.SaveAddress(runID, addr)
	if err != nil {
		stats.add(func(s *runStats) { s.errors++ })
		log.Printf("pipeline: %s: save address: %v", du.URL, err)
		return
	}
	if inserted {
		stats.add(func(s *runStats) { s.addressesNormalized++ })
	}

	if p.pg != nil {
		if err := p.pg.UpsertAddress(ctx, runID, profile.ID, addr); err != nil {
			stats.add(func(s *runStats) { s.errors++ })
			log.Printf("pipeline: %s: postgres upsert: %v", du.URL, err)
		}
	}
}

// llmCandidate consults the enrichment model when every deterministic
// strategy failed to produce a parseable candidate.
func (p *Pipeline) llmCandidate(ctx context.Context, profile *config.SiteProfile, url, html string) *models.AddressCandidate {
	partial, err := p.llm.ExtractAddress(ctx, extract.Excerpt(html), profile.MarketName)
	if err != nil {
		log.Printf("pipeline: %s: llm: %v", url, err)
		return nil
	}
	if partial == nil {
		return nil
	}

	var parts []string
	for _, f := range []string{partial.Street, partial.City, partial.State, partial.PostalCode} {
		if strings.TrimSpace(f) != "" {
			parts = append(parts, strings.TrimSpace(f))
		}
	}
	if len(parts) == 0 {
		return nil
	}

	return &models.AddressCandidate{
		URL:           url,
		RawText:       strings.Join(parts, ", "),
		Method:        models.MethodLLM,
		RawConfidence: p.llm.Confidence(),
		Snippet:       "llm",
	}
}

func (p *Pipeline) renderWithRetry(ctx context.Context, renderer render.Renderer,
	profile *config.SiteProfile, url string) (*render.Result, error) {

	opts := render.Options{
		Scroll:     true,
		MaxScrolls: profile.Crawl.ScrollAttempts,
		Timeout:    profile.RenderTimeout(),
	}

	var lastErr error
	attempts := profile.Crawl.FetchRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result, err := renderer.Render(ctx, url, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !render.IsTransient(err) {
			break
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (p *Pipeline) finishRun(ctx context.Context, run *models.ScrapeRun, pgRunID int64,
	status models.RunStatus, stats *runStats) {

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	if stats != nil {
		stats.apply(run)
	}

	if err := p.store.UpdateRun(run); err != nil {
		log.Printf("pipeline: %s: update run: %v", run.SiteID, err)
	}
	if err := p.store.UpdateSiteStats(run.SiteID); err != nil {
		log.Printf("pipeline: %s: site stats: %v", run.SiteID, err)
	}
	p.store.Log(&run.ID, models.LogLevelInfo,
		fmt.Sprintf("run finished: status=%s discovered=%d fetched=%d listings=%d addresses=%d unreachable=%d errors=%d",
			run.Status, run.URLsDiscovered, run.PagesFetched, run.ListingsClassified,
			run.AddressesNormalized, run.Unreachable, run.ErrorsCount),
		run.SiteID)

	if p.pg != nil && pgRunID != 0 {
		if err := p.pg.UpdateScrapeRun(ctx, pgRunID, run); err != nil {
			log.Printf("pipeline: %s: postgres run update: %v", run.SiteID, err)
		}
	}
}

// HandleCommand executes one queued operator command.
func (p *Pipeline) HandleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdScrapeNow:
		p.RunAll(ctx)
		return nil
	case models.CmdScrapeSite:
		params, err := p.store.ParseCommandParams(cmd)
		if err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
		if params.Site == "" {
			return fmt.Errorf("scrape_site: missing site param")
		}
		return p.RunSite(ctx, params.Site)
	case models.CmdPause:
		p.Pause()
		return nil
	case models.CmdResume:
		p.Resume()
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}
