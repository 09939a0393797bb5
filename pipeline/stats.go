package pipeline

import (
	"sync"

	"vrscout/models"
)

// runStats accumulates the run manifest across concurrent page workers.
type runStats struct {
	mu                  sync.Mutex
	urlsDiscovered      int
	pagesFetched        int
	listingsClassified  int
	pagesWithCandidates int
	addressesNormalized int
	unreachable         int
	errors              int
}

func (s *runStats) add(f func(*runStats)) {
	s.mu.Lock()
	f(s)
	s.mu.Unlock()
}

func (s *runStats) apply(run *models.ScrapeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.URLsDiscovered = s.urlsDiscovered
	run.PagesFetched = s.pagesFetched
	run.ListingsClassified = s.listingsClassified
	run.PagesWithCandidates = s.pagesWithCandidates
	run.AddressesNormalized = s.addressesNormalized
	run.Unreachable = s.unreachable
	run.ErrorsCount = s.errors
}
