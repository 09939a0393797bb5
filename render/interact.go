package render

import "context"

// pageDriver is the minimal page surface the interaction loops need.
// PlaywrightRenderer adapts a live page to it; tests use a fake.
type pageDriver interface {
	// Height reports the current document scroll height.
	Height() int
	// ScrollBottom scrolls to the bottom of the document.
	ScrollBottom()
	// ClickFirst clicks the first visible element matching any of the
	// selectors, reporting whether anything was clicked.
	ClickFirst(selectors []string) bool
	// Settle waits for lazy content to land after an interaction.
	Settle()
}

// scrollUntilStable scrolls until the document height is stable across
// two consecutive measurements or the attempt ceiling is reached.
func scrollUntilStable(ctx context.Context, p pageDriver, maxScrolls int) {
	if maxScrolls <= 0 {
		return
	}

	lastHeight := -1
	stable := 0
	for i := 0; i < maxScrolls; i++ {
		if ctx.Err() != nil {
			return
		}

		p.ScrollBottom()
		p.Settle()

		height := p.Height()
		if height == lastHeight {
			stable++
			if stable >= 2 {
				return
			}
		} else {
			stable = 0
		}
		lastHeight = height
	}
}

// clickUntilDone clicks the first visible load-more control repeatedly
// until nothing new appears or the click ceiling is reached. The
// ceiling is what terminates sites whose control never disappears.
// Returns the number of clicks performed.
func clickUntilDone(ctx context.Context, p pageDriver, selectors []string, maxClicks int) int {
	if maxClicks <= 0 {
		return 0
	}

	clicks := 0
	lastHeight := p.Height()

	for clicks < maxClicks {
		if ctx.Err() != nil {
			return clicks
		}

		if !p.ClickFirst(selectors) {
			break
		}
		clicks++
		p.Settle()

		height := p.Height()
		if height == lastHeight {
			// Control still visible but produced nothing new.
			break
		}
		lastHeight = height
	}

	return clicks
}
