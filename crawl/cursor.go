package crawl

// PageCursor tracks a crawl's position and the URLs it has visited.
// It is owned by a single run and not safe for concurrent use.
type PageCursor struct {
	// Page is the 1-based listing page being processed.
	Page int
	// Visits counts detail visits across the run, including failed ones.
	Visits int

	seen map[string]struct{}
}

// NewPageCursor returns a cursor positioned on the first page.
func NewPageCursor() *PageCursor {
	return &PageCursor{Page: 1, seen: make(map[string]struct{})}
}

// MarkSeen records url and reports whether it had not been seen before.
func (c *PageCursor) MarkSeen(url string) bool {
	if _, ok := c.seen[url]; ok {
		return false
	}
	c.seen[url] = struct{}{}
	return true
}

// RecordVisit counts one detail visit.
func (c *PageCursor) RecordVisit() {
	c.Visits++
}

// NeedsRestart reports whether the run's visit count has reached a
// nonzero multiple of every. A non-positive every never requires a restart.
func (c *PageCursor) NeedsRestart(every int) bool {
	return every > 0 && c.Visits > 0 && c.Visits%every == 0
}
