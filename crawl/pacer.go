package crawl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces detail fetches so the source site sees at most one page
// per interval. A nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing one fetch per interval with no
// bursting. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next fetch is allowed.
// Returns an error if the context is canceled before the wait completes.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
