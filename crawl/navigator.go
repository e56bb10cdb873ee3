package crawl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/contestcrawl"
)

// Listing defaults.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultListTimeout       = 10 * time.Second
	DefaultStabilizeSamples  = 20
	DefaultStabilizeInterval = 200 * time.Millisecond
	DefaultStableRuns        = 3
)

// Navigator reads detail-page URLs from listing pages.
type Navigator struct {
	Site   *contestcrawl.Site
	Logger *slog.Logger

	NavigationTimeout time.Duration
	ListTimeout       time.Duration

	// StabilizeSamples bounds how many times the anchor count is sampled.
	StabilizeSamples int
	// StabilizeInterval separates two samples.
	StabilizeInterval time.Duration
	// StableRuns is how many times in a row the count must repeat the
	// previous sample before the list is considered rendered.
	StableRuns int
}

// FetchListing returns the detail URLs of the 1-based listing page,
// deduplicated in first-seen order. A listing whose container never
// appears yields no URLs and no error. Navigation failures are returned.
func (n *Navigator) FetchListing(ctx context.Context, s contestcrawl.Session, page int) ([]string, error) {
	listingURL := n.Site.ListingURL(page)
	if err := s.Navigate(ctx, listingURL, n.navigationTimeout()); err != nil {
		return nil, err
	}

	if err := s.WaitForSelector(ctx, n.Site.ListSelector, n.listTimeout()); err != nil {
		if contestcrawl.ErrorCode(err) == contestcrawl.ENOTFOUND {
			n.logger().Warn("listing container not found", "page", page, "url", listingURL)
			return nil, nil
		}
		return nil, err
	}

	anchors, err := n.stabilize(ctx, s)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(anchors))
	urls := make([]string, 0, len(anchors))
	for _, a := range anchors {
		href, err := a.Attribute(ctx, "href")
		if err != nil {
			if contestcrawl.IsSessionFailure(err) {
				return nil, err
			}
			continue
		}
		if href == nil || strings.TrimSpace(*href) == "" {
			continue
		}
		u := contestcrawl.ResolveURL(n.Site.BaseURL, *href)
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}

	n.logger().Info("listing read", "page", page, "anchors", len(anchors), "urls", len(urls))
	return urls, nil
}

// Reload navigates back to the listing page without reading it.
// A missing listing container is not an error.
func (n *Navigator) Reload(ctx context.Context, s contestcrawl.Session, page int) error {
	if err := s.Navigate(ctx, n.Site.ListingURL(page), n.navigationTimeout()); err != nil {
		return err
	}
	err := s.WaitForSelector(ctx, n.Site.ListSelector, n.listTimeout())
	if contestcrawl.ErrorCode(err) == contestcrawl.ENOTFOUND {
		return nil
	}
	return err
}

// stabilize samples the detail anchors until their count has repeated
// StableRuns times in a row or the sample bound is exhausted, and returns
// the anchors of the final sample.
func (n *Navigator) stabilize(ctx context.Context, s contestcrawl.Session) ([]contestcrawl.Element, error) {
	samples := n.StabilizeSamples
	if samples <= 0 {
		samples = DefaultStabilizeSamples
	}
	runs := n.StableRuns
	if runs <= 0 {
		runs = DefaultStableRuns
	}
	interval := n.StabilizeInterval
	if interval <= 0 {
		interval = DefaultStabilizeInterval
	}

	var anchors []contestcrawl.Element
	prev, stable := -1, 0
	for i := 0; i < samples; i++ {
		var err error
		anchors, err = s.QueryAll(ctx, n.Site.DetailLinkSelector)
		if err != nil {
			return nil, err
		}

		if len(anchors) == prev {
			stable++
		} else {
			stable = 0
		}
		if stable >= runs {
			return anchors, nil
		}
		prev = len(anchors)

		if i == samples-1 {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}

	n.logger().Debug("listing did not stabilize", "samples", samples, "anchors", len(anchors))
	return anchors, nil
}

func (n *Navigator) navigationTimeout() time.Duration {
	if n.NavigationTimeout > 0 {
		return n.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

func (n *Navigator) listTimeout() time.Duration {
	if n.ListTimeout > 0 {
		return n.ListTimeout
	}
	return DefaultListTimeout
}

func (n *Navigator) logger() *slog.Logger {
	return loggerOrDiscard(n.Logger)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
