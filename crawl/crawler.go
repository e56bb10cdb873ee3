// Package crawl drives a browser session through paginated contest
// listings and their detail pages.
package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/google/uuid"
)

// Crawl defaults.
const (
	DefaultMaxPages               = 100
	DefaultMaxConsecutiveRestarts = 3
)

// Crawler walks listing pages 1..MaxPages, visiting every detail page
// with a single browser session at a time.
type Crawler struct {
	Browser   contestcrawl.Browser
	Navigator *Navigator
	Extractor *Extractor
	Logger    *slog.Logger

	MaxPages int
	// PerPageLimit truncates each listing when positive.
	PerPageLimit int
	// RestartEvery recycles the session each time the run's detail visit
	// count reaches a multiple of it, when positive.
	RestartEvery int
	// MaxConsecutiveRestarts bounds recovery restarts without a successful
	// fetch in between.
	MaxConsecutiveRestarts int
	// OpenRetryDelays are waited between failed attempts to open a session.
	OpenRetryDelays []time.Duration
}

// Result holds the outcome of a crawl.
type Result struct {
	Records []*contestcrawl.ActivityRecord

	Pages              int
	Visits             int
	Skipped            int
	Duplicates         int
	PreventiveRestarts int
	RecoveryRestarts   int
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type    ProgressType
	Page    int
	URL     string
	Total   int
	Records int
	Error   error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressPage ProgressType = iota
	ProgressRecord
	ProgressFailed
	ProgressRestart
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Run crawls until a listing page comes back empty or MaxPages is reached.
//
// The returned Result always carries the records gathered so far, including
// when Run fails with EUNSTABLE or a context error.
func (c *Crawler) Run(ctx context.Context, progress ProgressFunc) (*Result, error) {
	r := &run{
		c:        c,
		logger:   loggerOrDiscard(c.Logger).With("run", uuid.NewString()),
		progress: progress,
		cursor:   NewPageCursor(),
		result:   &Result{},
	}
	defer r.closeSession()

	begin := time.Now()
	err := r.crawl(ctx)

	r.logger.Info("crawl finished",
		"pages", r.result.Pages,
		"visits", r.result.Visits,
		"records", len(r.result.Records),
		"skipped", r.result.Skipped,
		"preventive_restarts", r.result.PreventiveRestarts,
		"recovery_restarts", r.result.RecoveryRestarts,
		"duration", time.Since(begin),
		"err", err,
	)
	r.notify(ProgressEvent{Type: ProgressFinished, Records: len(r.result.Records), Error: err})
	return r.result, err
}

// run holds the state of one Crawler.Run call.
type run struct {
	c        *Crawler
	logger   *slog.Logger
	progress ProgressFunc
	cursor   *PageCursor
	result   *Result

	session     contestcrawl.Session
	consecutive int
}

func (r *run) crawl(ctx context.Context) error {
	maxPages := r.c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.cursor.Page = page

		urls, err := r.listing(ctx, page)
		if err != nil {
			return err
		}
		r.result.Pages++
		if len(urls) == 0 {
			r.logger.Info("no more listings", "page", page)
			return nil
		}
		if r.c.PerPageLimit > 0 && len(urls) > r.c.PerPageLimit {
			urls = urls[:r.c.PerPageLimit]
		}
		r.notify(ProgressEvent{Type: ProgressPage, Page: page, Total: len(urls), Records: len(r.result.Records)})

		for _, u := range urls {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !r.cursor.MarkSeen(u) {
				r.result.Duplicates++
				continue
			}
			if r.cursor.NeedsRestart(r.c.RestartEvery) {
				if err := r.preventiveRestart(ctx, page); err != nil {
					return err
				}
			}
			if err := r.visit(ctx, u); err != nil {
				return err
			}
		}

		r.closeSession()
	}
	return nil
}

// listing fetches the page's detail URLs, recycling the session on failure.
func (r *run) listing(ctx context.Context, page int) ([]string, error) {
	for {
		if err := r.ensureSession(ctx); err != nil {
			return nil, err
		}

		urls, err := r.c.Navigator.FetchListing(ctx, r.session, page)
		if err == nil {
			r.consecutive = 0
			return urls, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		r.logger.Warn("listing failed", "page", page, "err", err)
		if err := r.recover(ctx, err); err != nil {
			return nil, err
		}
	}
}

// visit extracts one detail page. A failed visit recycles the session and
// skips the URL.
func (r *run) visit(ctx context.Context, url string) error {
	r.cursor.RecordVisit()
	r.result.Visits++

	rec, err := r.c.Extractor.FetchDetail(ctx, r.session, url)
	if err != nil {
		if ctx.Err() != nil {
			if rec != nil {
				r.result.Records = append(r.result.Records, rec)
			}
			return ctx.Err()
		}

		r.result.Skipped++
		r.logger.Warn("detail failed", "url", url, "err", err)
		r.notify(ProgressEvent{Type: ProgressFailed, Page: r.cursor.Page, URL: url, Records: len(r.result.Records), Error: err})
		return r.recover(ctx, err)
	}

	r.consecutive = 0
	r.result.Records = append(r.result.Records, rec)
	r.notify(ProgressEvent{Type: ProgressRecord, Page: r.cursor.Page, URL: url, Records: len(r.result.Records)})

	if err := r.session.Reset(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("page reset failed", "url", url, "err", err)
		if contestcrawl.IsSessionFailure(err) {
			return r.recover(ctx, err)
		}
	}
	return nil
}

// preventiveRestart replaces a healthy session to bound browser memory
// growth and returns to the listing page.
func (r *run) preventiveRestart(ctx context.Context, page int) error {
	r.logger.Info("preventive restart", "page", page, "visits", r.cursor.Visits)
	r.closeSession()
	if err := r.openSession(ctx); err != nil {
		return err
	}
	r.result.PreventiveRestarts++
	r.notify(ProgressEvent{Type: ProgressRestart, Page: page, Records: len(r.result.Records)})

	if err := r.c.Navigator.Reload(ctx, r.session, page); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("listing reload failed", "page", page, "err", err)
		return r.recover(ctx, err)
	}
	return nil
}

// recover replaces a failed session. It returns EUNSTABLE once
// MaxConsecutiveRestarts restarts have not been followed by a success.
func (r *run) recover(ctx context.Context, cause error) error {
	r.closeSession()

	limit := r.c.MaxConsecutiveRestarts
	if limit <= 0 {
		limit = DefaultMaxConsecutiveRestarts
	}
	if r.consecutive >= limit {
		return contestcrawl.WrapErrorf(cause, contestcrawl.EUNSTABLE,
			"giving up after %d consecutive session restarts", r.consecutive)
	}
	r.consecutive++
	r.result.RecoveryRestarts++

	r.logger.Info("recovery restart", "attempt", r.consecutive, "cause", cause)
	r.notify(ProgressEvent{Type: ProgressRestart, Page: r.cursor.Page, Records: len(r.result.Records), Error: cause})
	return r.openSession(ctx)
}

func (r *run) ensureSession(ctx context.Context) error {
	if r.session != nil && r.session.State() == contestcrawl.SessionOpen {
		return nil
	}
	r.closeSession()
	return r.openSession(ctx)
}

func (r *run) openSession(ctx context.Context) error {
	delays := r.c.OpenRetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	var s contestcrawl.Session
	err := retry(ctx, delays, func() error {
		var err error
		s, err = r.c.Browser.Open(ctx)
		return err
	}, func(attempt int, err error) {
		r.logger.Warn("open session failed", "attempt", attempt, "err", err)
	})
	if err != nil {
		return err
	}

	r.session = s
	return nil
}

func (r *run) closeSession() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.logger.Warn("close session failed", "err", err)
	}
	r.session = nil
}

func (r *run) notify(event ProgressEvent) {
	if r.progress != nil {
		r.progress(event)
	}
}
