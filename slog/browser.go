package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/contestcrawl"
)

// Compile-time interface verification.
var (
	_ contestcrawl.Browser = (*LoggingBrowser)(nil)
	_ contestcrawl.Session = (*LoggingSession)(nil)
)

// LoggingBrowser wraps a Browser so that every session it opens logs its
// operations.
type LoggingBrowser struct {
	next   contestcrawl.Browser
	logger *slog.Logger
	opened int
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next contestcrawl.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// Open logs the launch and wraps the returned session.
func (b *LoggingBrowser) Open(ctx context.Context) (_ contestcrawl.Session, err error) {
	b.opened++
	id := b.opened
	defer func(begin time.Time) {
		b.logger.Info("session open",
			"session", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	s, err := b.next.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &LoggingSession{next: s, logger: b.logger.With("session", id)}, nil
}

// LoggingSession wraps a Session with debug logging.
type LoggingSession struct {
	next   contestcrawl.Session
	logger *slog.Logger
}

// NewLoggingSession creates a new LoggingSession.
func NewLoggingSession(next contestcrawl.Session, logger *slog.Logger) *LoggingSession {
	return &LoggingSession{next: next, logger: logger}
}

// Navigate logs the URL and delegates to the wrapped session.
func (s *LoggingSession) Navigate(ctx context.Context, url string, timeout time.Duration) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("navigate",
			"url", url,
			"timeout", timeout,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Navigate(ctx, url, timeout)
}

// WaitForSelector logs the selector and delegates to the wrapped session.
func (s *LoggingSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("wait for selector",
			"selector", selector,
			"timeout", timeout,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.WaitForSelector(ctx, selector, timeout)
}

// QueryAll logs the selector and match count.
func (s *LoggingSession) QueryAll(ctx context.Context, selector string) (els []contestcrawl.Element, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("query",
			"selector", selector,
			"count", len(els),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.QueryAll(ctx, selector)
}

// Reset delegates to the wrapped session.
func (s *LoggingSession) Reset(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("reset",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Reset(ctx)
}

// State delegates to the wrapped session.
func (s *LoggingSession) State() contestcrawl.SessionState {
	return s.next.State()
}

// Close logs the final state and delegates to the wrapped session.
func (s *LoggingSession) Close() (err error) {
	state := s.next.State()
	defer func(begin time.Time) {
		s.logger.Info("session close",
			"state", state.String(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Close()
}
