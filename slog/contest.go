package slog

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Compile-time interface verification.
var (
	_ contestcrawl.ContestStore = (*LoggingContestStore)(nil)
	_ contestcrawl.ContestTx    = (*LoggingContestTx)(nil)
)

// LoggingContestStore wraps a ContestStore with logging.
type LoggingContestStore struct {
	next   contestcrawl.ContestStore
	logger *slog.Logger
}

// NewLoggingContestStore creates a new LoggingContestStore.
func NewLoggingContestStore(next contestcrawl.ContestStore, logger *slog.Logger) *LoggingContestStore {
	return &LoggingContestStore{next: next, logger: logger}
}

// BeginTx wraps the returned transaction.
func (s *LoggingContestStore) BeginTx(ctx context.Context) (contestcrawl.ContestTx, error) {
	tx, err := s.next.BeginTx(ctx)
	if err != nil {
		s.logger.Error("begin transaction", "err", err)
		return nil, err
	}
	return &LoggingContestTx{next: tx, logger: s.logger}, nil
}

// FindContests logs the filter and result count.
func (s *LoggingContestStore) FindContests(ctx context.Context, filter contestcrawl.ContestFilter) (contests []*contestcrawl.Contest, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find contests",
			"offset", filter.Offset,
			"limit", filter.Limit,
			"count", len(contests),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindContests(ctx, filter)
}

// LoggingContestTx wraps a ContestTx with logging.
type LoggingContestTx struct {
	next   contestcrawl.ContestTx
	logger *slog.Logger
}

// LoadExistingKeys logs how many keys are persisted.
func (t *LoggingContestTx) LoadExistingKeys(ctx context.Context) (keys map[contestcrawl.ContestKey]int64, err error) {
	defer func(begin time.Time) {
		t.logger.Debug("load existing keys",
			"count", len(keys),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.LoadExistingKeys(ctx)
}

// DeleteExpired logs the cutoff and deleted count.
func (t *LoggingContestTx) DeleteExpired(ctx context.Context, cutoff civil.Date) (n int, err error) {
	defer func(begin time.Time) {
		t.logger.Info("delete expired",
			"cutoff", cutoff.String(),
			"count", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.DeleteExpired(ctx, cutoff)
}

// InsertMany logs the batch size.
func (t *LoggingContestTx) InsertMany(ctx context.Context, contests []*contestcrawl.Contest) (err error) {
	defer func(begin time.Time) {
		t.logger.Info("insert contests",
			"count", len(contests),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.InsertMany(ctx, contests)
}

// UpdateMany logs the batch size.
func (t *LoggingContestTx) UpdateMany(ctx context.Context, updates []contestcrawl.ContestUpdate) (err error) {
	defer func(begin time.Time) {
		t.logger.Info("update contests",
			"count", len(updates),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.UpdateMany(ctx, updates)
}

// Commit logs the outcome.
func (t *LoggingContestTx) Commit() (err error) {
	defer func() {
		t.logger.Debug("commit", "err", err)
	}()
	return t.next.Commit()
}

// Rollback delegates to the wrapped transaction.
func (t *LoggingContestTx) Rollback() error {
	return t.next.Rollback()
}
