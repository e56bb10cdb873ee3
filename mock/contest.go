package mock

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Compile-time interface verification.
var (
	_ contestcrawl.ContestStore = (*ContestStore)(nil)
	_ contestcrawl.ContestTx    = (*ContestTx)(nil)
)

// ContestStore is a mock implementation of contestcrawl.ContestStore.
type ContestStore struct {
	BeginTxFn      func(ctx context.Context) (contestcrawl.ContestTx, error)
	FindContestsFn func(ctx context.Context, filter contestcrawl.ContestFilter) ([]*contestcrawl.Contest, error)
}

func (s *ContestStore) BeginTx(ctx context.Context) (contestcrawl.ContestTx, error) {
	return s.BeginTxFn(ctx)
}

func (s *ContestStore) FindContests(ctx context.Context, filter contestcrawl.ContestFilter) ([]*contestcrawl.Contest, error) {
	return s.FindContestsFn(ctx, filter)
}

// ContestTx is a mock implementation of contestcrawl.ContestTx.
type ContestTx struct {
	LoadExistingKeysFn func(ctx context.Context) (map[contestcrawl.ContestKey]int64, error)
	DeleteExpiredFn    func(ctx context.Context, cutoff civil.Date) (int, error)
	InsertManyFn       func(ctx context.Context, contests []*contestcrawl.Contest) error
	UpdateManyFn       func(ctx context.Context, updates []contestcrawl.ContestUpdate) error
	CommitFn           func() error
	RollbackFn         func() error
}

func (t *ContestTx) LoadExistingKeys(ctx context.Context) (map[contestcrawl.ContestKey]int64, error) {
	return t.LoadExistingKeysFn(ctx)
}

func (t *ContestTx) DeleteExpired(ctx context.Context, cutoff civil.Date) (int, error) {
	return t.DeleteExpiredFn(ctx, cutoff)
}

func (t *ContestTx) InsertMany(ctx context.Context, contests []*contestcrawl.Contest) error {
	return t.InsertManyFn(ctx, contests)
}

func (t *ContestTx) UpdateMany(ctx context.Context, updates []contestcrawl.ContestUpdate) error {
	return t.UpdateManyFn(ctx, updates)
}

func (t *ContestTx) Commit() error {
	return t.CommitFn()
}

func (t *ContestTx) Rollback() error {
	return t.RollbackFn()
}
