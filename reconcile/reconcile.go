// Package reconcile merges a crawl's records into a contest store.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Reconciler applies crawled records to a ContestStore in one transaction.
// It is not safe for concurrent use against the same store.
type Reconciler struct {
	Store  contestcrawl.ContestStore
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Location decides the calendar date used for the expiry sweep.
	// Defaults to time.Local.
	Location *time.Location
}

// Result holds the outcome of a reconciliation.
type Result struct {
	Inserted   int
	Updated    int
	Deleted    int
	Invalid    int
	Duplicates int
}

// Reconcile deletes expired contests, then inserts records with new keys and
// refreshes the dates, views and site URL of records with known keys.
// Invalid records are dropped. A record repeating a key already staged in
// the same batch is dropped as a duplicate.
//
// Any store failure rolls the transaction back and returns EPERSIST.
func (r *Reconciler) Reconcile(ctx context.Context, records []*contestcrawl.ActivityRecord) (_ *Result, err error) {
	tx, err := r.Store.BeginTx(ctx)
	if err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "begin reconciliation")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger().Error("rollback failed", "err", rbErr)
			}
		}
	}()

	result := &Result{}

	today := r.today()
	if result.Deleted, err = tx.DeleteExpired(ctx, today); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "delete contests ending before %s", today)
	}

	existing, err := tx.LoadExistingKeys(ctx)
	if err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "load existing contests")
	}

	var inserts []*contestcrawl.Contest
	var updates []contestcrawl.ContestUpdate
	staged := make(map[contestcrawl.ContestKey]bool, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := rec.Validate(); err != nil {
			result.Invalid++
			r.logger().Warn("skipping invalid record", "url", rec.DetailURL, "err", contestcrawl.ErrorMessage(err))
			continue
		}

		key := rec.Key()
		if staged[key] {
			result.Duplicates++
			r.logger().Debug("skipping duplicate record", "url", rec.DetailURL, "name", key.Name)
			continue
		}
		staged[key] = true

		if id, ok := existing[key]; ok {
			u, err := contestcrawl.NewContestUpdate(id, rec)
			if err != nil {
				return nil, err
			}
			updates = append(updates, u)
			continue
		}

		c, err := contestcrawl.NewContest(rec)
		if err != nil {
			return nil, err
		}
		inserts = append(inserts, c)
	}

	if err = tx.InsertMany(ctx, inserts); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "insert %d contests", len(inserts))
	}
	if err = tx.UpdateMany(ctx, updates); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "update %d contests", len(updates))
	}
	if err = tx.Commit(); err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "commit reconciliation")
	}

	result.Inserted = len(inserts)
	result.Updated = len(updates)

	r.logger().Info("reconciled",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"invalid", result.Invalid,
		"duplicates", result.Duplicates,
	)
	return result, nil
}

// today returns the current calendar date in the configured location.
func (r *Reconciler) today() civil.Date {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now().In(loc))
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
