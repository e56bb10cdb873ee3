package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Compile-time interface verification.
var (
	_ contestcrawl.ContestStore = (*ContestStore)(nil)
	_ contestcrawl.ContestTx    = (*contestTx)(nil)
)

// insertBatchSize bounds the placeholders of one multi-row INSERT.
const insertBatchSize = 100

const contestColumns = `id, name, organization_name, categories, start_date, end_date, image_url, site_url,
	award_scale, benefits, additional_benefits, target_participants, company_type, views`

// ContestStore implements contestcrawl.ContestStore using MySQL.
// The shared table has no detail URL or timestamp columns; those fields
// are left zero on read.
type ContestStore struct {
	db *DB
}

// NewContestStore creates a new ContestStore.
func NewContestStore(db *DB) *ContestStore {
	return &ContestStore{db: db}
}

// BeginTx starts a reconciliation transaction.
func (s *ContestStore) BeginTx(ctx context.Context) (contestcrawl.ContestTx, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &contestTx{tx: tx}, nil
}

// FindContests retrieves contests matching the filter ordered by end date.
func (s *ContestStore) FindContests(ctx context.Context, filter contestcrawl.ContestFilter) ([]*contestcrawl.Contest, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + contestColumns + " FROM contests WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Name != nil {
		query.WriteString(" AND name = ?")
		args = append(args, *filter.Name)
	}
	if filter.OrganizationName != nil {
		query.WriteString(" AND organization_name = ?")
		args = append(args, *filter.OrganizationName)
	}
	if filter.ActiveOn != nil {
		query.WriteString(" AND end_date >= ?")
		args = append(args, filter.ActiveOn.String())
	}

	query.WriteString(" ORDER BY end_date ASC, id ASC")
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			// MySQL has no OFFSET without LIMIT.
			limit = 1<<31 - 1
		}
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []*contestcrawl.Contest
	for rows.Next() {
		var c contestcrawl.Contest
		var categories string
		var startDate, endDate time.Time
		if err := rows.Scan(&c.ID, &c.Name, &c.OrganizationName, &categories, &startDate, &endDate,
			&c.ImageURL, &c.SiteURL, &c.AwardScale, &c.Benefits, &c.AdditionalBenefits,
			&c.TargetParticipants, &c.CompanyType, &c.Views); err != nil {
			return nil, err
		}
		if categories != "" {
			c.Categories = strings.Split(categories, ",")
		}
		c.StartDate = civil.DateOf(startDate)
		c.EndDate = civil.DateOf(endDate)
		contests = append(contests, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contests, nil
}

type contestTx struct {
	tx *sql.Tx
}

func (t *contestTx) LoadExistingKeys(ctx context.Context) (map[contestcrawl.ContestKey]int64, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT id, name, organization_name FROM contests")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[contestcrawl.ContestKey]int64)
	for rows.Next() {
		var id int64
		var key contestcrawl.ContestKey
		if err := rows.Scan(&id, &key.Name, &key.OrganizationName); err != nil {
			return nil, err
		}
		keys[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (t *contestTx) DeleteExpired(ctx context.Context, cutoff civil.Date) (int, error) {
	result, err := t.tx.ExecContext(ctx, "DELETE FROM contests WHERE end_date < ?", cutoff.String())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// InsertMany inserts contests with multi-row INSERT statements and reads
// the assigned IDs back by key, so it does not depend on the server's
// auto-increment lock mode.
func (t *contestTx) InsertMany(ctx context.Context, contests []*contestcrawl.Contest) error {
	for start := 0; start < len(contests); start += insertBatchSize {
		batch := contests[start:min(start+insertBatchSize, len(contests))]
		if err := t.insertBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (t *contestTx) insertBatch(ctx context.Context, batch []*contestcrawl.Contest) error {
	var query strings.Builder
	args := make([]any, 0, len(batch)*13)

	query.WriteString(`INSERT INTO contests (categories, end_date, image_url, name, organization_name, site_url,
		start_date, award_scale, benefits, additional_benefits, target_participants, company_type, views) VALUES `)
	for i, c := range batch {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, strings.Join(c.Categories, ","), c.EndDate.String(), c.ImageURL, c.Name,
			c.OrganizationName, c.SiteURL, c.StartDate.String(), c.AwardScale, c.Benefits,
			c.AdditionalBenefits, c.TargetParticipants, c.CompanyType, c.Views)
	}

	if _, err := t.tx.ExecContext(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("insert %d contests: %w", len(batch), err)
	}
	return t.assignIDs(ctx, batch)
}

func (t *contestTx) assignIDs(ctx context.Context, batch []*contestcrawl.Contest) error {
	var query strings.Builder
	args := make([]any, 0, len(batch)*2)

	query.WriteString("SELECT id, name, organization_name FROM contests WHERE (name, organization_name) IN (")
	for i, c := range batch {
		if i > 0 {
			query.WriteString(", ")
		}
		query.WriteString("(?, ?)")
		args = append(args, c.Name, c.OrganizationName)
	}
	query.WriteString(")")

	rows, err := t.tx.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("read ids of %d contests: %w", len(batch), err)
	}
	defer rows.Close()

	ids := make(map[contestcrawl.ContestKey]int64, len(batch))
	for rows.Next() {
		var id int64
		var key contestcrawl.ContestKey
		if err := rows.Scan(&id, &key.Name, &key.OrganizationName); err != nil {
			return err
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range batch {
		id, ok := ids[c.Key()]
		if !ok {
			return fmt.Errorf("inserted contest %q by %q not found", c.Name, c.OrganizationName)
		}
		c.ID = id
	}
	return nil
}

func (t *contestTx) UpdateMany(ctx context.Context, updates []contestcrawl.ContestUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
		UPDATE contests SET start_date = ?, end_date = ?, views = ?, site_url = ? WHERE id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.StartDate.String(), u.EndDate.String(), u.Views, u.SiteURL, u.ID); err != nil {
			return fmt.Errorf("update contest %d: %w", u.ID, err)
		}
	}
	return nil
}

func (t *contestTx) Commit() error {
	return t.tx.Commit()
}

func (t *contestTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
