package sqlite

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

const contestColumns = `id, name, organization_name, categories, start_date, end_date, image_url, site_url,
	detail_url, award_scale, benefits, additional_benefits, target_participants, company_type, views,
	created_at, updated_at`

// ContestStore implements contestcrawl.ContestStore using SQLite.
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
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []*contestcrawl.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		contests = append(contests, c)
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

func (t *contestTx) InsertMany(ctx context.Context, contests []*contestcrawl.Contest) error {
	if len(contests) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO contests (name, organization_name, categories, start_date, end_date, image_url, site_url,
			detail_url, award_scale, benefits, additional_benefits, target_participants, company_type, views,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Truncate(time.Second)
	for _, c := range contests {
		result, err := stmt.ExecContext(ctx,
			c.Name, c.OrganizationName, joinCategories(c.Categories), c.StartDate.String(), c.EndDate.String(),
			c.ImageURL, c.SiteURL, c.DetailURL, c.AwardScale, c.Benefits, c.AdditionalBenefits,
			c.TargetParticipants, c.CompanyType, c.Views,
			now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert %q (%s): %w", c.Name, c.OrganizationName, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = id
		c.CreatedAt = now
		c.UpdatedAt = now
	}
	return nil
}

func (t *contestTx) UpdateMany(ctx context.Context, updates []contestcrawl.ContestUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `
		UPDATE contests SET start_date = ?, end_date = ?, views = ?, site_url = ?, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, u := range updates {
		result, err := stmt.ExecContext(ctx, u.StartDate.String(), u.EndDate.String(), u.Views, u.SiteURL, now, u.ID)
		if err != nil {
			return fmt.Errorf("update contest %d: %w", u.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return contestcrawl.Errorf(contestcrawl.ENOTFOUND, "contest %d not found", u.ID)
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

// scanContest scans a single contest row selected with contestColumns.
func scanContest(rows *sql.Rows) (*contestcrawl.Contest, error) {
	var c contestcrawl.Contest
	var categories, startDate, endDate, createdAt, updatedAt string

	if err := rows.Scan(&c.ID, &c.Name, &c.OrganizationName, &categories, &startDate, &endDate,
		&c.ImageURL, &c.SiteURL, &c.DetailURL, &c.AwardScale, &c.Benefits, &c.AdditionalBenefits,
		&c.TargetParticipants, &c.CompanyType, &c.Views, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	c.Categories = splitCategories(categories)
	if c.StartDate, err = parseDate(startDate, "start_date"); err != nil {
		return nil, err
	}
	if c.EndDate, err = parseDate(endDate, "end_date"); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &c, nil
}
