//go:build integration

package mysql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the server described by RDS_* variables and
// skips the test when none is configured.
func setupTestDB(t *testing.T) *mysql.DB {
	t.Helper()

	cfg, err := mysql.ConfigFromEnv(os.Getenv)
	if err != nil {
		t.Skipf("MySQL not configured: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := mysql.NewDB(cfg)
	require.NoError(t, db.Open(ctx))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestContestStore_Integration(t *testing.T) {
	db := setupTestDB(t)
	store := mysql.NewContestStore(db)
	ctx := context.Background()

	org := fmt.Sprintf("integration-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DELETE FROM contests WHERE organization_name = ?", org)
	})

	end := civil.DateOf(time.Now()).AddDays(30)
	contests := []*contestcrawl.Contest{
		{Name: "alpha", OrganizationName: org, Categories: []string{"IT", "SW"}, StartDate: end.AddDays(-10), EndDate: end, ImageURL: "i", SiteURL: "s", Views: 1},
		{Name: "beta", OrganizationName: org, StartDate: end.AddDays(-10), EndDate: end, ImageURL: "i", SiteURL: "s"},
	}

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertMany(ctx, contests))
	require.NoError(t, tx.Commit())
	assert.NotZero(t, contests[0].ID)
	assert.NotEqual(t, contests[0].ID, contests[1].ID)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	keys, err := tx.LoadExistingKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, contests[0].ID, keys[contestcrawl.ContestKey{Name: "alpha", OrganizationName: org}])
	assert.Equal(t, contests[1].ID, keys[contestcrawl.ContestKey{Name: "beta", OrganizationName: org}])

	require.NoError(t, tx.UpdateMany(ctx, []contestcrawl.ContestUpdate{{
		ID: contests[0].ID, StartDate: end.AddDays(-10), EndDate: end.AddDays(5), Views: 50, SiteURL: "s2",
	}}))
	require.NoError(t, tx.Commit())

	found, err := store.FindContests(ctx, contestcrawl.ContestFilter{Name: &contests[0].Name, OrganizationName: &org})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, end.AddDays(5), found[0].EndDate)
	assert.Equal(t, 50, found[0].Views)
	assert.Equal(t, []string{"IT", "SW"}, found[0].Categories)
}

func TestContestStore_CaseDistinctKeys(t *testing.T) {
	db := setupTestDB(t)
	store := mysql.NewContestStore(db)
	ctx := context.Background()

	org := fmt.Sprintf("integration-case-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DELETE FROM contests WHERE organization_name = ?", org)
	})

	end := civil.DateOf(time.Now()).AddDays(30)
	lower := &contestcrawl.Contest{Name: "alpha", OrganizationName: org, StartDate: end, EndDate: end, ImageURL: "i", SiteURL: "s"}
	upper := &contestcrawl.Contest{Name: "Alpha", OrganizationName: org, StartDate: end, EndDate: end, ImageURL: "i", SiteURL: "s"}

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertMany(ctx, []*contestcrawl.Contest{lower}))
	require.NoError(t, tx.Commit())

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertMany(ctx, []*contestcrawl.Contest{upper}))
	require.NoError(t, tx.Commit())
	assert.NotEqual(t, lower.ID, upper.ID)

	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	keys, err := tx.LoadExistingKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, lower.ID, keys[lower.Key()])
	assert.Equal(t, upper.ID, keys[upper.Key()])
}
