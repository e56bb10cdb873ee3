package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
	main "github.com/fwojciec/contestcrawl/cmd/contestcrawl"
	"github.com/fwojciec/contestcrawl/crawl"
	"github.com/fwojciec/contestcrawl/goquery"
	"github.com/fwojciec/contestcrawl/mock"
	"github.com/fwojciec/contestcrawl/reconcile"
	"github.com/fwojciec/contestcrawl/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCrawler(t *testing.T) *crawl.Crawler {
	t.Helper()
	site, err := yaml.ParseSite([]byte(siteYAML))
	require.NoError(t, err)
	return &crawl.Crawler{
		Browser:   goquery.NewBrowser(contestSite()),
		Navigator: &crawl.Navigator{Site: site, StabilizeInterval: time.Millisecond},
		Extractor: &crawl.Extractor{Site: site},
		MaxPages:  3,
	}
}

func acceptingTx(inserted *[]*contestcrawl.Contest) *mock.ContestTx {
	return &mock.ContestTx{
		DeleteExpiredFn: func(context.Context, civil.Date) (int, error) { return 1, nil },
		LoadExistingKeysFn: func(context.Context) (map[contestcrawl.ContestKey]int64, error) {
			return map[contestcrawl.ContestKey]int64{}, nil
		},
		InsertManyFn: func(_ context.Context, contests []*contestcrawl.Contest) error {
			*inserted = append(*inserted, contests...)
			return nil
		},
		UpdateManyFn: func(context.Context, []contestcrawl.ContestUpdate) error { return nil },
		CommitFn:     func() error { return nil },
		RollbackFn:   func() error { return nil },
	}
}

func TestCrawlCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("reconciles records and prints a summary", func(t *testing.T) {
		t.Parallel()

		var inserted []*contestcrawl.Contest
		tx := acceptingTx(&inserted)
		store := &mock.ContestStore{
			BeginTxFn: func(context.Context) (contestcrawl.ContestTx, error) { return tx, nil },
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:     context.Background(),
			Stdout:  stdout,
			Stderr:  stderr,
			Crawler: newCrawler(t),
			Reconciler: &reconcile.Reconciler{
				Store:    store,
				Now:      func() time.Time { return time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC) },
				Location: time.UTC,
			},
		}

		err := (&main.CrawlCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, "Saved 2 new, 0 updated, 1 expired removed, 0 invalid skipped\n", stdout.String())
		assert.Contains(t, stderr.String(), "Crawled 2 pages")
		require.Len(t, inserted, 2)
		assert.Equal(t, "AI 공모전", inserted[0].Name)
	})

	t.Run("prints records as JSON when persistence is skipped", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:     context.Background(),
			Stdout:  stdout,
			Stderr:  &bytes.Buffer{},
			Crawler: newCrawler(t),
		}

		err := (&main.CrawlCmd{SkipPersist: true}).Run(deps)

		require.NoError(t, err)
		var records []*contestcrawl.ActivityRecord
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &records))
		require.Len(t, records, 2)
		assert.Equal(t, "https://contests.example.com/activity/2", records[1].DetailURL)
		assert.Equal(t, "Studio", *records[1].OrganizationName)
	})

	t.Run("dumps records when the store fails", func(t *testing.T) {
		t.Parallel()

		var rolledBack bool
		var inserted []*contestcrawl.Contest
		tx := acceptingTx(&inserted)
		tx.InsertManyFn = func(context.Context, []*contestcrawl.Contest) error {
			return errors.New("disk I/O error")
		}
		tx.RollbackFn = func() error {
			rolledBack = true
			return nil
		}
		store := &mock.ContestStore{
			BeginTxFn: func(context.Context) (contestcrawl.ContestTx, error) { return tx, nil },
		}

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:        context.Background(),
			Stdout:     stdout,
			Stderr:     stderr,
			Crawler:    newCrawler(t),
			Reconciler: &reconcile.Reconciler{Store: store, Location: time.UTC},
		}

		err := (&main.CrawlCmd{}).Run(deps)

		assert.Equal(t, contestcrawl.EPERSIST, contestcrawl.ErrorCode(err))
		assert.True(t, rolledBack)
		assert.Contains(t, stderr.String(), "Writing crawled records to stdout")

		var records []*contestcrawl.ActivityRecord
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &records))
		assert.Len(t, records, 2)
	})

	t.Run("writes records to the output file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "contests.json")
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:     context.Background(),
			Stdout:  stdout,
			Stderr:  stderr,
			Crawler: newCrawler(t),
		}

		require.NoError(t, (&main.CrawlCmd{SkipPersist: true, Output: path}).Run(deps))

		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Wrote 2 records to "+path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var records []*contestcrawl.ActivityRecord
		require.NoError(t, json.Unmarshal(data, &records))
		assert.Len(t, records, 2)
	})

	t.Run("prints an empty array when nothing was crawled", func(t *testing.T) {
		t.Parallel()

		site, err := yaml.ParseSite([]byte(siteYAML))
		require.NoError(t, err)
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: stdout,
			Stderr: &bytes.Buffer{},
			Crawler: &crawl.Crawler{
				Browser: goquery.NewBrowser(&mock.Fetcher{
					FetchFn: func(_ context.Context, url string) (string, error) {
						return "", contestcrawl.Errorf(contestcrawl.ENOTFOUND, "HTTP 404 for %s", url)
					},
				}),
				Navigator: &crawl.Navigator{Site: site},
				Extractor: &crawl.Extractor{Site: site},
			},
		}

		require.NoError(t, (&main.CrawlCmd{SkipPersist: true}).Run(deps))
		assert.Equal(t, "[]\n", stdout.String())
	})
}
