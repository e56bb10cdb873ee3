package main

import (
	"fmt"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/crawl"
	"github.com/fwojciec/contestcrawl/fs"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	progress := func(event crawl.ProgressEvent) {
		if line := crawl.FormatEvent(event); line != "" {
			fmt.Fprintln(deps.Stderr, line)
		}
	}

	result, crawlErr := deps.Crawler.Run(deps.Ctx, progress)
	records := result.Records

	fmt.Fprintf(deps.Stderr, "Crawled %d pages, %d detail pages, %d records (%d failed, %d restarts)\n",
		result.Pages, result.Visits, len(records), result.Skipped,
		result.PreventiveRestarts+result.RecoveryRestarts)

	// A cancelled run cannot be persisted; dump the records instead.
	if c.SkipPersist || deps.Reconciler == nil || deps.Ctx.Err() != nil {
		if err := c.dump(deps, records); err != nil {
			return err
		}
		return crawlErr
	}

	saved, err := deps.Reconciler.Reconcile(deps.Ctx, records)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contestcrawl.ErrorMessage(err))
		if werr := c.dump(deps, records); werr != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", werr)
		}
		return err
	}

	fmt.Fprintf(deps.Stdout, "Saved %d new, %d updated, %d expired removed, %d invalid skipped\n",
		saved.Inserted, saved.Updated, saved.Deleted, saved.Invalid)
	return crawlErr
}

// dump writes records to the --output file, or to stdout as JSON.
func (c *CrawlCmd) dump(deps *Dependencies, records []*contestcrawl.ActivityRecord) error {
	if c.Output == "" {
		fmt.Fprintln(deps.Stderr, "Writing crawled records to stdout")
		return fs.EncodeRecords(deps.Stdout, records)
	}
	if err := fs.WriteRecords(c.Output, records); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stderr, "Wrote %d records to %s\n", len(records), c.Output)
	return nil
}
