package main

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := contestcrawl.ContestFilter{
		Offset: c.Offset,
		Limit:  c.Limit,
	}
	if c.Name != "" {
		filter.Name = &c.Name
	}
	if c.Organization != "" {
		filter.OrganizationName = &c.Organization
	}
	if c.Active {
		today := civil.DateOf(deps.Now().In(deps.Location))
		filter.ActiveOn = &today
	}

	contests, err := deps.Store.FindContests(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contestcrawl.ErrorMessage(err))
		return err
	}

	if c.JSON {
		if contests == nil {
			contests = []*contestcrawl.Contest{}
		}
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(contests)
	}

	if len(contests) == 0 {
		fmt.Fprintln(deps.Stdout, "No contests found. Use 'contestcrawl crawl' to collect some.")
		return nil
	}

	for _, ct := range contests {
		fmt.Fprintf(deps.Stdout, "%d  %s  %s  %s  %s\n", ct.ID, ct.EndDate, ct.Name, ct.OrganizationName, ct.SiteURL)
	}

	return nil
}
