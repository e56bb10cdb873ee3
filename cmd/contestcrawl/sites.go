package main

import (
	"fmt"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/yaml"
)

// Run executes the sites command.
func (c *SitesCmd) Run(deps *Dependencies) error {
	if c.Name == "" {
		for _, name := range yaml.BuiltinSites() {
			if name == yaml.DefaultSiteName {
				fmt.Fprintf(deps.Stdout, "%s (default)\n", name)
				continue
			}
			fmt.Fprintln(deps.Stdout, name)
		}
		return nil
	}

	site, err := yaml.Resolve(c.Name)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", contestcrawl.ErrorMessage(err))
		return err
	}
	data, err := yaml.MarshalSite(site)
	if err != nil {
		return err
	}
	_, err = deps.Stdout.Write(data)
	return err
}
