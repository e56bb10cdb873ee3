package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/crawl"
	"github.com/fwojciec/contestcrawl/reconcile"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time

	Store      contestcrawl.ContestStore
	Crawler    *crawl.Crawler
	Reconciler *reconcile.Reconciler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" env:"LOG_FORMAT" default:"text" enum:"text,json" help:"Log format (text, json)"`
	Store     string `env:"CONTESTCRAWL_STORE" default:"sqlite" enum:"sqlite,mysql" help:"Contest store (sqlite, mysql)"`
	DB        string `name:"db" env:"CONTESTCRAWL_DB" help:"SQLite database path (default ~/.contestcrawl/contests.db)"`
	Timezone  string `env:"CONTESTCRAWL_TZ" default:"Local" help:"Time zone deciding which contests have expired"`

	Crawl CrawlCmd `cmd:"" help:"Crawl listings and reconcile them into the store"`
	List  ListCmd  `cmd:"" help:"List stored contests"`
	Sites SitesCmd `cmd:"" help:"List built-in site profiles or print one"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	MaxPages          int           `env:"LINKAREER_PAGE_LIMIT" default:"100" help:"Maximum number of listing pages"`
	PerPageLimit      int           `env:"LINKAREER_PER_PAGE_LIMIT" default:"0" help:"Detail pages visited per listing page (0 for all)"`
	Headless          bool          `env:"LINKAREER_HEADLESS" default:"true" negatable:"" help:"Run Chrome headless"`
	Throttle          time.Duration `env:"CONTESTCRAWL_THROTTLE" default:"1s" help:"Pause after each detail page"`
	RestartEvery      int           `env:"CONTESTCRAWL_RESTART_EVERY" default:"10" help:"Restart the browser after this many detail pages (0 to disable)"`
	MaxRestarts       int           `env:"CONTESTCRAWL_MAX_RESTARTS" default:"3" help:"Consecutive recovery restarts before giving up"`
	NavigationTimeout time.Duration `env:"CONTESTCRAWL_NAV_TIMEOUT" default:"30s" help:"Page load timeout"`
	SkipPersist       bool          `env:"SKIP_DB_WRITE" help:"Print records as JSON instead of saving them"`
	Output            string        `short:"o" type:"path" env:"CONTESTCRAWL_OUTPUT" help:"Write unsaved records to this JSON file instead of stdout"`
	Backend           string        `env:"CONTESTCRAWL_BACKEND" default:"rod" enum:"rod,static" help:"Browser backend (rod, static)"`
	Site              string        `env:"CONTESTCRAWL_SITE" help:"Built-in site profile name or path to a YAML profile"`
	NoSandbox         bool          `env:"CONTESTCRAWL_NO_SANDBOX" help:"Disable the Chrome sandbox"`
	NoStealth         bool          `env:"CONTESTCRAWL_NO_STEALTH" help:"Do not inject the stealth script"`
	Chrome            string        `env:"CONTESTCRAWL_CHROME" help:"Chrome binary (default: find or download)"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Name         string `help:"Only contests with this exact name"`
	Organization string `help:"Only contests by this organization"`
	Active       bool   `help:"Only contests that have not ended"`
	Limit        int    `short:"n" default:"50" help:"Maximum number of contests"`
	Offset       int    `help:"Number of contests to skip"`
	JSON         bool   `name:"json" help:"Print contests as JSON"`
}

// SitesCmd is the "sites" subcommand.
type SitesCmd struct {
	Name string `arg:"" optional:"" help:"Profile name or YAML path to print"`
}
