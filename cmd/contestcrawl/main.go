package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/crawl"
	"github.com/fwojciec/contestcrawl/goquery"
	cchttp "github.com/fwojciec/contestcrawl/http"
	"github.com/fwojciec/contestcrawl/mysql"
	"github.com/fwojciec/contestcrawl/reconcile"
	"github.com/fwojciec/contestcrawl/rod"
	ccslog "github.com/fwojciec/contestcrawl/slog"
	"github.com/fwojciec/contestcrawl/sqlite"
	"github.com/fwojciec/contestcrawl/yaml"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path used when --db is not set.
	DBPath string

	// Getenv reads the MySQL configuration. Defaults to os.Getenv.
	Getenv func(string) string

	// Now is the clock used for the expiry sweep. Defaults to time.Now.
	Now func() time.Time

	// Store and Browser replace the configured implementations when set.
	Store   contestcrawl.ContestStore
	Browser contestcrawl.Browser

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		Getenv: os.Getenv,
		Now:    time.Now,
	}
}

// Close releases the database and fetcher opened by Run.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("contestcrawl"),
		kong.Description("Crawl contest listings and keep a local contest database up to date"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'contestcrawl --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger, err = newLogger(stderr, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	if deps.Location, err = loadLocation(cli.Timezone); err != nil {
		return err
	}
	defer m.Close()

	switch strings.Fields(kongCtx.Command())[0] {
	case "crawl":
		site, err := yaml.Resolve(cli.Crawl.Site)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: --site takes a built-in profile name or a path to a YAML profile")
			return err
		}

		// Open the store first so a bad configuration fails before the crawl.
		if !cli.Crawl.SkipPersist {
			store, err := m.openStore(ctx, cli, deps.Logger, stderr)
			if err != nil {
				return err
			}
			deps.Reconciler = &reconcile.Reconciler{
				Store:    store,
				Logger:   deps.Logger,
				Now:      m.Now,
				Location: deps.Location,
			}
		}

		browser := m.newBrowser(&cli.Crawl, deps.Logger)
		deps.Crawler = &crawl.Crawler{
			Browser: browser,
			Navigator: &crawl.Navigator{
				Site:              site,
				Logger:            deps.Logger,
				NavigationTimeout: cli.Crawl.NavigationTimeout,
			},
			Extractor: &crawl.Extractor{
				Site:              site,
				Pacer:             crawl.NewPacer(cli.Crawl.Throttle),
				Logger:            deps.Logger,
				NavigationTimeout: cli.Crawl.NavigationTimeout,
			},
			Logger:                 deps.Logger,
			MaxPages:               cli.Crawl.MaxPages,
			PerPageLimit:           cli.Crawl.PerPageLimit,
			RestartEvery:           cli.Crawl.RestartEvery,
			MaxConsecutiveRestarts: cli.Crawl.MaxRestarts,
		}

	case "list":
		store, err := m.openStore(ctx, cli, deps.Logger, stderr)
		if err != nil {
			return err
		}
		deps.Store = store
	}

	return kongCtx.Run(deps)
}

// openStore opens the configured contest store.
func (m *Main) openStore(ctx context.Context, cli *CLI, logger *slog.Logger, stderr io.Writer) (contestcrawl.ContestStore, error) {
	if m.Store != nil {
		return m.Store, nil
	}

	var store contestcrawl.ContestStore
	switch cli.Store {
	case "mysql":
		cfg, err := mysql.ConfigFromEnv(m.Getenv)
		if err != nil {
			fmt.Fprintf(stderr, "Hint: set %s, %s, %s and %s\n", mysql.EnvURL, mysql.EnvUsername, mysql.EnvPassword, mysql.EnvDBName)
			return nil, err
		}
		db := mysql.NewDB(cfg)
		if err := db.Open(ctx); err != nil {
			return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "failed to open MySQL database at %s", cfg.Host)
		}
		m.closers = append(m.closers, db)
		store = mysql.NewContestStore(db)

	default:
		path := cli.DB
		if path == "" {
			path = m.DBPath
		}
		if dir := filepath.Dir(path); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			fmt.Fprintln(stderr, "Hint: Set CONTESTCRAWL_DB to use a different database path")
			return nil, contestcrawl.WrapErrorf(err, contestcrawl.EPERSIST, "failed to open database at %q", path)
		}
		m.closers = append(m.closers, db)
		store = sqlite.NewContestStore(db)
	}

	return ccslog.NewLoggingContestStore(store, logger), nil
}

// newBrowser builds the configured browser backend.
func (m *Main) newBrowser(c *CrawlCmd, logger *slog.Logger) contestcrawl.Browser {
	if m.Browser != nil {
		return ccslog.NewLoggingBrowser(m.Browser, logger)
	}

	var b contestcrawl.Browser
	switch c.Backend {
	case "static":
		fetcher := cchttp.NewFetcher(cchttp.WithTimeout(c.NavigationTimeout))
		m.closers = append(m.closers, fetcher)
		b = goquery.NewBrowser(ccslog.NewLoggingFetcher(fetcher, logger))
	default:
		opts := []rod.Option{
			rod.WithHeadless(c.Headless),
			rod.WithNoSandbox(c.NoSandbox),
			rod.WithStealth(!c.NoStealth),
			rod.WithLogger(logger),
		}
		if c.Chrome != "" {
			opts = append(opts, rod.WithBin(c.Chrome))
		}
		b = rod.NewBrowser(opts...)
	}
	return ccslog.NewLoggingBrowser(b, logger)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, contestcrawl.Errorf(contestcrawl.ECONFIG, "invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.ECONFIG, "invalid timezone %q", name)
	}
	return loc, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "contests.db"
	}
	return filepath.Join(home, ".contestcrawl", "contests.db")
}
