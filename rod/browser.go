package rod

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultOperationTimeout bounds element reads and clicks.
const DefaultOperationTimeout = 5 * time.Second

// Ensure Browser implements contestcrawl.Browser at compile time.
var _ contestcrawl.Browser = (*Browser)(nil)

// Browser launches one Chrome process per session. Chrome accumulates memory
// over a long crawl and the baseline never returns to initial levels, so
// sessions are cheap to replace and the crawler replaces them often.
type Browser struct {
	headless         bool
	noSandbox        bool
	stealth          bool
	images           bool
	bin              string
	operationTimeout time.Duration
	logger           *slog.Logger
}

// Option configures a Browser.
type Option func(*Browser)

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(enable bool) Option {
	return func(b *Browser) {
		b.headless = enable
	}
}

// WithNoSandbox disables the Chrome sandbox, required in most containers.
func WithNoSandbox(enable bool) Option {
	return func(b *Browser) {
		b.noSandbox = enable
	}
}

// WithStealth toggles injection of the stealth evasion script into new pages.
// Defaults to true.
func WithStealth(enable bool) Option {
	return func(b *Browser) {
		b.stealth = enable
	}
}

// WithImages toggles image loading. Defaults to false.
func WithImages(enable bool) Option {
	return func(b *Browser) {
		b.images = enable
	}
}

// WithBin sets the Chrome binary. By default rod finds or downloads one.
func WithBin(path string) Option {
	return func(b *Browser) {
		b.bin = path
	}
}

// WithOperationTimeout bounds element reads and clicks.
func WithOperationTimeout(d time.Duration) Option {
	return func(b *Browser) {
		b.operationTimeout = d
	}
}

// WithLogger routes launcher output to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) {
		b.logger = logger
	}
}

// NewBrowser returns a Browser. No process is started until Open.
func NewBrowser(opts ...Option) *Browser {
	b := &Browser{
		headless:         true,
		stealth:          true,
		operationTimeout: DefaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open launches Chrome, connects to it and opens a blank page.
func (b *Browser) Open(ctx context.Context) (contestcrawl.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lnchr := b.launcher(ctx)
	u, err := lnchr.Launch()
	if err != nil {
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, "launching browser")
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		lnchr.Cleanup()
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, "connecting to browser")
	}

	page, err := b.newPage(browser)
	if err != nil {
		_ = browser.Close()
		lnchr.Kill()
		lnchr.Cleanup()
		return nil, contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, "opening page")
	}

	return newSession(browser, lnchr, page, b.operationTimeout), nil
}

// launcher builds the launcher with the stability flags used for long crawls.
func (b *Browser) launcher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("disable-gpu").
		Set("disable-software-rasterizer").
		Set("disable-features", "CalculateNativeWinOcclusion").
		Set("window-size", "1200,900").
		Leakless(true).
		Headless(b.headless).
		NoSandbox(b.noSandbox)
	if !b.images {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}
	if b.bin != "" {
		l = l.Bin(b.bin)
	}
	if b.logger != nil {
		l = l.Logger(newLogWriter(b.logger))
	} else {
		l = l.Logger(io.Discard)
	}
	return l
}

func (b *Browser) newPage(browser *rod.Browser) (*rod.Page, error) {
	if b.stealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{})
}
