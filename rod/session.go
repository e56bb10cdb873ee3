package rod

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// blankURL is loaded by Reset to drop the previous document.
const blankURL = "about:blank"

// Ensure Session implements contestcrawl.Session at compile time.
var _ contestcrawl.Session = (*Session)(nil)

// Session owns one Chrome process and its single page.
type Session struct {
	browser          *rod.Browser
	launcher         *launcher.Launcher
	page             *rod.Page
	operationTimeout time.Duration

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

func newSession(browser *rod.Browser, lnchr *launcher.Launcher, page *rod.Page, operationTimeout time.Duration) *Session {
	s := &Session{
		browser:          browser,
		launcher:         lnchr,
		page:             page,
		operationTimeout: operationTimeout,
	}
	s.state.Store(int32(contestcrawl.SessionOpen))

	// The renderer can die while the CDP connection stays up.
	if err := (proto.InspectorEnable{}).Call(page); err == nil {
		go page.EachEvent(func(*proto.InspectorTargetCrashed) {
			s.markCrashed()
		})()
	}
	return s
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.usable(); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := s.page.Context(tctx)
	if err := page.Navigate(url); err != nil {
		return s.fail(ctx, err, contestcrawl.ETIMEOUT, "navigating to %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return s.fail(ctx, err, contestcrawl.ETIMEOUT, "loading %s", url)
	}
	return nil
}

// WaitForSelector polls the page until selector matches.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.usable(); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.page.Context(tctx).Element(selector); err != nil {
		return s.fail(ctx, err, contestcrawl.ENOTFOUND, "waiting for %s", selector)
	}
	return nil
}

// QueryAll returns the elements currently matching selector.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]contestcrawl.Element, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	els, err := s.page.Context(tctx).Elements(selector)
	if err != nil {
		return nil, s.fail(ctx, err, contestcrawl.ETIMEOUT, "querying %s", selector)
	}

	out := make([]contestcrawl.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el, session: s})
	}
	return out, nil
}

// Reset loads a blank document.
func (s *Session) Reset(ctx context.Context) error {
	return s.Navigate(ctx, blankURL, s.operationTimeout)
}

// State reports the session lifecycle state.
func (s *Session) State() contestcrawl.SessionState {
	return contestcrawl.SessionState(s.state.Load())
}

// Close closes the browser, kills the launcher and removes the user data
// directory. Close is safe to call multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		prev := contestcrawl.SessionState(s.state.Swap(int32(contestcrawl.SessionClosed)))
		if s.browser != nil {
			// A crashed browser cannot acknowledge the close request.
			if err := s.browser.Close(); err != nil && prev != contestcrawl.SessionCrashed {
				s.closeErr = contestcrawl.WrapErrorf(err, contestcrawl.EINTERNAL, "closing browser")
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})
	return s.closeErr
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (s *Session) LauncherPID() int {
	if s.launcher == nil {
		return 0
	}
	return s.launcher.PID()
}

func (s *Session) usable() error {
	switch s.State() {
	case contestcrawl.SessionClosed:
		return contestcrawl.Errorf(contestcrawl.ECRASHED, "session closed")
	case contestcrawl.SessionCrashed:
		return contestcrawl.Errorf(contestcrawl.ECRASHED, "session crashed")
	}
	return nil
}

func (s *Session) markCrashed() {
	s.state.CompareAndSwap(int32(contestcrawl.SessionOpen), int32(contestcrawl.SessionCrashed))
}

// fail classifies err. Cancellation of the caller's context is returned
// as is, a script exception (a selector the page cannot parse) is EINVALID,
// an expired operation deadline becomes code, and anything else means the
// browser stopped responding.
func (s *Session) fail(ctx context.Context, err error, code, format string, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isEvalError(err) {
		return contestcrawl.WrapErrorf(err, contestcrawl.EINVALID, format, args...)
	}
	if errors.Is(err, context.DeadlineExceeded) && s.State() != contestcrawl.SessionCrashed {
		return contestcrawl.WrapErrorf(err, code, format, args...)
	}
	s.markCrashed()
	return contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, format, args...)
}

// elementFail classifies element errors. A failing element read does not
// by itself mean the browser is gone, so only deadlines and a crashed
// renderer are session failures.
func (s *Session) elementFail(ctx context.Context, err error, format string, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.State() == contestcrawl.SessionCrashed {
		return contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, format, args...)
	}
	if isEvalError(err) {
		return contestcrawl.WrapErrorf(err, contestcrawl.EINVALID, format, args...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contestcrawl.WrapErrorf(err, contestcrawl.ETIMEOUT, format, args...)
	}
	return contestcrawl.WrapErrorf(err, contestcrawl.EINTERNAL, format, args...)
}

func isEvalError(err error) bool {
	var evalErr *rod.EvalError
	return errors.As(err, &evalErr)
}

// Element wraps a rod element; every call is bounded by the session's
// operation timeout.
type Element struct {
	el      *rod.Element
	session *Session
}

// Ensure Element implements contestcrawl.Element at compile time.
var _ contestcrawl.Element = (*Element)(nil)

// Text returns the element's rendered text.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.session.usable(); err != nil {
		return "", err
	}
	tctx, cancel := context.WithTimeout(ctx, e.session.operationTimeout)
	defer cancel()

	text, err := e.el.Context(tctx).Text()
	if err != nil {
		return "", e.session.elementFail(ctx, err, "reading text")
	}
	return text, nil
}

// Attribute returns the named attribute or nil when absent.
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	if err := e.session.usable(); err != nil {
		return nil, err
	}
	tctx, cancel := context.WithTimeout(ctx, e.session.operationTimeout)
	defer cancel()

	v, err := e.el.Context(tctx).Attribute(name)
	if err != nil {
		return nil, e.session.elementFail(ctx, err, "reading attribute %s", name)
	}
	return v, nil
}

// Click left-clicks the element once.
func (e *Element) Click(ctx context.Context) error {
	if err := e.session.usable(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, e.session.operationTimeout)
	defer cancel()

	if err := e.el.Context(tctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return e.session.elementFail(ctx, err, "clicking")
	}
	return nil
}
