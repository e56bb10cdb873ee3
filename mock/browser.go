package mock

import (
	"context"
	"time"

	"github.com/fwojciec/contestcrawl"
)

// Compile-time interface verification.
var (
	_ contestcrawl.Browser = (*Browser)(nil)
	_ contestcrawl.Session = (*Session)(nil)
	_ contestcrawl.Element = (*Element)(nil)
)

// Browser is a mock implementation of contestcrawl.Browser.
type Browser struct {
	OpenFn func(ctx context.Context) (contestcrawl.Session, error)
}

func (b *Browser) Open(ctx context.Context) (contestcrawl.Session, error) {
	return b.OpenFn(ctx)
}

// Session is a mock implementation of contestcrawl.Session.
type Session struct {
	NavigateFn        func(ctx context.Context, url string, timeout time.Duration) error
	WaitForSelectorFn func(ctx context.Context, selector string, timeout time.Duration) error
	QueryAllFn        func(ctx context.Context, selector string) ([]contestcrawl.Element, error)
	ResetFn           func(ctx context.Context) error
	StateFn           func() contestcrawl.SessionState
	CloseFn           func() error
}

func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.NavigateFn(ctx, url, timeout)
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return s.WaitForSelectorFn(ctx, selector, timeout)
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]contestcrawl.Element, error) {
	return s.QueryAllFn(ctx, selector)
}

func (s *Session) Reset(ctx context.Context) error {
	return s.ResetFn(ctx)
}

func (s *Session) State() contestcrawl.SessionState {
	return s.StateFn()
}

func (s *Session) Close() error {
	return s.CloseFn()
}

// Element is a mock implementation of contestcrawl.Element.
type Element struct {
	TextFn      func(ctx context.Context) (string, error)
	AttributeFn func(ctx context.Context, name string) (*string, error)
	ClickFn     func(ctx context.Context) error
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.TextFn(ctx)
}

func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	return e.AttributeFn(ctx, name)
}

func (e *Element) Click(ctx context.Context) error {
	return e.ClickFn(ctx)
}
