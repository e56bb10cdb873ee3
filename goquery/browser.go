// Package goquery provides a static implementation of contestcrawl.Browser.
// Pages are fetched once and parsed with goquery; no JavaScript runs, so it
// suits sites that render their listings on the server.
package goquery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/contestcrawl"
)

// Ensure Browser implements contestcrawl.Browser at compile time.
var _ contestcrawl.Browser = (*Browser)(nil)

// Browser opens static sessions over a shared Fetcher.
type Browser struct {
	fetcher contestcrawl.Fetcher
}

// NewBrowser returns a Browser that loads pages with fetcher.
// The caller keeps ownership of fetcher.
func NewBrowser(fetcher contestcrawl.Fetcher) *Browser {
	return &Browser{fetcher: fetcher}
}

// Open returns a session showing an empty document.
func (b *Browser) Open(ctx context.Context) (contestcrawl.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Session{
		fetcher: b.fetcher,
		doc:     emptyDocument(),
		state:   contestcrawl.SessionOpen,
	}, nil
}

// Ensure Session implements contestcrawl.Session at compile time.
var _ contestcrawl.Session = (*Session)(nil)

// Session holds the parsed document of the last navigation.
type Session struct {
	fetcher contestcrawl.Fetcher

	mu    sync.Mutex
	doc   *goquery.Document
	state contestcrawl.SessionState
}

// Navigate fetches url and parses it. A missing page leaves an empty
// document, so later waits report ENOTFOUND like a rendered error page would.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.usable(); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	html, err := s.fetcher.Fetch(tctx, url)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case contestcrawl.ErrorCode(err) == contestcrawl.ENOTFOUND:
		s.setDocument(emptyDocument())
		return nil
	case contestcrawl.ErrorCode(err) == contestcrawl.ETIMEOUT, errors.Is(err, context.DeadlineExceeded):
		return contestcrawl.WrapErrorf(err, contestcrawl.ETIMEOUT, "navigating to %s", url)
	default:
		s.mu.Lock()
		s.state = contestcrawl.SessionCrashed
		s.mu.Unlock()
		return contestcrawl.WrapErrorf(err, contestcrawl.ECRASHED, "navigating to %s", url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return contestcrawl.WrapErrorf(err, contestcrawl.EINTERNAL, "parsing %s", url)
	}
	s.setDocument(doc)
	return nil
}

// WaitForSelector checks the document once; a static document never changes.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.document().Find(selector).Length() == 0 {
		return contestcrawl.Errorf(contestcrawl.ENOTFOUND, "no element matches %s", selector)
	}
	return nil
}

// QueryAll returns every element matching selector.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]contestcrawl.Element, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sel := s.document().Find(selector)
	out := make([]contestcrawl.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, &Element{sel: node})
	})
	return out, nil
}

// Reset drops the current document.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.setDocument(emptyDocument())
	return nil
}

// State reports the session lifecycle state.
func (s *Session) State() contestcrawl.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close releases the document. Close is safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = contestcrawl.SessionClosed
	s.doc = nil
	return nil
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

func (s *Session) document() *goquery.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return emptyDocument()
	}
	return s.doc
}

func (s *Session) setDocument(doc *goquery.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

func emptyDocument() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
	return doc
}

// Ensure Element implements contestcrawl.Element at compile time.
var _ contestcrawl.Element = (*Element)(nil)

// Element is a single node of a parsed document.
type Element struct {
	sel *goquery.Selection
}

// Text returns the node's text content.
func (e *Element) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

// Attribute returns the raw attribute value, or nil when absent.
func (e *Element) Attribute(ctx context.Context, name string) (*string, error) {
	v, ok := e.sel.Attr(name)
	if !ok {
		return nil, nil //nolint:nilnil
	}
	return &v, nil
}

// Click is not supported by static documents.
func (e *Element) Click(ctx context.Context) error {
	return contestcrawl.Errorf(contestcrawl.ENOTIMPLEMENTED, "click requires a rendering browser")
}
