package contestcrawl

import (
	"context"
	"time"
)

// SessionState describes the lifecycle of a browser session.
type SessionState int

// Session lifecycle states.
const (
	SessionClosed SessionState = iota
	SessionOpen
	SessionCrashed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionCrashed:
		return "crashed"
	default:
		return "closed"
	}
}

// Browser opens browser sessions.
type Browser interface {
	// Open starts a new session with a single blank page.
	// The caller owns the session and must Close it.
	Open(ctx context.Context) (Session, error)
}

// Session owns one browser instance and its page.
// A Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url. Returns ETIMEOUT if the page did not load within
	// timeout and ECRASHED if the browser stopped responding.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitForSelector blocks until an element matching selector exists.
	// Returns ENOTFOUND if none appears within timeout.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// QueryAll returns every element currently matching selector without waiting.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Reset navigates the page to a blank document to release the memory
	// held by the previous page.
	Reset(ctx context.Context) error

	// State reports the current lifecycle state.
	State() SessionState

	// Close releases the page and the browser process. Close is idempotent
	// and releases resources even when the session has crashed.
	Close() error
}

// Element is a handle to a DOM element of a Session's page.
type Element interface {
	// Text returns the rendered text content.
	Text(ctx context.Context) (string, error)

	// Attribute returns the named attribute, or nil if it is absent.
	Attribute(ctx context.Context, name string) (*string, error)

	// Click clicks the element.
	Click(ctx context.Context) error
}
