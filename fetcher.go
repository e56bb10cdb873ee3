package contestcrawl

import "context"

// Fetcher retrieves raw HTML from URLs without executing JavaScript.
// It backs the static browser used for server-rendered sites.
type Fetcher interface {
	// Fetch returns the response body of url.
	// Returns ENOTFOUND for a 404 response.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases idle connections.
	Close() error
}
