//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Browser implements contestcrawl.Browser.
var _ contestcrawl.Browser = (*rod.Browser)(nil)

// listingPage renders its links from JavaScript after a short delay.
const listingPage = `<!DOCTYPE html>
<html>
<head><title>Contests</title></head>
<body>
<div id="list">Loading...</div>
<script>
setTimeout(function () {
  var list = document.getElementById('list');
  list.textContent = '';
  list.className = 'activity-list';
  ['/activity/1', '/activity/2', '/activity/1'].forEach(function (href) {
    var a = document.createElement('a');
    a.href = href;
    a.className = 'detail-link';
    a.textContent = href;
    list.appendChild(a);
  });
}, 100);
</script>
</body>
</html>`

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			time.Sleep(500 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openSession(t *testing.T) *rod.Session {
	t.Helper()
	b := rod.NewBrowser(rod.WithNoSandbox(true))
	s, err := b.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.(*rod.Session)
}

func TestSession_RendersClientSideList(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL, 10*time.Second))
	require.NoError(t, s.WaitForSelector(ctx, ".activity-list", 5*time.Second))

	els, err := s.QueryAll(ctx, "a.detail-link")
	require.NoError(t, err)
	require.Len(t, els, 3)

	href, err := els[1].Attribute(ctx, "href")
	require.NoError(t, err)
	require.NotNil(t, href)
	assert.Equal(t, "/activity/2", *href)

	text, err := els[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/activity/1", text)

	missing, err := els[0].Attribute(ctx, "data-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, contestcrawl.SessionOpen, s.State())
}

func TestSession_WaitForSelector_ReturnsNotFound(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL, 10*time.Second))
	err := s.WaitForSelector(ctx, "#never", 300*time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, contestcrawl.ENOTFOUND, contestcrawl.ErrorCode(err))
	assert.Equal(t, contestcrawl.SessionOpen, s.State())
}

func TestSession_QueryAll_MalformedSelector(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL, 10*time.Second))
	_, err := s.QueryAll(ctx, "div[")

	assert.Equal(t, contestcrawl.EINVALID, contestcrawl.ErrorCode(err))
	assert.Equal(t, contestcrawl.SessionOpen, s.State())
}

func TestSession_Navigate_TimesOutOnSlowPage(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)

	err := s.Navigate(context.Background(), srv.URL+"/slow", 100*time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, contestcrawl.ETIMEOUT, contestcrawl.ErrorCode(err))
}

func TestSession_Navigate_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Navigate(ctx, srv.URL, 10*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_Reset_LoadsBlankPage(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)
	s := openSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL, 10*time.Second))
	require.NoError(t, s.Reset(ctx))

	els, err := s.QueryAll(ctx, "#list")
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestSession_Close_Idempotent(t *testing.T) {
	t.Parallel()

	s, err := rod.NewBrowser(rod.WithNoSandbox(true)).Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, contestcrawl.SessionClosed, s.State())

	err = s.Navigate(context.Background(), "about:blank", time.Second)
	assert.Equal(t, contestcrawl.ECRASHED, contestcrawl.ErrorCode(err))
}
