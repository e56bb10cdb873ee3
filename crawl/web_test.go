package crawl_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/contestcrawl"
	"github.com/fwojciec/contestcrawl/mock"
)

// fakeElement is a DOM element of a fakePage.
type fakeElement struct {
	text  string
	attrs map[string]string
}

func text(s string) fakeElement { return fakeElement{text: s} }

func withAttr(name, value string) fakeElement {
	return fakeElement{attrs: map[string]string{name: value}}
}

func (e fakeElement) element() contestcrawl.Element {
	return &mock.Element{
		TextFn: func(context.Context) (string, error) { return e.text, nil },
		AttributeFn: func(_ context.Context, name string) (*string, error) {
			v, ok := e.attrs[name]
			if !ok {
				return nil, nil
			}
			return &v, nil
		},
		ClickFn: func(context.Context) error { return nil },
	}
}

// fakePage maps selectors to the elements they match.
type fakePage map[string][]fakeElement

// failure makes navigation to a URL fail. A non-positive times fails forever.
type failure struct {
	err   error
	times int
}

// fakeWeb serves fakePages to mock sessions and records how they are used.
type fakeWeb struct {
	site  *contestcrawl.Site
	pages map[string]fakePage
	fails map[string]*failure

	openErrs []error

	opens       int
	closes      int
	navigations []string
	// detailSessions records which session (1-based open count) visited
	// each detail URL, in visit order.
	detailSessions []int
}

func newFakeWeb(site *contestcrawl.Site) *fakeWeb {
	return &fakeWeb{
		site:  site,
		pages: make(map[string]fakePage),
		fails: make(map[string]*failure),
	}
}

// addListing serves a listing page with anchors to hrefs.
func (w *fakeWeb) addListing(page int, hrefs ...string) {
	anchors := make([]fakeElement, len(hrefs))
	for i, href := range hrefs {
		anchors[i] = withAttr("href", href)
	}
	w.pages[w.site.ListingURL(page)] = fakePage{
		w.site.ListSelector:       {text("")},
		w.site.DetailLinkSelector: anchors,
	}
}

// addDetail serves a complete detail page at the site-relative path.
func (w *fakeWeb) addDetail(path string) string {
	u := w.site.BaseURL + path
	w.pages[u] = detailPage(path)
	return u
}

// addDetails serves n detail pages and returns their relative paths.
func (w *fakeWeb) addDetails(prefix string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("/activity/%s%d", prefix, i+1)
		w.addDetail(paths[i])
	}
	return paths
}

func (w *fakeWeb) fail(url string, err error, times int) {
	w.fails[url] = &failure{err: err, times: times}
}

func (w *fakeWeb) navigated(url string) int {
	var n int
	for _, u := range w.navigations {
		if u == url {
			n++
		}
	}
	return n
}

func (w *fakeWeb) browser() *mock.Browser {
	return &mock.Browser{
		OpenFn: func(ctx context.Context) (contestcrawl.Session, error) {
			if len(w.openErrs) > 0 {
				err := w.openErrs[0]
				w.openErrs = w.openErrs[1:]
				return nil, err
			}
			w.opens++
			return w.session(w.opens), nil
		},
	}
}

func (w *fakeWeb) session(id int) *mock.Session {
	state := contestcrawl.SessionOpen
	current := "about:blank"

	return &mock.Session{
		NavigateFn: func(_ context.Context, url string, _ time.Duration) error {
			if state != contestcrawl.SessionOpen {
				return contestcrawl.Errorf(contestcrawl.ECRASHED, "session is %s", state)
			}
			w.navigations = append(w.navigations, url)
			if len(w.pages[url][w.site.ListSelector]) == 0 {
				w.detailSessions = append(w.detailSessions, id)
			}
			if f, ok := w.fails[url]; ok && f.times != 0 {
				if f.times > 0 {
					f.times--
				}
				if contestcrawl.ErrorCode(f.err) == contestcrawl.ECRASHED {
					state = contestcrawl.SessionCrashed
				}
				return f.err
			}
			current = url
			return nil
		},
		WaitForSelectorFn: func(_ context.Context, selector string, _ time.Duration) error {
			if len(w.pages[current][selector]) == 0 {
				return contestcrawl.Errorf(contestcrawl.ENOTFOUND, "%s not found on %s", selector, current)
			}
			return nil
		},
		QueryAllFn: func(_ context.Context, selector string) ([]contestcrawl.Element, error) {
			if state != contestcrawl.SessionOpen {
				return nil, contestcrawl.Errorf(contestcrawl.ECRASHED, "session is %s", state)
			}
			var els []contestcrawl.Element
			for _, e := range w.pages[current][selector] {
				els = append(els, e.element())
			}
			return els, nil
		},
		ResetFn: func(context.Context) error {
			current = "about:blank"
			return nil
		},
		StateFn: func() contestcrawl.SessionState { return state },
		CloseFn: func() error {
			if state != contestcrawl.SessionClosed {
				w.closes++
			}
			state = contestcrawl.SessionClosed
			return nil
		},
	}
}

func testSite() *contestcrawl.Site {
	return &contestcrawl.Site{
		Name:                   "test",
		BaseURL:                "https://example.com",
		ListingURLTemplate:     "https://example.com/list?page={page}",
		ListSelector:           "div.list-body",
		DetailLinkSelector:     "div.list-body a",
		DetailIdentitySelector: "header.activity",
		Fields: []contestcrawl.FieldRule{
			{Field: contestcrawl.FieldTitle, Selectors: []string{"header.activity h1"}, Mode: contestcrawl.ModeText},
			{Field: contestcrawl.FieldOrganizationName, Selectors: []string{"header.activity h2"}, Mode: contestcrawl.ModeText},
			{Field: contestcrawl.FieldCategories, Selectors: []string{"ul.categories p"}, Mode: contestcrawl.ModeList},
			{Field: contestcrawl.FieldStartDate, Selectors: []string{".start-at + span"}, Mode: contestcrawl.ModeText},
			{Field: contestcrawl.FieldEndDate, Selectors: []string{".end-at + span"}, Mode: contestcrawl.ModeText},
			{Field: contestcrawl.FieldImageURL, Selectors: []string{"img.card-image", "div.poster > img"}, Mode: contestcrawl.ModeAttr, Attr: "src"},
			{Field: contestcrawl.FieldSiteURL, Selectors: []string{"dl.homepage a"}, Mode: contestcrawl.ModeAttr, Attr: "href"},
			{Field: contestcrawl.FieldAdditionalBenefits, Selectors: []string{"dl.benefits dd"}, Mode: contestcrawl.ModeJoin, Separator: ", "},
			{Field: contestcrawl.FieldViews, Selectors: []string{"span.views"}, Mode: contestcrawl.ModeText},
		},
	}
}

// detailPage returns a page every rule of testSite can read.
func detailPage(path string) fakePage {
	return fakePage{
		"header.activity":    {text("")},
		"header.activity h1": {text("Contest " + path)},
		"header.activity h2": {text("Host Org")},
		"ul.categories p":    {text("디자인"), text(" 공모전 ")},
		".start-at + span":   {text("2030.03.01")},
		".end-at + span":     {text("2030.04.30 (화)")},
		"div.poster > img":   {withAttr("src", "/images/poster.png")},
		"dl.homepage a":      {withAttr("href", "https://host.example.org/apply")},
		"dl.benefits dd":     {text("Internship"), text("Prize money")},
		"span.views":         {text("1,234")},
	}
}
