package crawl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/fwojciec/contestcrawl"
)

// Detail defaults.
const (
	DefaultIdentityTimeout = 10 * time.Second
	DefaultJoinSeparator   = ", "
)

// Extractor reads an ActivityRecord from a detail page.
type Extractor struct {
	Site   *contestcrawl.Site
	Pacer  *Pacer
	Logger *slog.Logger

	NavigationTimeout time.Duration
	IdentityTimeout   time.Duration
}

// FetchDetail navigates to url and applies the site's field rules.
//
// A page whose identity element never appears returns ETIMEOUT so the
// caller recycles the session. A rule that matches nothing leaves its field
// nil. Only session failures abort extraction.
func (e *Extractor) FetchDetail(ctx context.Context, s contestcrawl.Session, url string) (*contestcrawl.ActivityRecord, error) {
	if err := s.Navigate(ctx, url, e.navigationTimeout()); err != nil {
		return nil, err
	}

	if err := s.WaitForSelector(ctx, e.Site.DetailIdentitySelector, e.identityTimeout()); err != nil {
		if contestcrawl.ErrorCode(err) == contestcrawl.ENOTFOUND {
			return nil, contestcrawl.WrapErrorf(err, contestcrawl.ETIMEOUT, "detail page %s did not render", url)
		}
		return nil, err
	}

	rec := &contestcrawl.ActivityRecord{DetailURL: url}
	for i := range e.Site.Fields {
		rule := &e.Site.Fields[i]
		values, err := e.read(ctx, s, rule)
		if err != nil {
			if contestcrawl.IsSessionFailure(err) {
				return nil, err
			}
			e.logger().Debug("field not extracted", "url", url, "field", rule.Field, "err", err)
			continue
		}
		if len(values) == 0 {
			e.logger().Debug("field not found", "url", url, "field", rule.Field)
			continue
		}
		if err := e.assign(rec, rule.Field, values); err != nil {
			e.logger().Debug("field not parsed", "url", url, "field", rule.Field, "value", values[0], "err", err)
		}
	}

	if s.State() == contestcrawl.SessionCrashed {
		return nil, contestcrawl.Errorf(contestcrawl.ECRASHED, "session crashed while reading %s", url)
	}

	if err := e.Pacer.Wait(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// read returns the values of the first selector that yields any.
func (e *Extractor) read(ctx context.Context, s contestcrawl.Session, rule *contestcrawl.FieldRule) ([]string, error) {
	var lastErr error
	for _, sel := range rule.Selectors {
		els, err := s.QueryAll(ctx, sel)
		if err != nil {
			if contestcrawl.IsSessionFailure(err) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if len(els) == 0 {
			continue
		}

		var values []string
		switch rule.Mode {
		case contestcrawl.ModeAttr:
			v, err := els[0].Attribute(ctx, rule.Attr)
			if err != nil {
				if contestcrawl.IsSessionFailure(err) {
					return nil, err
				}
				lastErr = err
				continue
			}
			if v != nil && strings.TrimSpace(*v) != "" {
				values = []string{strings.TrimSpace(*v)}
			}
		case contestcrawl.ModeList, contestcrawl.ModeJoin:
			values, err = texts(ctx, els)
			if err != nil {
				return nil, err
			}
			if rule.Mode == contestcrawl.ModeJoin && len(values) > 0 {
				sep := rule.Separator
				if sep == "" {
					sep = DefaultJoinSeparator
				}
				values = []string{strings.Join(values, sep)}
			}
		default:
			v, err := texts(ctx, els[:1])
			if err != nil {
				return nil, err
			}
			values = v
		}

		if len(values) > 0 {
			return values, nil
		}
	}
	return nil, lastErr
}

// texts returns the non-empty trimmed text of each element.
func texts(ctx context.Context, els []contestcrawl.Element) ([]string, error) {
	var out []string
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			if contestcrawl.IsSessionFailure(err) {
				return nil, err
			}
			continue
		}
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// assign stores values into the record field named field.
func (e *Extractor) assign(rec *contestcrawl.ActivityRecord, field string, values []string) error {
	v := values[0]
	switch field {
	case contestcrawl.FieldTitle:
		rec.Title = &v
	case contestcrawl.FieldOrganizationName:
		rec.OrganizationName = &v
	case contestcrawl.FieldCategories:
		rec.Categories = values
	case contestcrawl.FieldStartDate, contestcrawl.FieldEndDate:
		d, err := parseDate(e.Site.Layout(), v)
		if err != nil {
			return err
		}
		if field == contestcrawl.FieldStartDate {
			rec.StartDate = &d
		} else {
			rec.EndDate = &d
		}
	case contestcrawl.FieldImageURL:
		u := contestcrawl.ResolveURL(rec.DetailURL, v)
		rec.ImageURL = &u
	case contestcrawl.FieldSiteURL:
		u := contestcrawl.ResolveURL(rec.DetailURL, v)
		rec.SiteURL = &u
	case contestcrawl.FieldAwardScale:
		rec.AwardScale = &v
	case contestcrawl.FieldBenefits:
		rec.Benefits = &v
	case contestcrawl.FieldAdditionalBenefits:
		rec.AdditionalBenefits = &v
	case contestcrawl.FieldTargetParticipants:
		rec.TargetParticipants = &v
	case contestcrawl.FieldCompanyType:
		rec.CompanyType = &v
	case contestcrawl.FieldViews:
		n, err := parseCount(v)
		if err != nil {
			return err
		}
		rec.Views = &n
	default:
		return contestcrawl.Errorf(contestcrawl.EINVALID, "unknown field %q", field)
	}
	return nil
}

// parseDate parses the first whitespace-separated token of s, so trailing
// weekday or time annotations are ignored.
func parseDate(layout, s string) (civil.Date, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return civil.Date{}, contestcrawl.Errorf(contestcrawl.EINVALID, "empty date")
	}
	t, err := time.Parse(layout, fields[0])
	if err != nil {
		return civil.Date{}, contestcrawl.WrapErrorf(err, contestcrawl.EINVALID, "invalid date %q", s)
	}
	return civil.DateOf(t), nil
}

// parseCount reads the digits of s as an integer, so "1,234" and
// "조회 1,234" both yield 1234.
func parseCount(s string) (int, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, contestcrawl.Errorf(contestcrawl.EINVALID, "no digits in %q", s)
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, contestcrawl.WrapErrorf(err, contestcrawl.EINVALID, "invalid count %q", s)
	}
	return n, nil
}

func (e *Extractor) navigationTimeout() time.Duration {
	if e.NavigationTimeout > 0 {
		return e.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

func (e *Extractor) identityTimeout() time.Duration {
	if e.IdentityTimeout > 0 {
		return e.IdentityTimeout
	}
	return DefaultIdentityTimeout
}

func (e *Extractor) logger() *slog.Logger {
	return loggerOrDiscard(e.Logger)
}
