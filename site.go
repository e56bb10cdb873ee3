package contestcrawl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
)

// PagePlaceholder is replaced by the 1-based page number in Site.ListingURL.
const PagePlaceholder = "{page}"

// DefaultDateLayout is the date layout used by listing sites that publish
// dates as "2024.03.01".
const DefaultDateLayout = "2006.01.02"

// Record field names addressable by a FieldRule.
const (
	FieldTitle              = "title"
	FieldOrganizationName   = "organizationName"
	FieldCategories         = "categories"
	FieldStartDate          = "startDate"
	FieldEndDate            = "endDate"
	FieldImageURL           = "imageUrl"
	FieldSiteURL            = "siteUrl"
	FieldAwardScale         = "awardScale"
	FieldBenefits           = "benefits"
	FieldAdditionalBenefits = "additionalBenefits"
	FieldTargetParticipants = "targetParticipants"
	FieldCompanyType        = "companyType"
	FieldViews              = "views"
)

var knownFields = map[string]bool{
	FieldTitle:              true,
	FieldOrganizationName:   true,
	FieldCategories:         true,
	FieldStartDate:          true,
	FieldEndDate:            true,
	FieldImageURL:           true,
	FieldSiteURL:            true,
	FieldAwardScale:         true,
	FieldBenefits:           true,
	FieldAdditionalBenefits: true,
	FieldTargetParticipants: true,
	FieldCompanyType:        true,
	FieldViews:              true,
}

// Extraction modes of a FieldRule.
const (
	// ModeText reads the text of the first matching element.
	ModeText = "text"
	// ModeAttr reads an attribute of the first matching element.
	ModeAttr = "attr"
	// ModeList reads the text of every matching element.
	ModeList = "list"
	// ModeJoin reads the text of every matching element joined by Separator.
	ModeJoin = "join"
)

// FieldRule describes how one record field is read from a detail page.
type FieldRule struct {
	Field string `yaml:"field"`

	// Selectors are tried in order; the first selector yielding a value wins.
	Selectors []string `yaml:"selectors"`

	Mode      string `yaml:"mode"`
	Attr      string `yaml:"attr,omitempty"`
	Separator string `yaml:"separator,omitempty"`
}

// Validate returns EINVALID if the rule cannot be applied.
func (r *FieldRule) Validate() error {
	if !knownFields[r.Field] {
		return Errorf(EINVALID, "unknown field %q", r.Field)
	}
	if len(r.Selectors) == 0 {
		return Errorf(EINVALID, "field %s: selectors required", r.Field)
	}
	for _, sel := range r.Selectors {
		if strings.TrimSpace(sel) == "" {
			return Errorf(EINVALID, "field %s: empty selector", r.Field)
		}
		if err := compileSelector(sel); err != nil {
			return WrapErrorf(err, EINVALID, "field %s: invalid selector %q", r.Field, sel)
		}
	}
	switch r.Mode {
	case ModeText, ModeList, ModeJoin:
	case ModeAttr:
		if r.Attr == "" {
			return Errorf(EINVALID, "field %s: attr mode requires attr", r.Field)
		}
	default:
		return Errorf(EINVALID, "field %s: unknown mode %q", r.Field, r.Mode)
	}
	return nil
}

// Site describes the markup of a listing site.
type Site struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`

	// ListingURLTemplate must contain PagePlaceholder.
	ListingURLTemplate string `yaml:"listingUrl"`

	// ListSelector marks a rendered listing container.
	ListSelector string `yaml:"listSelector"`

	// DetailLinkSelector matches anchors pointing to detail pages.
	DetailLinkSelector string `yaml:"detailLinkSelector"`

	// DetailIdentitySelector proves a detail page has rendered.
	DetailIdentitySelector string `yaml:"detailIdentitySelector"`

	DateLayout string      `yaml:"dateLayout"`
	Fields     []FieldRule `yaml:"fields"`
}

// ListingURL returns the URL of the 1-based listing page.
func (s *Site) ListingURL(page int) string {
	return strings.ReplaceAll(s.ListingURLTemplate, PagePlaceholder, strconv.Itoa(page))
}

// Validate returns EINVALID if the profile is incomplete.
func (s *Site) Validate() error {
	if s.Name == "" {
		return Errorf(EINVALID, "site name required")
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Errorf(EINVALID, "site %s: absolute base URL required", s.Name)
	}
	if !strings.Contains(s.ListingURLTemplate, PagePlaceholder) {
		return Errorf(EINVALID, "site %s: listing URL must contain %s", s.Name, PagePlaceholder)
	}
	if s.ListSelector == "" {
		return Errorf(EINVALID, "site %s: list selector required", s.Name)
	}
	if s.DetailLinkSelector == "" {
		return Errorf(EINVALID, "site %s: detail link selector required", s.Name)
	}
	if s.DetailIdentitySelector == "" {
		return Errorf(EINVALID, "site %s: detail identity selector required", s.Name)
	}
	for _, sel := range []string{s.ListSelector, s.DetailLinkSelector, s.DetailIdentitySelector} {
		if err := compileSelector(sel); err != nil {
			return WrapErrorf(err, EINVALID, "site %s: invalid selector %q", s.Name, sel)
		}
	}
	for i := range s.Fields {
		if err := s.Fields[i].Validate(); err != nil {
			return WrapErrorf(err, EINVALID, "site %s", s.Name)
		}
	}
	return nil
}

// compileSelector checks that sel is a CSS selector group.
func compileSelector(sel string) error {
	_, err := cascadia.Compile(sel)
	return err
}

// Layout returns the date layout, falling back to DefaultDateLayout.
func (s *Site) Layout() string {
	if s.DateLayout == "" {
		return DefaultDateLayout
	}
	return s.DateLayout
}

// ResolveURL resolves href against base. Returns href unchanged if either
// fails to parse.
func ResolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
