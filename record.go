package contestcrawl

import (
	"strings"

	"cloud.google.com/go/civil"
)

// ActivityRecord is the structured data extracted from one detail page.
// Nil pointers mean the field could not be extracted.
type ActivityRecord struct {
	DetailURL          string      `json:"detailUrl"`
	Title              *string     `json:"title"`
	OrganizationName   *string     `json:"organizationName"`
	Categories         []string    `json:"categories"`
	StartDate          *civil.Date `json:"startDate"`
	EndDate            *civil.Date `json:"endDate"`
	ImageURL           *string     `json:"imageUrl"`
	SiteURL            *string     `json:"siteUrl"`
	AwardScale         *string     `json:"awardScale"`
	Benefits           *string     `json:"benefits"`
	AdditionalBenefits *string     `json:"additionalBenefits"`
	TargetParticipants *string     `json:"targetParticipants"`
	CompanyType        *string     `json:"companyType"`
	Views              *int        `json:"views"`
}

// Validate returns EINVALID if any field required for persistence is missing.
func (r *ActivityRecord) Validate() error {
	var missing []string
	if r.Title == nil || *r.Title == "" {
		missing = append(missing, "title")
	}
	if r.StartDate == nil {
		missing = append(missing, "startDate")
	}
	if r.EndDate == nil {
		missing = append(missing, "endDate")
	}
	if r.ImageURL == nil || *r.ImageURL == "" {
		missing = append(missing, "imageUrl")
	}
	if r.SiteURL == nil || *r.SiteURL == "" {
		missing = append(missing, "siteUrl")
	}
	if len(missing) > 0 {
		return Errorf(EINVALID, "record %s missing %s", r.DetailURL, strings.Join(missing, ", "))
	}
	return nil
}

// Key returns the natural key the record would be persisted under.
// Organization falls back to the title when the page has no host
// information. Only meaningful for valid records.
func (r *ActivityRecord) Key() ContestKey {
	var key ContestKey
	if r.Title != nil {
		key.Name = *r.Title
	}
	if r.OrganizationName != nil && *r.OrganizationName != "" {
		key.OrganizationName = *r.OrganizationName
	} else {
		key.OrganizationName = key.Name
	}
	return key
}
