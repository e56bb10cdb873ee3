package contestcrawl

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// ContestKey is the natural key of a persisted contest.
type ContestKey struct {
	Name             string
	OrganizationName string
}

// Contest represents a persisted contest row.
type Contest struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	OrganizationName   string     `json:"organizationName"`
	Categories         []string   `json:"categories"`
	StartDate          civil.Date `json:"startDate"`
	EndDate            civil.Date `json:"endDate"`
	ImageURL           string     `json:"imageUrl"`
	SiteURL            string     `json:"siteUrl"`
	DetailURL          string     `json:"detailUrl"`
	AwardScale         string     `json:"awardScale"`
	Benefits           string     `json:"benefits"`
	AdditionalBenefits string     `json:"additionalBenefits"`
	TargetParticipants string     `json:"targetParticipants"`
	CompanyType        string     `json:"companyType"`
	Views              int        `json:"views"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Key returns the contest's natural key.
func (c *Contest) Key() ContestKey {
	return ContestKey{Name: c.Name, OrganizationName: c.OrganizationName}
}

// NewContest converts a valid record into a contest ready for insertion.
// Returns EINVALID if the record fails validation.
func NewContest(r *ActivityRecord) (*Contest, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	key := r.Key()
	c := &Contest{
		Name:               key.Name,
		OrganizationName:   key.OrganizationName,
		Categories:         append([]string(nil), r.Categories...),
		StartDate:          *r.StartDate,
		EndDate:            *r.EndDate,
		ImageURL:           *r.ImageURL,
		SiteURL:            *r.SiteURL,
		DetailURL:          r.DetailURL,
		AwardScale:         deref(r.AwardScale),
		Benefits:           deref(r.Benefits),
		AdditionalBenefits: deref(r.AdditionalBenefits),
		TargetParticipants: deref(r.TargetParticipants),
		CompanyType:        deref(r.CompanyType),
	}
	if r.Views != nil {
		c.Views = *r.Views
	}
	return c, nil
}

// ContestUpdate holds the fields refreshed when a crawled contest already
// exists. Descriptive fields (categories, benefits, ...) are insert-only.
type ContestUpdate struct {
	ID        int64
	StartDate civil.Date
	EndDate   civil.Date
	Views     int
	SiteURL   string
}

// NewContestUpdate builds the update applied to contest id from a valid record.
func NewContestUpdate(id int64, r *ActivityRecord) (ContestUpdate, error) {
	c, err := NewContest(r)
	if err != nil {
		return ContestUpdate{}, err
	}
	return ContestUpdate{
		ID:        id,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
		Views:     c.Views,
		SiteURL:   c.SiteURL,
	}, nil
}

// ContestStore persists contests.
type ContestStore interface {
	// BeginTx starts a reconciliation transaction.
	BeginTx(ctx context.Context) (ContestTx, error)

	// FindContests retrieves contests matching the filter.
	FindContests(ctx context.Context, filter ContestFilter) ([]*Contest, error)
}

// ContestTx is a single reconciliation transaction. Exactly one of Commit
// or Rollback must be called; Rollback after Commit is a no-op.
type ContestTx interface {
	// LoadExistingKeys returns the ID of every persisted contest by key.
	LoadExistingKeys(ctx context.Context) (map[ContestKey]int64, error)

	// DeleteExpired removes contests whose end date is before cutoff and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff civil.Date) (int, error)

	// InsertMany inserts new contests, setting their ID and timestamps.
	InsertMany(ctx context.Context, contests []*Contest) error

	// UpdateMany applies updates to existing contests.
	UpdateMany(ctx context.Context, updates []ContestUpdate) error

	Commit() error
	Rollback() error
}

// ContestFilter represents a filter for FindContests.
type ContestFilter struct {
	ID               *int64  `json:"id"`
	Name             *string `json:"name"`
	OrganizationName *string `json:"organizationName"`

	// ActiveOn, when set, keeps only contests whose end date is on or after it.
	ActiveOn *civil.Date `json:"activeOn"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
