package catalog

import "time"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Company is a company profile paired with its AI prompt.
type Company struct {
	ID          string    `json:"-"`
	Name        string    `json:"name"`
	Website     *string   `json:"website,omitempty"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	CreatedAt   time.Time `json:"created_at"`
}

// Job is a job posting paired with its AI prompt.
type Job struct {
	ID          string    `json:"-"`
	CompanyID   string    `json:"-"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
	PostedAt    time.Time `json:"posted_at"`
}

// Filter narrows a listing. Query matches case-insensitively against the
// text columns.
type Filter struct {
	Query  string
	Limit  int
	Offset int
}

// JobFilter narrows a job listing.
type JobFilter struct {
	Filter
	CompanyID string
}

// normalize clamps paging values into range.
func (f Filter) normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
