package gateway

import "time"

// Profile is the platform-level view of a user account.
type Profile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

// RepositorySummary is an immutable snapshot of one repository. It is
// re-fetched as a whole, never patched in place.
type RepositorySummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	FullName    string          `json:"full_name"`
	Description string          `json:"description"`
	Language    string          `json:"language"`
	Stars       int             `json:"stars"`
	Forks       int             `json:"forks"`
	Watchers    int             `json:"watchers"`
	OpenIssues  int             `json:"open_issues"`
	Size        int             `json:"size"`
	Topics      []string        `json:"topics"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	IsFork      bool            `json:"is_fork"`
	HasWiki     bool            `json:"has_wiki"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// Event is a single entry from a user's public activity stream.
type Event struct {
	Type      string    `json:"type"`
	Repo      string    `json:"repo"`
	CreatedAt time.Time `json:"created_at"`
}

// Readme is the decoded content of a repository readme.
type Readme struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// RateLimitSnapshot mirrors the most recent rate-limit headers seen on this
// gateway's credential. Best-effort, never authoritative.
type RateLimitSnapshot struct {
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
	ResetEpoch int64 `json:"reset_epoch"`
	Used       int   `json:"used"`
}

// ContributionCalendar holds per-day contribution counts for one calendar
// year. Days is sparse: the platform omits days it has no data for, so
// consumers must zero-fill.
type ContributionCalendar struct {
	Year  int            `json:"year"`
	Total int            `json:"total"`
	Days  map[string]int `json:"days"` // keyed by YYYY-MM-DD
}

// CommitDescriptor identifies the commit produced by a file mutation.
type CommitDescriptor struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Path    string `json:"path"`
	FileSHA string `json:"file_sha"`
}
