package models

import "time"

// CrawlRequest is the input of one crawl: a target page and the categories to keep
type CrawlRequest struct {
	TargetURL  string
	Categories CategorySet
}

// ResolvedResource is a raw reference after resolution and classification
type ResolvedResource struct {
	RawRef      string   // Reference exactly as extracted from markup
	AbsoluteURL string   // Always has scheme and host
	Category    Category // Derived from AbsoluteURL's extension
}

// DownloadResult is the outcome of downloading one resource
type DownloadResult struct {
	OK          bool
	Filename    string // Derived file name (set even on failure when known)
	Path        string // Full path written on success
	Bytes       int64
	ErrorDetail string // Human-readable cause on failure
	Err         error
}

// ResourceOutcome pairs a resource with the result of its download attempt.
// Attempted is false when the crawl was cancelled before the download began.
type ResourceOutcome struct {
	Resource  ResolvedResource
	Attempted bool
	Result    DownloadResult
}

// CrawlResult aggregates one crawl. Attempted counts downloads dispatched,
// Succeeded counts downloads that returned OK; Skipped counts references
// that could not be resolved.
type CrawlResult struct {
	CrawlID    string
	TargetURL  string
	Found      int // Distinct raw references extracted from the page
	Attempted  int
	Succeeded  int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []ResourceOutcome
}

// Failed returns the number of attempted-but-failed downloads
func (r CrawlResult) Failed() int {
	return r.Attempted - r.Succeeded
}

// ResourceDBEntry stores the state of one resource in the crawl ledger
type ResourceDBEntry struct {
	Status      ResourceStatus `json:"status"`
	RawRef      string         `json:"raw_ref"`
	URL         string         `json:"url,omitempty"` // Absolute URL; empty when skipped
	Category    string         `json:"category,omitempty"`
	LocalPath   string         `json:"local_path,omitempty"` // Set on success
	Bytes       int64          `json:"bytes,omitempty"`
	ErrorType   string         `json:"error_type,omitempty"`   // Error category (on failure)
	ErrorDetail string         `json:"error_detail,omitempty"` // Full error text (on failure)
	LastAttempt time.Time      `json:"last_attempt"`
}

// CrawlReport is the YAML document written at the end of a crawl
type CrawlReport struct {
	CrawlID        string         `yaml:"crawl_id"`
	TargetURL      string         `yaml:"target_url"`
	Categories     []string       `yaml:"categories"`
	CrawlStartTime time.Time      `yaml:"crawl_start_time"`
	CrawlEndTime   time.Time      `yaml:"crawl_end_time"`
	Found          int            `yaml:"references_found"`
	Attempted      int            `yaml:"attempted"`
	Succeeded      int            `yaml:"succeeded"`
	Skipped        int            `yaml:"skipped"`
	FatalError     string         `yaml:"fatal_error,omitempty"`
	StatusCounts   map[string]int `yaml:"status_counts,omitempty"` // Ledger entries per status
	Resources      []ReportedItem `yaml:"resources"`
}

// ReportedItem is one resource line in the crawl report
type ReportedItem struct {
	URL       string         `yaml:"url"`
	RawRef    string         `yaml:"raw_ref"`
	Category  string         `yaml:"category"`
	Status    ResourceStatus `yaml:"status"`
	LocalPath string         `yaml:"local_path,omitempty"`
	Bytes     int64          `yaml:"bytes,omitempty"`
	ErrorType string         `yaml:"error_type,omitempty"`
}
