package models

// ResourceStatus represents the state of a resource in the crawl ledger
type ResourceStatus string

const (
	ResourceStatusUnset   ResourceStatus = ""        // Zero value = unset/unknown
	ResourceStatusPending ResourceStatus = "pending" // Queued for download
	ResourceStatusSuccess ResourceStatus = "success" // Downloaded successfully
	ResourceStatusFailure ResourceStatus = "failure" // Download failed
	ResourceStatusSkipped ResourceStatus = "skipped" // Could not be resolved to an absolute URL
)

// String implements fmt.Stringer for logging
func (s ResourceStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s ResourceStatus) IsValid() bool {
	switch s {
	case ResourceStatusPending, ResourceStatusSuccess, ResourceStatusFailure, ResourceStatusSkipped:
		return true
	}
	return false
}

// IsTerminal returns true once a resource will not change state again
func (s ResourceStatus) IsTerminal() bool {
	switch s {
	case ResourceStatusSuccess, ResourceStatusFailure, ResourceStatusSkipped:
		return true
	}
	return false
}

// CrawlState is a step of the crawl state machine
type CrawlState string

const (
	StateIdle        CrawlState = "idle"
	StateValidating  CrawlState = "validating"
	StateFetching    CrawlState = "fetching"
	StateExtracting  CrawlState = "extracting"
	StateFiltering   CrawlState = "filtering"
	StateDownloading CrawlState = "downloading"
	StateReporting   CrawlState = "reporting"
	StateDone        CrawlState = "done"
	StateInvalidURL  CrawlState = "invalid_url"
	StateFetchFailed CrawlState = "fetch_failed"
)

// IsFailure reports whether the state is one of the terminal failure states
func (s CrawlState) IsFailure() bool {
	return s == StateInvalidURL || s == StateFetchFailed
}
