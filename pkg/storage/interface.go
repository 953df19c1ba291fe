package storage

import "github.com/Sriram-PR/res-scraper/pkg/models"

// ResourceLedger tracks the state of every reference seen during one crawl.
// Keys are raw references, so two references that resolve to the same
// absolute URL keep separate entries.
type ResourceLedger interface {
	// MarkPending records a resolved reference as queued for download.
	// Returns false if the reference was already recorded.
	MarkPending(rawRef, absoluteURL string, category models.Category) (bool, error)

	// MarkSkipped records a reference that could not be resolved
	MarkSkipped(rawRef string, cause error) error

	// UpdateStatus overwrites the entry for rawRef
	UpdateStatus(rawRef string, entry *models.ResourceDBEntry) error

	// Entries returns every entry ordered by raw reference
	Entries() ([]models.ResourceDBEntry, error)

	// StatusCounts tallies entries per status
	StatusCounts() (map[models.ResourceStatus]int, error)

	// Close releases the ledger; its contents are gone afterwards
	Close() error
}
