package domain

import "time"

// HighlightStatus is the local sync state of a highlight
type HighlightStatus string

const (
	// HighlightClean means the highlight matches the server copy
	HighlightClean HighlightStatus = "clean"
	// HighlightNeedsCreation means the highlight exists only locally
	HighlightNeedsCreation HighlightStatus = "needs_creation"
	// HighlightNeedsUpdate means local edits are not yet pushed
	HighlightNeedsUpdate HighlightStatus = "needs_update"
	// HighlightNeedsDeletion means the highlight is deleted locally and must be
	// hidden from readers until the deletion is pushed
	HighlightNeedsDeletion HighlightStatus = "needs_deletion"
)

// Highlight is a user's saved excerpt attached to exactly one article
type Highlight struct {
	ID         string
	ArticleID  string
	ShortID    string
	Quote      string
	Prefix     string
	Suffix     string
	Patch      string
	Annotation string
	SyncStatus HighlightStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
