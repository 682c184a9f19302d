package domain

import "time"

// ContentStatus reflects the server-side rendering state of an article
type ContentStatus string

const (
	// StatusUnknown is reported for legacy records that predate the status field;
	// it behaves as StatusSucceeded everywhere downstream
	StatusUnknown ContentStatus = "UNKNOWN"
	// StatusProcessing means the server is still rendering the article
	StatusProcessing ContentStatus = "PROCESSING"
	// StatusSucceeded means rendered content is available
	StatusSucceeded ContentStatus = "SUCCEEDED"
	// StatusFailed means the server gave up rendering the article
	StatusFailed ContentStatus = "FAILED"
)

// Article is the durable local record of a saved page. One record exists per
// item identifier; records are created by the sync layer, the fetch
// orchestrator only looks them up and updates them in place.
type Article struct {
	ID              string
	Slug            string
	Title           string
	Author          string
	Description     string
	ImageURL        string
	PageURL         string
	OriginalURL     string
	Content         string // rendered HTML, empty until fetched
	ContentReader   string // "WEB" or "PDF"
	Archived        bool
	ReadingProgress float64
	ReadingAnchor   int
	Labels          []string
	PublishedAt     *time.Time
	SavedAt         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsPDF reports whether the article should be read as a PDF document
func (a *Article) IsPDF() bool { return a.ContentReader == "PDF" }

// FetchedContent is the immutable result of a content fetch returned to callers
type FetchedContent struct {
	HTML       string
	Highlights []Highlight
	Status     ContentStatus
}
