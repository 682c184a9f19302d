package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/singleflight"

	"github.com/evjev/readstash/pkg/api"
	"github.com/evjev/readstash/pkg/domain"
	"github.com/evjev/readstash/pkg/store"
)

// RemoteClient issues a single article-content query, no built-in retry
type RemoteClient interface {
	GetArticleContent(ctx context.Context, username, itemID string) (*api.Article, error)
}

// Storage is the narrow view of the local store the orchestrator needs
type Storage interface {
	GetArticle(ctx context.Context, id string) (*domain.Article, error)
	GetHighlights(ctx context.Context, articleID string) ([]domain.Highlight, error)
	UpdateArticleContent(ctx context.Context, art *domain.Article, highlights []domain.Highlight) error
	SaveArticlePDF(ctx context.Context, slug string, data []byte) error
}

// Config holds fetch orchestration settings
type Config struct {
	MaxAttempts int           // polling budget while the server renders, default 7
	BackoffBase time.Duration // wait after attempt n is n*BackoffBase, default 2s
	PDFTimeout  time.Duration // timeout for binary asset downloads, default 60s
}

// Fetcher retrieves rendered article content, polling while the server is
// still rendering, and reconciles successful results into the local store.
// Concurrent foreground fetches of the same item share one remote call.
type Fetcher struct {
	client RemoteClient
	store  Storage

	maxAttempts int
	backoffBase time.Duration
	pdfTimeout  time.Duration

	sanitizer *bluemonday.Policy
	pdfClient *http.Client
	group     singleflight.Group
	tasks     taskGroup
}

// New creates a fetcher with the given collaborators
func New(client RemoteClient, storage Storage, cfg Config) *Fetcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 7
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.PDFTimeout == 0 {
		cfg.PDFTimeout = 60 * time.Second
	}

	return &Fetcher{
		client:      client,
		store:       storage,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		pdfTimeout:  cfg.PDFTimeout,
		sanitizer:   bluemonday.UGCPolicy(),
		pdfClient:   &http.Client{Timeout: cfg.PDFTimeout},
	}
}

// CachedContent reads previously persisted content for an item. Absence (no
// record, or a record not yet fetched) is a nil result, not an error. The
// returned status is always StatusSucceeded: a record is only ever persisted
// from a successful fetch. Highlights pending deletion are filtered out.
func (f *Fetcher) CachedContent(ctx context.Context, itemID string) (*domain.FetchedContent, error) {
	art, err := f.store.GetArticle(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup for %s: %w", itemID, err)
	}
	if art.Content == "" {
		return nil, nil
	}

	highlights, err := f.store.GetHighlights(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("cache lookup highlights for %s: %w", itemID, err)
	}

	visible := make([]domain.Highlight, 0, len(highlights))
	for _, h := range highlights {
		if h.SyncStatus == domain.HighlightNeedsDeletion {
			continue
		}
		visible = append(visible, h)
	}

	return &domain.FetchedContent{
		HTML:       art.Content,
		Highlights: visible,
		Status:     domain.StatusSucceeded,
	}, nil
}

// FetchArticleContent returns rendered content for an item, from the local
// store when useCache is set and a cached body exists, otherwise from the
// remote service with bounded polling. Fails with api.ErrUnauthorized when no
// user is resolved, api.ErrBadData on a terminal content problem or exhausted
// polling budget, api.ErrNetwork on transport failure. Cancellation during a
// backoff wait propagates as the context's error.
//
// Concurrent fetches of the same item coalesce into a single remote flight
// running on the first caller's context; joined callers share that flight's
// outcome, including its cancellation if the first caller's context ends.
func (f *Fetcher) FetchArticleContent(ctx context.Context, itemID, username string, useCache bool) (*domain.FetchedContent, error) {
	if username == "" {
		return nil, fmt.Errorf("fetch %q: %w", itemID, api.ErrUnauthorized)
	}

	if useCache {
		cached, err := f.CachedContent(ctx, itemID)
		if err != nil {
			lgr.Printf("[WARN] cache lookup failed for %s, falling back to remote: %v", itemID, err)
		}
		if cached != nil {
			lgr.Printf("[DEBUG] served %s from cache", itemID)
			return cached, nil
		}
	}

	res, err, _ := f.group.Do(itemID, func() (interface{}, error) {
		return f.fetchWithRetry(ctx, itemID, username)
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.FetchedContent), nil
}

// fetchWithRetry drives the polling state machine: attempts start at 1, a
// Processing response waits attempt*backoffBase and retries until the budget
// is exhausted. Both the foreground fetch and the background sweep use this
// loop with independent counters.
func (f *Fetcher) fetchWithRetry(ctx context.Context, itemID, username string) (*domain.FetchedContent, error) {
	for attempt := 1; ; attempt++ {
		content, err := f.fetchOnce(ctx, username, itemID)
		if err != nil {
			return nil, err
		}

		if content.Status != domain.StatusProcessing {
			return content, nil
		}

		if attempt >= f.maxAttempts {
			return nil, fmt.Errorf("content for %q still processing after %d attempts: %w", itemID, attempt, api.ErrBadData)
		}

		wait := time.Duration(attempt) * f.backoffBase
		lgr.Printf("[DEBUG] content for %s processing, retry %d/%d in %v", itemID, attempt, f.maxAttempts, wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// fetchOnce makes a single remote attempt and maps the result. A FAILED
// rendering status is terminal bad data. Succeeded and Unknown (legacy
// records without a status) responses are persisted before returning.
func (f *Fetcher) fetchOnce(ctx context.Context, username, itemID string) (*domain.FetchedContent, error) {
	art, err := f.client.GetArticleContent(ctx, username, itemID)
	if err != nil {
		return nil, err
	}

	if art.Status == domain.StatusFailed {
		return nil, fmt.Errorf("rendering failed for %q: %w", itemID, api.ErrBadData)
	}

	if art.Status == domain.StatusProcessing {
		return &domain.FetchedContent{Status: domain.StatusProcessing}, nil
	}

	art.Content = f.sanitizer.Sanitize(art.Content)

	content := &domain.FetchedContent{
		HTML:       art.Content,
		Highlights: art.Highlights,
		Status:     art.Status,
	}

	// persistence failures are contained here, the fetched result is still
	// returned to the caller
	f.reconcile(ctx, art)

	return content, nil
}

// reconcile merges a successful fetch into the existing local record. A
// missing record is a no-op: record creation belongs to the sync layer. When
// the record reads as a PDF document, the binary asset download is scheduled
// as a detached task keyed by slug and page URL.
func (f *Fetcher) reconcile(ctx context.Context, art *api.Article) {
	err := f.store.UpdateArticleContent(ctx, &art.Article, art.Highlights)
	switch {
	case errors.Is(err, store.ErrNotFound):
		lgr.Printf("[DEBUG] no local record for %s, content not persisted", art.ID)
		return
	case err != nil:
		lgr.Printf("[WARN] failed to persist content for %s: %v", art.ID, err)
		return
	}

	if art.IsPDF() {
		f.tasks.Go(func() { f.fetchPDF(art.Slug, art.PageURL) })
	}
}

// Wait blocks until all detached asset downloads have finished, used on
// shutdown and in tests
func (f *Fetcher) Wait() {
	f.tasks.Wait()
}
