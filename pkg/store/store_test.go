package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evjev/readstash/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	}

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	return s
}

func TestStore_ArticleLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	published := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	art := &domain.Article{
		ID:            "item-1",
		Slug:          "my-article",
		Title:         "My Article",
		Author:        "Jane",
		ContentReader: "WEB",
		Labels:        []string{"go", "reading"},
		PublishedAt:   &published,
		SavedAt:       time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateArticle(ctx, art))

	got, err := s.GetArticle(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "My Article", got.Title)
	assert.Equal(t, []string{"go", "reading"}, got.Labels)
	assert.Empty(t, got.Content)

	bySlug, err := s.GetArticleBySlug(ctx, "my-article")
	require.NoError(t, err)
	assert.Equal(t, "item-1", bySlug.ID)

	_, err = s.GetArticle(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetArticleBySlug(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateArticleContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, &domain.Article{ID: "item-1", Slug: "old-slug", Title: "Old"}))

	// pre-existing highlights A and B
	require.NoError(t, s.AddHighlight(ctx, &domain.Highlight{ID: "A", ArticleID: "item-1", Quote: "first"}))
	require.NoError(t, s.AddHighlight(ctx, &domain.Highlight{ID: "B", ArticleID: "item-1", Quote: "second"}))

	fetched := &domain.Article{
		ID:              "item-1",
		Slug:            "new-slug",
		Title:           "New Title",
		Author:          "Jane",
		Content:         "<p>body</p>",
		ContentReader:   "WEB",
		Archived:        true,
		ReadingProgress: 33.3,
		ReadingAnchor:   4,
		Labels:          []string{"go"},
	}
	// fetched set is B and C, the merge must be additive
	incoming := []domain.Highlight{
		{ID: "B", ArticleID: "item-1", Quote: "second", SyncStatus: domain.HighlightClean},
		{ID: "C", ArticleID: "item-1", Quote: "third", SyncStatus: domain.HighlightClean},
	}
	require.NoError(t, s.UpdateArticleContent(ctx, fetched, incoming))

	got, err := s.GetArticle(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "new-slug", got.Slug)
	assert.Equal(t, "<p>body</p>", got.Content)
	assert.True(t, got.Archived)
	assert.InDelta(t, 33.3, got.ReadingProgress, 0.001)

	highlights, err := s.GetHighlights(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, highlights, 3)
	ids := []string{highlights[0].ID, highlights[1].ID, highlights[2].ID}
	assert.ElementsMatch(t, []string{"A", "B", "C"}, ids)

	// existing highlight content untouched by the merge
	for _, h := range highlights {
		if h.ID == "A" {
			assert.Equal(t, "first", h.Quote)
		}
	}
}

func TestStore_UpdateArticleContent_MissingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateArticleContent(ctx, &domain.Article{ID: "ghost", Title: "Nope"},
		[]domain.Highlight{{ID: "H", ArticleID: "ghost"}})
	require.ErrorIs(t, err, ErrNotFound)

	// nothing was created as a side effect
	_, err = s.GetArticle(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)

	highlights, err := s.GetHighlights(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, highlights)
}

func TestStore_UpdateArticleContent_RollbackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, &domain.Article{
		ID: "item-1", Slug: "keep-slug", Title: "Keep", Content: "<p>old</p>"}))
	require.NoError(t, s.AddHighlight(ctx, &domain.Highlight{ID: "A", ArticleID: "item-1", Quote: "first"}))

	// abort the article update inside the transaction, after the highlight
	// merge already ran
	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_update BEFORE UPDATE ON articles
		WHEN NEW.title = 'Broken' BEGIN
			SELECT RAISE(ABORT, 'rejected by trigger');
		END`)
	require.NoError(t, err)

	fetched := &domain.Article{ID: "item-1", Slug: "new-slug", Title: "Broken", Content: "<p>new</p>"}
	incoming := []domain.Highlight{{ID: "B", ArticleID: "item-1", Quote: "second", SyncStatus: domain.HighlightClean}}
	err = s.UpdateArticleContent(ctx, fetched, incoming)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected by trigger")

	// the record kept its prior field values
	got, err := s.GetArticle(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title)
	assert.Equal(t, "keep-slug", got.Slug)
	assert.Equal(t, "<p>old</p>", got.Content)

	// the merged highlight was rolled back with the rest of the transaction
	highlights, err := s.GetHighlights(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, highlights, 1)
	assert.Equal(t, "A", highlights[0].ID)
	assert.Equal(t, "first", highlights[0].Quote)
}

func TestStore_SaveArticlePDF(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, &domain.Article{ID: "item-1", Slug: "doc", ContentReader: "PDF"}))

	_, err := s.GetArticlePDF(ctx, "doc")
	require.ErrorIs(t, err, ErrNotFound, "no payload stored yet")

	payload := []byte("%PDF-1.7 fake")
	require.NoError(t, s.SaveArticlePDF(ctx, "doc", payload))

	got, err := s.GetArticlePDF(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	err = s.SaveArticlePDF(ctx, "unknown-slug", payload)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetHighlightStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, &domain.Article{ID: "item-1", Slug: "a"}))
	require.NoError(t, s.AddHighlight(ctx, &domain.Highlight{ID: "H", ArticleID: "item-1"}))

	require.NoError(t, s.SetHighlightStatus(ctx, "H", domain.HighlightNeedsDeletion))

	highlights, err := s.GetHighlights(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, highlights, 1)
	assert.Equal(t, domain.HighlightNeedsDeletion, highlights[0].SyncStatus)

	err = s.SetHighlightStatus(ctx, "missing", domain.HighlightClean)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListPendingArticleIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateArticle(ctx, &domain.Article{
		ID: "old", Slug: "old", SavedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, s.CreateArticle(ctx, &domain.Article{
		ID: "new", Slug: "new", SavedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, s.CreateArticle(ctx, &domain.Article{
		ID: "done", Slug: "done", Content: "<p>cached</p>",
		SavedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}))

	ids, err := s.ListPendingArticleIDs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids, "cached records excluded, newest first")

	ids, err = s.ListPendingArticleIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)
}
