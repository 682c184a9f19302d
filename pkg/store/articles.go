package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/evjev/readstash/pkg/domain"
)

// articleSQL represents an article for SQL operations
type articleSQL struct {
	ID              string     `db:"id"`
	Slug            string     `db:"slug"`
	Title           string     `db:"title"`
	Author          string     `db:"author"`
	Description     string     `db:"description"`
	ImageURL        string     `db:"image_url"`
	PageURL         string     `db:"page_url"`
	OriginalURL     string     `db:"original_url"`
	Content         string     `db:"content"`
	ContentReader   string     `db:"content_reader"`
	PDFData         []byte     `db:"pdf_data"`
	Archived        bool       `db:"archived"`
	ReadingProgress float64    `db:"reading_progress"`
	ReadingAnchor   int        `db:"reading_anchor"`
	Labels          labelsSQL  `db:"labels"`
	PublishedAt     *time.Time `db:"published_at"`
	SavedAt         *time.Time `db:"saved_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// labelsSQL is a JSON array of label names for SQL operations
type labelsSQL []string

// Value implements driver.Valuer for database storage
func (l labelsSQL) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval
func (l *labelsSQL) Scan(value interface{}) error {
	if value == nil {
		*l = labelsSQL{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return json.Unmarshal([]byte("[]"), l)
	}

	return json.Unmarshal(data, l)
}

// CreateArticle inserts a new article record. Records normally come from the
// sync layer; the fetch orchestrator never calls this.
func (s *Store) CreateArticle(ctx context.Context, art *domain.Article) error {
	sqlArt := toSQLArticle(art)

	query := `
		INSERT INTO articles (
			id, slug, title, author, description, image_url, page_url, original_url,
			content, content_reader, archived, reading_progress, reading_anchor,
			labels, published_at, saved_at
		) VALUES (
			:id, :slug, :title, :author, :description, :image_url, :page_url, :original_url,
			:content, :content_reader, :archived, :reading_progress, :reading_anchor,
			:labels, :published_at, :saved_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, sqlArt); err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article by its identifier, ErrNotFound when absent
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	var sqlArt articleSQL
	err := s.db.GetContext(ctx, &sqlArt, "SELECT * FROM articles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return toDomainArticle(&sqlArt), nil
}

// GetArticleBySlug retrieves an article by slug, ErrNotFound when absent
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var sqlArt articleSQL
	err := s.db.GetContext(ctx, &sqlArt, "SELECT * FROM articles WHERE slug = ?", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article by slug %s: %w", slug, err)
	}
	return toDomainArticle(&sqlArt), nil
}

// UpdateArticleContent applies a fetched result to the existing record as one
// atomic unit: new highlights are merged into the record's set (existing ones
// are preserved, duplicates ignored) and every scalar field plus the HTML body
// is overwritten with the fetched values. Returns ErrNotFound without touching
// anything when no record exists for the article's identifier. A failed commit
// rolls the record back to its prior state.
func (s *Store) UpdateArticleContent(ctx context.Context, art *domain.Article, highlights []domain.Highlight) error {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM articles WHERE id = ?)", art.ID)
	if err != nil {
		return fmt.Errorf("check article exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("begin update: %w", err)}
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		for i := range highlights {
			h := highlights[i]
			_, err := tx.ExecContext(ctx, `
				INSERT INTO highlights (id, article_id, short_id, quote, prefix, suffix, patch, annotation, sync_status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING`,
				h.ID, art.ID, h.ShortID, h.Quote, h.Prefix, h.Suffix, h.Patch, h.Annotation, string(h.SyncStatus))
			if err != nil {
				if isLockError(err) {
					return err
				}
				return &criticalError{err: fmt.Errorf("merge highlight %s: %w", h.ID, err)}
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE articles
			SET slug = ?, title = ?, author = ?, description = ?, image_url = ?,
			    page_url = ?, original_url = ?, content = ?, content_reader = ?,
			    archived = ?, reading_progress = ?, reading_anchor = ?, labels = ?,
			    published_at = ?, saved_at = ?, updated_at = datetime('now')
			WHERE id = ?`,
			art.Slug, art.Title, art.Author, art.Description, art.ImageURL,
			art.PageURL, art.OriginalURL, art.Content, art.ContentReader,
			art.Archived, art.ReadingProgress, art.ReadingAnchor, labelsSQL(art.Labels),
			art.PublishedAt, nullableTime(art.SavedAt), art.ID)
		if err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("update article %s: %w", art.ID, err)}
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return &criticalError{err: ErrNotFound} // record disappeared under us
		}

		if err := tx.Commit(); err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("commit update for %s: %w", art.ID, err)}
		}
		return nil
	})
}

// SaveArticlePDF stores the downloaded binary payload on the record matching
// the slug. ErrNotFound when no record carries that slug.
func (s *Store) SaveArticlePDF(ctx context.Context, slug string, data []byte) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE articles SET pdf_data = ?, updated_at = datetime('now') WHERE slug = ?", data, slug)
		if err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("save pdf for %s: %w", slug, err)}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("save pdf rows affected: %w", err)}
		}
		if affected == 0 {
			return &criticalError{err: ErrNotFound}
		}
		return nil
	})
}

// GetArticlePDF returns the stored binary payload for the slug, ErrNotFound
// when the record is absent or carries no payload yet
func (s *Store) GetArticlePDF(ctx context.Context, slug string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT pdf_data FROM articles WHERE slug = ?", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pdf for %s: %w", slug, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// ListPendingArticleIDs returns identifiers of records without cached content,
// newest saved first. Used to seed the startup prefetch sweep.
func (s *Store) ListPendingArticleIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT id FROM articles WHERE content = '' ORDER BY saved_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list pending articles: %w", err)
	}
	return ids, nil
}

// nullableTime maps the zero time to NULL
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// toSQLArticle converts a domain article for SQL operations
func toSQLArticle(a *domain.Article) *articleSQL {
	return &articleSQL{
		ID:              a.ID,
		Slug:            a.Slug,
		Title:           a.Title,
		Author:          a.Author,
		Description:     a.Description,
		ImageURL:        a.ImageURL,
		PageURL:         a.PageURL,
		OriginalURL:     a.OriginalURL,
		Content:         a.Content,
		ContentReader:   a.ContentReader,
		Archived:        a.Archived,
		ReadingProgress: a.ReadingProgress,
		ReadingAnchor:   a.ReadingAnchor,
		Labels:          labelsSQL(a.Labels),
		PublishedAt:     a.PublishedAt,
		SavedAt:         nullableTime(a.SavedAt),
	}
}

// toDomainArticle converts articleSQL to domain.Article
func toDomainArticle(sqlArt *articleSQL) *domain.Article {
	art := &domain.Article{
		ID:              sqlArt.ID,
		Slug:            sqlArt.Slug,
		Title:           sqlArt.Title,
		Author:          sqlArt.Author,
		Description:     sqlArt.Description,
		ImageURL:        sqlArt.ImageURL,
		PageURL:         sqlArt.PageURL,
		OriginalURL:     sqlArt.OriginalURL,
		Content:         sqlArt.Content,
		ContentReader:   sqlArt.ContentReader,
		Archived:        sqlArt.Archived,
		ReadingProgress: sqlArt.ReadingProgress,
		ReadingAnchor:   sqlArt.ReadingAnchor,
		Labels:          sqlArt.Labels,
		PublishedAt:     sqlArt.PublishedAt,
		CreatedAt:       sqlArt.CreatedAt,
		UpdatedAt:       sqlArt.UpdatedAt,
	}
	if sqlArt.SavedAt != nil {
		art.SavedAt = *sqlArt.SavedAt
	}
	return art
}
