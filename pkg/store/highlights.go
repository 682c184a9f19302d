package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evjev/readstash/pkg/domain"
)

// highlightSQL represents a highlight for SQL operations
type highlightSQL struct {
	ID         string    `db:"id"`
	ArticleID  string    `db:"article_id"`
	ShortID    string    `db:"short_id"`
	Quote      string    `db:"quote"`
	Prefix     string    `db:"prefix"`
	Suffix     string    `db:"suffix"`
	Patch      string    `db:"patch"`
	Annotation string    `db:"annotation"`
	SyncStatus string    `db:"sync_status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// AddHighlight inserts a locally created highlight for an article
func (s *Store) AddHighlight(ctx context.Context, h *domain.Highlight) error {
	query := `
		INSERT INTO highlights (id, article_id, short_id, quote, prefix, suffix, patch, annotation, sync_status)
		VALUES (:id, :article_id, :short_id, :quote, :prefix, :suffix, :patch, :annotation, :sync_status)
	`
	sqlH := &highlightSQL{
		ID:         h.ID,
		ArticleID:  h.ArticleID,
		ShortID:    h.ShortID,
		Quote:      h.Quote,
		Prefix:     h.Prefix,
		Suffix:     h.Suffix,
		Patch:      h.Patch,
		Annotation: h.Annotation,
		SyncStatus: string(h.SyncStatus),
	}
	if sqlH.SyncStatus == "" {
		sqlH.SyncStatus = string(domain.HighlightClean)
	}
	if _, err := s.db.NamedExecContext(ctx, query, sqlH); err != nil {
		return fmt.Errorf("add highlight: %w", err)
	}
	return nil
}

// GetHighlights returns all highlights attached to an article, including
// those pending deletion; filtering is a caller concern
func (s *Store) GetHighlights(ctx context.Context, articleID string) ([]domain.Highlight, error) {
	var sqlHighlights []highlightSQL
	err := s.db.SelectContext(ctx, &sqlHighlights,
		"SELECT * FROM highlights WHERE article_id = ? ORDER BY created_at, id", articleID)
	if err != nil {
		return nil, fmt.Errorf("get highlights for %s: %w", articleID, err)
	}

	highlights := make([]domain.Highlight, len(sqlHighlights))
	for i, h := range sqlHighlights {
		highlights[i] = domain.Highlight{
			ID:         h.ID,
			ArticleID:  h.ArticleID,
			ShortID:    h.ShortID,
			Quote:      h.Quote,
			Prefix:     h.Prefix,
			Suffix:     h.Suffix,
			Patch:      h.Patch,
			Annotation: h.Annotation,
			SyncStatus: domain.HighlightStatus(h.SyncStatus),
			CreatedAt:  h.CreatedAt,
			UpdatedAt:  h.UpdatedAt,
		}
	}
	return highlights, nil
}

// SetHighlightStatus updates the sync state of one highlight, used by the
// sync layer to mark pending creations and deletions
func (s *Store) SetHighlightStatus(ctx context.Context, id string, status domain.HighlightStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE highlights SET sync_status = ?, updated_at = datetime('now') WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("set highlight status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set highlight status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
