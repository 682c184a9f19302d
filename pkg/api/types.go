package api

import (
	"time"

	"github.com/evjev/readstash/pkg/domain"
)

// Article is the decoded success branch of the article-content query:
// the record's scalar fields plus rendered content, highlights and the
// server-side rendering status.
type Article struct {
	domain.Article
	Status     domain.ContentStatus
	Highlights []domain.Highlight
}

// queryRequest is the wire envelope for a single query call
type queryRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// articleResponse is the tagged union returned by the article query: either
// errorCodes or an article payload is present, never both.
type articleResponse struct {
	Data struct {
		Article struct {
			ErrorCodes []string        `json:"errorCodes"`
			Article    *articlePayload `json:"article"`
		} `json:"article"`
	} `json:"data"`
}

type articlePayload struct {
	ID                         string             `json:"id"`
	Slug                       string             `json:"slug"`
	Title                      string             `json:"title"`
	Author                     string             `json:"author"`
	Description                string             `json:"description"`
	Image                      string             `json:"image"`
	PageURLString              string             `json:"pageURLString"`
	OriginalArticleURL         string             `json:"originalArticleUrl"`
	Content                    string             `json:"content"`
	ContentReader              string             `json:"contentReader"`
	IsArchived                 bool               `json:"isArchived"`
	ReadingProgressPercent     float64            `json:"readingProgressPercent"`
	ReadingProgressAnchorIndex int                `json:"readingProgressAnchorIndex"`
	State                      string             `json:"state"`
	PublishedAt                *time.Time         `json:"publishedAt"`
	SavedAt                    *time.Time         `json:"savedAt"`
	CreatedAt                  *time.Time         `json:"createdAt"`
	UpdatedAt                  *time.Time         `json:"updatedAt"`
	Labels                     []labelPayload     `json:"labels"`
	Highlights                 []highlightPayload `json:"highlights"`
}

type labelPayload struct {
	Name string `json:"name"`
}

type highlightPayload struct {
	ID         string     `json:"id"`
	ShortID    string     `json:"shortId"`
	Quote      string     `json:"quote"`
	Prefix     string     `json:"prefix"`
	Suffix     string     `json:"suffix"`
	Patch      string     `json:"patch"`
	Annotation string     `json:"annotation"`
	CreatedAt  *time.Time `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// parseStatus maps the wire rendering state to a ContentStatus. A missing or
// unrecognized state comes from records predating the field and maps to
// StatusUnknown, which behaves as StatusSucceeded downstream.
func parseStatus(state string) domain.ContentStatus {
	switch state {
	case "PROCESSING":
		return domain.StatusProcessing
	case "SUCCEEDED":
		return domain.StatusSucceeded
	case "FAILED":
		return domain.StatusFailed
	default:
		return domain.StatusUnknown
	}
}

// toArticle converts the wire payload to the exported result
func (p *articlePayload) toArticle() *Article {
	res := &Article{
		Article: domain.Article{
			ID:              p.ID,
			Slug:            p.Slug,
			Title:           p.Title,
			Author:          p.Author,
			Description:     p.Description,
			ImageURL:        p.Image,
			PageURL:         p.PageURLString,
			OriginalURL:     p.OriginalArticleURL,
			Content:         p.Content,
			ContentReader:   p.ContentReader,
			Archived:        p.IsArchived,
			ReadingProgress: p.ReadingProgressPercent,
			ReadingAnchor:   p.ReadingProgressAnchorIndex,
			PublishedAt:     p.PublishedAt,
		},
		Status: parseStatus(p.State),
	}

	if p.SavedAt != nil {
		res.SavedAt = *p.SavedAt
	}
	if p.CreatedAt != nil {
		res.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		res.UpdatedAt = *p.UpdatedAt
	}

	for _, l := range p.Labels {
		res.Labels = append(res.Labels, l.Name)
	}

	for _, h := range p.Highlights {
		hl := domain.Highlight{
			ID:         h.ID,
			ArticleID:  p.ID,
			ShortID:    h.ShortID,
			Quote:      h.Quote,
			Prefix:     h.Prefix,
			Suffix:     h.Suffix,
			Patch:      h.Patch,
			Annotation: h.Annotation,
			SyncStatus: domain.HighlightClean,
		}
		if h.CreatedAt != nil {
			hl.CreatedAt = *h.CreatedAt
		}
		if h.UpdatedAt != nil {
			hl.UpdatedAt = *h.UpdatedAt
		}
		res.Highlights = append(res.Highlights, hl)
	}

	return res
}
