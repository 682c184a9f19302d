package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// articleContentQuery requests everything the local record needs in one call.
// The slug variable is overloaded by the server: it accepts either the item's
// slug or its identifier, so callers may pass whichever they hold.
const articleContentQuery = `
query GetArticle($username: String!, $slug: String!) {
  article(username: $username, slug: $slug) {
    ... on ArticleSuccess {
      article {
        id
        slug
        title
        author
        description
        image
        pageURLString
        originalArticleUrl
        content
        contentReader
        isArchived
        readingProgressPercent
        readingProgressAnchorIndex
        state
        publishedAt
        savedAt
        createdAt
        updatedAt
        labels { name }
        highlights {
          id
          shortId
          quote
          prefix
          suffix
          patch
          annotation
          createdAt
          updatedAt
        }
      }
    }
    ... on ArticleError {
      errorCodes
    }
  }
}`

// Client issues article-content queries against the remote service. A single
// call makes exactly one attempt; retrying is the caller's concern.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient creates a query client for the given endpoint. The token, if not
// empty, is sent as the Authorization header on every request.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// GetArticleContent fetches the rendered content of one item. It returns the
// decoded success branch, or an error wrapping ErrNetwork (transport or
// deserialization failure) or ErrBadData (server reported the error branch).
func (c *Client) GetArticleContent(ctx context.Context, username, itemID string) (*Article, error) {
	reqBody := queryRequest{
		Query: articleContentQuery,
		Variables: map[string]any{
			"username": username,
			"slug":     itemID,
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal article query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err() // cancellation is not a data or network error
		}
		return nil, fmt.Errorf("article query for %q: %w: %w", itemID, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("article query for %q: %w: unexpected status code %d", itemID, ErrNetwork, resp.StatusCode)
	}

	var parsed articleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode article response for %q: %w: %w", itemID, ErrNetwork, err)
	}

	if codes := parsed.Data.Article.ErrorCodes; len(codes) > 0 {
		return nil, fmt.Errorf("article query for %q: %w: server reported %s", itemID, ErrBadData, strings.Join(codes, ", "))
	}

	if parsed.Data.Article.Article == nil {
		return nil, fmt.Errorf("article query for %q: %w: empty payload", itemID, ErrNetwork)
	}

	return parsed.Data.Article.Article.toArticle(), nil
}
