package content

import (
	"fmt"
	"strings"

	"github.com/markusmobius/go-trafilatura"
)

// Renderer converts stored article HTML into a plain-text rendition
type Renderer struct {
	opts trafilatura.Options
}

// NewRenderer creates a renderer with extraction defaults tuned for
// already-rendered article bodies
func NewRenderer() *Renderer {
	return &Renderer{
		opts: trafilatura.Options{
			EnableFallback:  true,
			ExcludeComments: true,
			ExcludeTables:   false,
			IncludeImages:   false,
			IncludeLinks:    false,
		},
	}
}

// Render extracts readable text from an HTML document
func (r *Renderer) Render(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("empty document")
	}

	result, err := trafilatura.Extract(strings.NewReader(html), r.opts)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return "", fmt.Errorf("no text content extracted")
	}

	return strings.TrimSpace(result.ContentText), nil
}
