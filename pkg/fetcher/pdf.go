package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/evjev/readstash/pkg/store"
)

// taskGroup tracks detached fire-and-forget tasks so shutdown can drain them
type taskGroup struct {
	wg sync.WaitGroup
}

func (g *taskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

func (g *taskGroup) Wait() {
	g.wg.Wait()
}

// fetchPDF downloads the binary document for a PDF article and stores it on
// the record matching the slug. Fire-and-forget: only a 2xx response with a
// non-empty body is accepted, every other outcome is dropped without retry
// and nothing is ever reported back to the fetch caller.
func (f *Fetcher) fetchPDF(slug, pageURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.pdfTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		lgr.Printf("[DEBUG] pdf request for %s: %v", slug, err)
		return
	}

	resp, err := f.pdfClient.Do(req)
	if err != nil {
		lgr.Printf("[DEBUG] pdf download for %s: %v", slug, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		lgr.Printf("[DEBUG] pdf download for %s: unexpected status code %d", slug, resp.StatusCode)
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		lgr.Printf("[DEBUG] pdf download for %s: %v", slug, err)
		return
	}
	if len(data) == 0 {
		lgr.Printf("[DEBUG] pdf download for %s: empty body", slug)
		return
	}

	if err := f.store.SaveArticlePDF(ctx, slug, data); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			lgr.Printf("[DEBUG] no record with slug %s, pdf discarded", slug)
			return
		}
		lgr.Printf("[WARN] failed to store pdf for %s: %v", slug, err)
		return
	}

	lgr.Printf("[INFO] stored pdf for %s, %d bytes", slug, len(data))
}
