package fetcher

import (
	"context"
	"errors"

	"github.com/go-pkgz/lgr"
)

// PrefetchArticles warms the local store for a batch of items. Items are
// processed strictly sequentially so only one remote fetch is in flight per
// sweep; each item runs its own polling loop with an independent counter and
// always bypasses the cache. All outcomes are discarded: the sweep exists for
// the persistence side effect only. A sweep without a resolved user is a
// no-op; cancellation during a wait ends the sweep silently.
func (f *Fetcher) PrefetchArticles(ctx context.Context, itemIDs []string, username string) {
	if username == "" {
		lgr.Printf("[WARN] prefetch skipped, no user resolved")
		return
	}

	lgr.Printf("[INFO] prefetching %d items", len(itemIDs))

	warmed := 0
	for _, id := range itemIDs {
		if ctx.Err() != nil {
			lgr.Printf("[DEBUG] prefetch sweep cancelled after %d items", warmed)
			return
		}

		if _, err := f.fetchWithRetry(ctx, id, username); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				lgr.Printf("[DEBUG] prefetch sweep cancelled after %d items", warmed)
				return
			}
			lgr.Printf("[DEBUG] prefetch %s: %v", id, err)
			continue
		}
		warmed++
	}

	lgr.Printf("[INFO] prefetch completed, %d of %d items warmed", warmed, len(itemIDs))
}
