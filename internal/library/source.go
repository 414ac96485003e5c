package library

import (
	"context"

	"github.com/Aman-CERP/gujimcp/internal/snippet"
)

// snippetSource produces snippets for a request against one snapshot.
type snippetSource interface {
	Snippets(ctx context.Context, snap *snapshot, req snippet.Request) ([]snippet.Snippet, error)
}

// directSource extracts on every call.
type directSource struct{}

func (directSource) Snippets(ctx context.Context, snap *snapshot, req snippet.Request) ([]snippet.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap.extractor.Extract(req)
}

// cachedSource reads through the snippet cache, stamped with the snapshot
// version.
type cachedSource struct {
	cache *snippet.Cache
}

func (s cachedSource) Snippets(ctx context.Context, snap *snapshot, req snippet.Request) ([]snippet.Snippet, error) {
	// The extractor only reads the corpus, so a computation that outlives
	// its caller's snapshot reference is still safe.
	extractor := snap.extractor
	return s.cache.GetOrCompute(ctx, snippet.KeyOf(req), snap.version, func() ([]snippet.Snippet, error) {
		return extractor.Extract(req)
	})
}
