package index

import (
	"context"
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Sink is the per-core document store the trackers write to.
type Sink interface {
	// NewBatch starts a batch that commits atomically into this sink.
	NewBatch() *Batch
	// Get returns the document under key, or ErrNotFound.
	Get(ctx context.Context, key string) (Document, error)
	// Find returns the documents matching q, ordered by node id then key.
	Find(ctx context.Context, q Query) ([]Document, error)
	// Count returns the number of documents matching q, ignoring q.Limit.
	Count(ctx context.Context, q Query) (int, error)
	// Watermark returns the watermark of space; zero-valued when never set.
	Watermark(ctx context.Context, space IDSpace) (Watermark, error)
	// LastCommittedGeneration returns the generation of the latest successful commit.
	LastCommittedGeneration(ctx context.Context) (int64, error)
	Close() error
}

// NodeIDs collects the ids of every node document into a bitmap.
func NodeIDs(ctx context.Context, s Sink) (*roaring64.Bitmap, error) {
	docs, err := s.Find(ctx, Query{Type: DocNode})
	if err != nil {
		return nil, err
	}
	bm := roaring64.New()
	for _, d := range docs {
		if d.NodeID > 0 {
			bm.Add(uint64(d.NodeID))
		}
	}
	return bm, nil
}

// Exists reports whether key is present.
func Exists(ctx context.Context, s Sink, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
