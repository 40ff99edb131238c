package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const DefaultWriteBatchSize = 20

type WriteResult struct {
	Inserted   int
	Duplicates int
}

func (r *WriteResult) add(o WriteResult) {
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
}

// Writer inserts documents in bounded unordered batches and treats duplicate
// keys as partial success.
type Writer struct {
	store     DocumentStore
	batchSize int
	logger    *zap.Logger
}

func NewWriter(store DocumentStore, batchSize int, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultWriteBatchSize
	}
	return &Writer{store: store, batchSize: batchSize, logger: logger}
}

func (w *Writer) WriteParents(ctx context.Context, docs []ParentDoc) (WriteResult, error) {
	return writeBatches(ctx, w, KindParent, docs, w.store.InsertParents)
}

// WriteChildren must be called after the children's parents were written.
func (w *Writer) WriteChildren(ctx context.Context, docs []ChildDoc) (WriteResult, error) {
	return writeBatches(ctx, w, KindChild, docs, w.store.InsertChildren)
}

func writeBatches[T any](ctx context.Context, w *Writer, kind string, docs []T, insert func(context.Context, []T) (int, error)) (WriteResult, error) {
	var total WriteResult

	for start := 0; start < len(docs); start += w.batchSize {
		end := min(start+w.batchSize, len(docs))
		batch := docs[start:end]

		n, err := insert(ctx, batch)
		if err != nil {
			dup, ok := AsDuplicateKey(err)
			if !ok {
				return total, fmt.Errorf("insert %s batch %d-%d: %w", kind, start, end, err)
			}
			w.logger.Debug("duplicate keys in batch",
				zap.String("kind", kind),
				zap.Int("inserted", dup.Inserted),
				zap.Int("duplicates", dup.Duplicates),
			)
			total.add(WriteResult{Inserted: dup.Inserted, Duplicates: dup.Duplicates})
			continue
		}
		total.add(WriteResult{Inserted: n})
	}

	return total, nil
}
