package repository

import "context"

// DocumentStore holds parents and children in one collection with a vector
// index over the children.
//
// InsertParents and InsertChildren return the number of documents written. When
// some documents already existed the error is a *DuplicateKeyError carrying the
// partial count; any other error means the batch outcome is unknown.
type DocumentStore interface {
	// EnsureCollection creates the collection and vector index if needed. An
	// existing index with a different dimension yields ErrDimensionMismatch
	// unless allowRecreate is set, in which case everything is dropped.
	EnsureCollection(ctx context.Context, dimension int, allowRecreate bool) error
	InsertParents(ctx context.Context, docs []ParentDoc) (int, error)
	InsertChildren(ctx context.Context, docs []ChildDoc) (int, error)
	// SearchChildren returns up to k children nearest to vector, best first.
	SearchChildren(ctx context.Context, vector []float32, k int) ([]ChildDoc, error)
	// FindParents returns the parents that exist among ids, in no particular order.
	FindParents(ctx context.Context, ids []string) ([]ParentDoc, error)
	HasURL(ctx context.Context, url string) (bool, error)
	Close(ctx context.Context) error
}
