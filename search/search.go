package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/repository"
)

const DefaultTopK = 10

// ContextStore is the read side of repository.DocumentStore.
type ContextStore interface {
	SearchChildren(ctx context.Context, vector []float32, k int) ([]repository.ChildDoc, error)
	FindParents(ctx context.Context, ids []string) ([]repository.ParentDoc, error)
}

// Retrieved is the context assembled for one query.
type Retrieved struct {
	Text string
	// Sources are the distinct page URLs behind Text, best match first.
	Sources  []string
	Children int
	Parents  int
	// Fallback is set when no parent was found and Text holds child texts.
	Fallback bool
}

func (r *Retrieved) Empty() bool {
	return r == nil || strings.TrimSpace(r.Text) == ""
}

// Retriever searches children and answers with their parents.
type Retriever struct {
	store  ContextStore
	logger *zap.Logger
}

func NewRetriever(store ContextStore, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, logger: logger}
}

// Retrieve finds the k children nearest to vector and returns the text of
// their parents, in the order the children ranked them. Children whose parents
// are all missing are used as-is. No hits gives an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, k int) (*Retrieved, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	children, err := r.store.SearchChildren(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search children: %w", err)
	}
	if len(children) == 0 {
		r.logger.Debug("no children matched query")
		return &Retrieved{}, nil
	}

	parentIDs := distinct(children, func(c repository.ChildDoc) string { return c.ParentID })
	parents, err := r.store.FindParents(ctx, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("find parents: %w", err)
	}

	out := &Retrieved{Children: len(children)}
	if len(parents) == 0 {
		r.logger.Warn("children have no parents, using child text",
			zap.Int("children", len(children)),
		)
		texts := make([]string, len(children))
		for i, c := range children {
			texts[i] = c.Content
		}
		out.Text = strings.Join(texts, "\n\n")
		out.Sources = distinct(children, func(c repository.ChildDoc) string { return c.URL })
		out.Fallback = true
		return out, nil
	}

	byID := make(map[string]repository.ParentDoc, len(parents))
	for _, p := range parents {
		byID[p.ID] = p
	}
	var ordered []repository.ParentDoc
	for _, id := range parentIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	texts := make([]string, len(ordered))
	for i, p := range ordered {
		texts[i] = p.Content
	}
	out.Text = strings.Join(texts, "\n\n")
	out.Sources = distinct(ordered, func(p repository.ParentDoc) string { return p.URL })
	out.Parents = len(ordered)
	return out, nil
}

// distinct returns the non-empty keys of items in first-seen order.
func distinct[T any](items []T, key func(T) string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
