package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Ianodad/Vector11/pkg/embedding"
	"github.com/Ianodad/Vector11/repository"
)

// Store is an in-process DocumentStore for dry runs and tests. Search is an
// exhaustive dot-product scan.
type Store struct {
	mu        sync.RWMutex
	dimension int
	parents   map[string]repository.ParentDoc
	children  map[string]repository.ChildDoc
	order     []string
	urls      map[string]struct{}
}

func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.parents = make(map[string]repository.ParentDoc)
	s.children = make(map[string]repository.ChildDoc)
	s.urls = make(map[string]struct{})
	s.order = nil
}

func (s *Store) EnsureCollection(_ context.Context, dimension int, allowRecreate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 || s.dimension == dimension {
		s.dimension = dimension
		return nil
	}
	if !allowRecreate {
		return fmt.Errorf("%w: collection has %d, configured %d", repository.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.reset()
	s.dimension = dimension
	return nil
}

func (s *Store) InsertParents(_ context.Context, docs []repository.ParentDoc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted, dups := 0, 0
	for _, d := range docs {
		if s.exists(d.ID) {
			dups++
			continue
		}
		s.parents[d.ID] = d
		s.order = append(s.order, d.ID)
		s.urls[d.URL] = struct{}{}
		inserted++
	}
	return result(inserted, dups)
}

func (s *Store) InsertChildren(_ context.Context, docs []repository.ChildDoc) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted, dups := 0, 0
	for _, d := range docs {
		if s.exists(d.ID) {
			dups++
			continue
		}
		if s.dimension > 0 && len(d.Vector) != s.dimension {
			return inserted, fmt.Errorf("child %s: %w: got %d, want %d", d.ID, repository.ErrDimensionMismatch, len(d.Vector), s.dimension)
		}
		s.children[d.ID] = d
		s.order = append(s.order, d.ID)
		s.urls[d.URL] = struct{}{}
		inserted++
	}
	return result(inserted, dups)
}

func (s *Store) exists(id string) bool {
	if _, ok := s.parents[id]; ok {
		return true
	}
	_, ok := s.children[id]
	return ok
}

func result(inserted, dups int) (int, error) {
	if dups > 0 {
		return inserted, &repository.DuplicateKeyError{Inserted: inserted, Duplicates: dups}
	}
	return inserted, nil
}

func (s *Store) SearchChildren(_ context.Context, vector []float32, k int) ([]repository.ChildDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   repository.ChildDoc
		score float32
		pos   int
	}
	hits := make([]scored, 0, len(s.children))
	for pos, id := range s.order {
		if c, ok := s.children[id]; ok {
			hits = append(hits, scored{doc: c, score: embedding.Dot(vector, c.Vector), pos: pos})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	out := make([]repository.ChildDoc, len(hits))
	for i, h := range hits {
		out[i] = h.doc
	}
	return out, nil
}

func (s *Store) FindParents(_ context.Context, ids []string) ([]repository.ParentDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.ParentDoc
	for _, id := range ids {
		if p, ok := s.parents[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) HasURL(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok, nil
}

// Count returns the number of parents and children stored.
func (s *Store) Count() (parents, children int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parents), len(s.children)
}

func (s *Store) Close(context.Context) error { return nil }
