package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ianodad/Vector11/repository"
)

func TestStore_InsertReportsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureCollection(ctx, 2, false))

	n, err := s.InsertParents(ctx, []repository.ParentDoc{{ID: "p1", URL: "u"}, {ID: "p2", URL: "u"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertParents(ctx, []repository.ParentDoc{{ID: "p2"}, {ID: "p3"}})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, dup.Inserted)
	assert.Equal(t, 1, dup.Duplicates)

	parents, children := s.Count()
	assert.Equal(t, 3, parents)
	assert.Equal(t, 0, children)
}

func TestStore_SearchChildrenRanksByDotProduct(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureCollection(ctx, 2, false))

	_, err := s.InsertChildren(ctx, []repository.ChildDoc{
		{ID: "a", ParentID: "p", Vector: []float32{1, 0}},
		{ID: "b", ParentID: "p", Vector: []float32{0, 1}},
		{ID: "c", ParentID: "q", Vector: []float32{0.7, 0.7}},
	})
	require.NoError(t, err)

	hits, err := s.SearchChildren(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
}

func TestStore_FindParentsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.InsertParents(ctx, []repository.ParentDoc{{ID: "p1", Content: "one"}})
	require.NoError(t, err)

	got, err := s.FindParents(ctx, []string{"missing", "p1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0].Content)
}

func TestStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureCollection(ctx, 4, false))
	_, err := s.InsertChildren(ctx, []repository.ChildDoc{{ID: "c", Vector: []float32{1, 2, 3, 4}, URL: "u"}})
	require.NoError(t, err)

	assert.ErrorIs(t, s.EnsureCollection(ctx, 8, false), repository.ErrDimensionMismatch)

	require.NoError(t, s.EnsureCollection(ctx, 8, true))
	_, children := s.Count()
	assert.Zero(t, children)
	ok, err := s.HasURL(ctx, "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_HasURL(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.InsertParents(ctx, []repository.ParentDoc{{ID: "p", URL: "https://example.com/a"}})
	require.NoError(t, err)

	ok, err := s.HasURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasURL(ctx, "https://example.com/b")
	require.NoError(t, err)
	assert.False(t, ok)
}
