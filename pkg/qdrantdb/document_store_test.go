package qdrantdb

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ianodad/Vector11/repository"
)

func TestPointID(t *testing.T) {
	a := pointID("abc")
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, a, pointID("abc"))
	assert.NotEqual(t, a, pointID("abd"))
}

func TestPayloadRoundTrip(t *testing.T) {
	at := time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)
	child := repository.ChildDoc{
		ID: "c1", ParentID: "p1", Content: "Haaland scored twice",
		Source: "Sky Sports", URL: "https://skysports.com/a", Category: "news", ScrapedAt: at,
	}
	got := childFromPayload(qdrant.NewValueMap(childPayload(child)))
	assert.Equal(t, child, got)

	parent := repository.ParentDoc{ID: "p1", Content: "match report", URL: "https://skysports.com/a", ScrapedAt: at}
	payload := qdrant.NewValueMap(parentPayload(parent))
	assert.Equal(t, "parent", payload["type"].GetStringValue())
	assert.Equal(t, parent, parentFromPayload(payload))
}

func TestVectorSize(t *testing.T) {
	info := &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
					VectorName: {Size: 1024, Distance: qdrant.Distance_Dot},
				}),
			},
		},
	}
	size, ok := vectorSize(info)
	require.True(t, ok)
	assert.Equal(t, uint64(1024), size)

	_, ok = vectorSize(&qdrant.CollectionInfo{})
	assert.False(t, ok)
}
