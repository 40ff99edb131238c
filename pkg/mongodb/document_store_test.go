package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ianodad/Vector11/repository"
)

func bulkErr(codes ...int) mongo.BulkWriteException {
	var bwe mongo.BulkWriteException
	for i, c := range codes {
		bwe.WriteErrors = append(bwe.WriteErrors, mongo.BulkWriteError{
			WriteError: mongo.WriteError{Index: i, Code: c, Message: "write error"},
		})
	}
	return bwe
}

func TestClassifyInsertError_Success(t *testing.T) {
	n, err := classifyInsertError(nil, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestClassifyInsertError_DuplicatesArePartialSuccess(t *testing.T) {
	n, err := classifyInsertError(bulkErr(11000, 11000, 11000), 20)
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 17, n)
	assert.Equal(t, 17, dup.Inserted)
	assert.Equal(t, 3, dup.Duplicates)
}

func TestClassifyInsertError_MixedErrorsAreFatal(t *testing.T) {
	n, err := classifyInsertError(bulkErr(11000, 121), 20)
	require.Error(t, err)
	_, dup := repository.AsDuplicateKey(err)
	assert.False(t, dup)
	assert.Equal(t, 18, n)
}

func TestClassifyInsertError_WriteConcernIsFatal(t *testing.T) {
	bwe := bulkErr(11000)
	bwe.WriteConcernError = &mongo.WriteConcernError{Code: 64, Message: "waiting for replication timed out"}
	_, err := classifyInsertError(bwe, 5)
	require.Error(t, err)
	_, dup := repository.AsDuplicateKey(err)
	assert.False(t, dup)
}

func TestClassifyInsertError_OtherErrors(t *testing.T) {
	boom := errors.New("server selection timeout")
	n, err := classifyInsertError(boom, 20)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}

func TestVectorDimension(t *testing.T) {
	idx := bson.M{
		"name": "vector_index",
		"latestDefinition": bson.M{
			"fields": bson.A{
				bson.M{"type": "filter", "path": "type"},
				bson.M{"type": "vector", "path": "vector", "numDimensions": int32(1024), "similarity": "dotProduct"},
			},
		},
	}
	dim, ok := vectorDimension(idx)
	require.True(t, ok)
	assert.Equal(t, 1024, dim)

	_, ok = vectorDimension(bson.M{"name": "x"})
	assert.False(t, ok)

	nested := bson.M{"latestDefinition": bson.D{{Key: "fields", Value: bson.A{
		bson.D{{Key: "type", Value: "vector"}, {Key: "numDimensions", Value: int64(1536)}},
	}}}}
	dim, ok = vectorDimension(nested)
	require.True(t, ok)
	assert.Equal(t, 1536, dim)
}

func TestDocumentMapping(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	child := repository.ChildDoc{
		ID: "c", ParentID: "p", Content: "text", Source: "BBC", URL: "https://bbc.co.uk/x",
		Category: "news", ScrapedAt: at, Vector: []float32{0.5},
	}
	d := fromChild(child)
	assert.Equal(t, "child", d.Type)
	assert.Equal(t, "2025-03-01T12:00:00Z", d.ScrapedAt)
	assert.Equal(t, child, d.child())

	p := fromParent(repository.ParentDoc{ID: "p", ScrapedAt: at})
	assert.Equal(t, "parent", p.Type)
	assert.Empty(t, p.ParentID)
	assert.Nil(t, p.Vector)
}

func TestVectorSearchPipeline(t *testing.T) {
	p := vectorSearchPipeline("vector_index", []float32{1, 2}, 10)
	require.Len(t, p, 2)
	stage := p[0].Map()["$vectorSearch"].(bson.D).Map()
	assert.Equal(t, "vector_index", stage["index"])
	assert.Equal(t, 100, stage["numCandidates"])
	assert.Equal(t, 10, stage["limit"])
}
