package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/repository"
)

const duplicateKeyCode = 11000

type document struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	ParentID  string    `bson:"parentId,omitempty"`
	Source    string    `bson:"source"`
	URL       string    `bson:"url"`
	Category  string    `bson:"category"`
	ScrapedAt string    `bson:"scrapedAt"`
	Type      string    `bson:"type"`
	Vector    []float32 `bson:"vector,omitempty"`
}

func fromParent(p repository.ParentDoc) document {
	return document{
		ID:        p.ID,
		Content:   p.Content,
		Source:    p.Source,
		URL:       p.URL,
		Category:  p.Category,
		ScrapedAt: p.ScrapedAt.UTC().Format(time.RFC3339),
		Type:      repository.KindParent,
	}
}

func fromChild(c repository.ChildDoc) document {
	return document{
		ID:        c.ID,
		Content:   c.Content,
		ParentID:  c.ParentID,
		Source:    c.Source,
		URL:       c.URL,
		Category:  c.Category,
		ScrapedAt: c.ScrapedAt.UTC().Format(time.RFC3339),
		Type:      repository.KindChild,
		Vector:    c.Vector,
	}
}

func (d document) scrapedAt() time.Time {
	t, _ := time.Parse(time.RFC3339, d.ScrapedAt)
	return t
}

func (d document) parent() repository.ParentDoc {
	return repository.ParentDoc{
		ID:        d.ID,
		Content:   d.Content,
		Source:    d.Source,
		URL:       d.URL,
		Category:  d.Category,
		ScrapedAt: d.scrapedAt(),
	}
}

func (d document) child() repository.ChildDoc {
	return repository.ChildDoc{
		ID:        d.ID,
		ParentID:  d.ParentID,
		Content:   d.Content,
		Source:    d.Source,
		URL:       d.URL,
		Category:  d.Category,
		ScrapedAt: d.scrapedAt(),
		Vector:    d.Vector,
	}
}

// DocumentStore keeps parents and children in one collection with an Atlas
// vector search index over the children's vector field.
type DocumentStore struct {
	client    *mongo.Client
	db        *mongo.Database
	name      string
	col       *mongo.Collection
	indexName string
	logger    *zap.Logger
}

func newDocumentStore(client *mongo.Client, db *mongo.Database, name, indexName string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		client:    client,
		db:        db,
		name:      name,
		col:       db.Collection(name),
		indexName: indexName,
		logger:    logger,
	}
}

func (s *DocumentStore) EnsureCollection(ctx context.Context, dimension int, allowRecreate bool) error {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: s.name}})
	if err != nil {
		return fmt.Errorf("mongodb: list collections: %w", err)
	}

	if len(names) > 0 {
		existing, found, err := s.indexDimension(ctx)
		if err != nil {
			return err
		}
		if found && existing != dimension {
			if !allowRecreate {
				return fmt.Errorf("%w: index %q has %d dimensions, configured %d",
					repository.ErrDimensionMismatch, s.indexName, existing, dimension)
			}
			s.logger.Warn("dropping collection to change vector dimension",
				zap.String("collection", s.name),
				zap.Int("from", existing),
				zap.Int("to", dimension),
			)
			if err := s.col.Drop(ctx); err != nil {
				return fmt.Errorf("mongodb: drop collection: %w", err)
			}
			names = nil
		} else if found {
			return s.ensureURLIndex(ctx)
		}
	}

	if len(names) == 0 {
		if err := s.db.CreateCollection(ctx, s.name); err != nil {
			return fmt.Errorf("mongodb: create collection: %w", err)
		}
		s.col = s.db.Collection(s.name)
	}

	if err := s.ensureURLIndex(ctx); err != nil {
		return err
	}

	_, err = s.col.SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: vectorIndexDefinition(dimension),
		Options:    options.SearchIndexes().SetName(s.indexName).SetType("vectorSearch"),
	})
	if err != nil {
		return fmt.Errorf("mongodb: create vector index: %w", err)
	}
	s.logger.Info("created vector index",
		zap.String("index", s.indexName),
		zap.Int("dimension", dimension),
	)
	return nil
}

func vectorIndexDefinition(dimension int) bson.D {
	return bson.D{{Key: "fields", Value: bson.A{
		bson.D{
			{Key: "type", Value: "vector"},
			{Key: "path", Value: "vector"},
			{Key: "numDimensions", Value: dimension},
			{Key: "similarity", Value: "dotProduct"},
		},
		bson.D{
			{Key: "type", Value: "filter"},
			{Key: "path", Value: "type"},
		},
	}}}
}

func (s *DocumentStore) ensureURLIndex(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "url", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongodb: create url index: %w", err)
	}
	return nil
}

// indexDimension reads numDimensions from the existing vector index, if any.
func (s *DocumentStore) indexDimension(ctx context.Context) (int, bool, error) {
	cursor, err := s.col.SearchIndexes().List(ctx, options.SearchIndexes().SetName(s.indexName))
	if err != nil {
		return 0, false, fmt.Errorf("mongodb: list search indexes: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var idx bson.M
		if err := cursor.Decode(&idx); err != nil {
			return 0, false, fmt.Errorf("mongodb: decode search index: %w", err)
		}
		if dim, ok := vectorDimension(idx); ok {
			return dim, true, nil
		}
	}
	return 0, false, cursor.Err()
}

// vectorDimension extracts numDimensions from a search index listing entry.
func vectorDimension(idx bson.M) (int, bool) {
	def, ok := asMap(idx["latestDefinition"])
	if !ok {
		return 0, false
	}
	var fields []interface{}
	switch f := def["fields"].(type) {
	case bson.A:
		fields = f
	case []interface{}:
		fields = f
	default:
		return 0, false
	}
	for _, f := range fields {
		field, ok := asMap(f)
		if !ok || field["type"] != "vector" {
			continue
		}
		switch n := field["numDimensions"].(type) {
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case int:
			return n, true
		case float64:
			return int(n), true
		}
	}
	return 0, false
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func (s *DocumentStore) InsertParents(ctx context.Context, docs []repository.ParentDoc) (int, error) {
	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = fromParent(d)
	}
	return s.insertMany(ctx, batch)
}

func (s *DocumentStore) InsertChildren(ctx context.Context, docs []repository.ChildDoc) (int, error) {
	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = fromChild(d)
	}
	return s.insertMany(ctx, batch)
}

func (s *DocumentStore) insertMany(ctx context.Context, batch []interface{}) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	_, err := s.col.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	return classifyInsertError(err, len(batch))
}

// classifyInsertError turns an unordered InsertMany outcome into an inserted
// count. A bulk write exception made only of duplicate key errors becomes a
// *repository.DuplicateKeyError.
func classifyInsertError(err error, total int) (int, error) {
	if err == nil {
		return total, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0, fmt.Errorf("mongodb: insert: %w", err)
	}

	inserted := total - len(bwe.WriteErrors)
	if bwe.WriteConcernError != nil {
		return inserted, fmt.Errorf("mongodb: insert: %w", err)
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return inserted, fmt.Errorf("mongodb: insert: %w", err)
		}
	}

	return inserted, &repository.DuplicateKeyError{
		Inserted:   inserted,
		Duplicates: len(bwe.WriteErrors),
		Cause:      err,
	}
}

func (s *DocumentStore) SearchChildren(ctx context.Context, vector []float32, k int) ([]repository.ChildDoc, error) {
	cursor, err := s.col.Aggregate(ctx, vectorSearchPipeline(s.indexName, vector, k))
	if err != nil {
		return nil, fmt.Errorf("mongodb: vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode search results: %w", err)
	}

	out := make([]repository.ChildDoc, len(docs))
	for i, d := range docs {
		out[i] = d.child()
	}
	return out, nil
}

func vectorSearchPipeline(index string, vector []float32, k int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: k * 10},
			{Key: "limit", Value: k},
			{Key: "filter", Value: bson.D{{Key: "type", Value: repository.KindChild}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "vector", Value: 0}}}},
	}
}

func (s *DocumentStore) FindParents(ctx context.Context, ids []string) ([]repository.ParentDoc, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: "type", Value: repository.KindParent},
	}
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb: find parents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode parents: %w", err)
	}

	out := make([]repository.ParentDoc, len(docs))
	for i, d := range docs {
		out[i] = d.parent()
	}
	return out, nil
}

func (s *DocumentStore) HasURL(ctx context.Context, url string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.D{{Key: "url", Value: url}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongodb: count by url: %w", err)
	}
	return n > 0, nil
}

func (s *DocumentStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
