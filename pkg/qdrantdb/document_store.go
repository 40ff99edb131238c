package qdrantdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/repository"
)

// VectorName is the named vector holding child embeddings. Parents are stored
// as payload-only points.
const VectorName = "child"

var pointNamespace = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

type DocumentStore struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// pointID maps a content hash onto the UUID space Qdrant accepts.
func pointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

func (s *DocumentStore) EnsureCollection(ctx context.Context, dimension int, allowRecreate bool) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: collection exists: %w", err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("qdrant: collection info: %w", err)
		}
		existing, ok := vectorSize(info)
		if !ok || existing == uint64(dimension) {
			return nil
		}
		if !allowRecreate {
			return fmt.Errorf("%w: collection %q has %d dimensions, configured %d",
				repository.ErrDimensionMismatch, s.collection, existing, dimension)
		}
		s.logger.Warn("dropping collection to change vector dimension",
			zap.String("collection", s.collection),
			zap.Uint64("from", existing),
			zap.Int("to", dimension),
		)
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("qdrant: delete collection: %w", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Dot,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}

	for _, field := range []string{"type", "url", "doc_id"} {
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("qdrant: create %s index: %w", field, err)
		}
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

func vectorSize(info *qdrant.CollectionInfo) (uint64, bool) {
	vc := info.GetConfig().GetParams().GetVectorsConfig()
	if p, ok := vc.GetParamsMap().GetMap()[VectorName]; ok {
		return p.GetSize(), true
	}
	if p := vc.GetParams(); p != nil {
		return p.GetSize(), true
	}
	return 0, false
}

func parentPayload(p repository.ParentDoc) map[string]any {
	return map[string]any{
		"doc_id":    p.ID,
		"content":   p.Content,
		"source":    p.Source,
		"url":       p.URL,
		"category":  p.Category,
		"scrapedAt": p.ScrapedAt.UTC().Format(time.RFC3339),
		"type":      repository.KindParent,
	}
}

func childPayload(c repository.ChildDoc) map[string]any {
	return map[string]any{
		"doc_id":    c.ID,
		"parentId":  c.ParentID,
		"content":   c.Content,
		"source":    c.Source,
		"url":       c.URL,
		"category":  c.Category,
		"scrapedAt": c.ScrapedAt.UTC().Format(time.RFC3339),
		"type":      repository.KindChild,
	}
}

func str(payload map[string]*qdrant.Value, key string) string {
	return payload[key].GetStringValue()
}

func scrapedAt(payload map[string]*qdrant.Value) time.Time {
	t, _ := time.Parse(time.RFC3339, str(payload, "scrapedAt"))
	return t
}

func parentFromPayload(payload map[string]*qdrant.Value) repository.ParentDoc {
	return repository.ParentDoc{
		ID:        str(payload, "doc_id"),
		Content:   str(payload, "content"),
		Source:    str(payload, "source"),
		URL:       str(payload, "url"),
		Category:  str(payload, "category"),
		ScrapedAt: scrapedAt(payload),
	}
}

func childFromPayload(payload map[string]*qdrant.Value) repository.ChildDoc {
	return repository.ChildDoc{
		ID:        str(payload, "doc_id"),
		ParentID:  str(payload, "parentId"),
		Content:   str(payload, "content"),
		Source:    str(payload, "source"),
		URL:       str(payload, "url"),
		Category:  str(payload, "category"),
		ScrapedAt: scrapedAt(payload),
	}
}

func (s *DocumentStore) InsertParents(ctx context.Context, docs []repository.ParentDoc) (int, error) {
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(d.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
			Payload: qdrant.NewValueMap(parentPayload(d)),
		}
	}
	return s.insertNew(ctx, points)
}

func (s *DocumentStore) InsertChildren(ctx context.Context, docs []repository.ChildDoc) (int, error) {
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewID(pointID(d.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				VectorName: qdrant.NewVector(d.Vector...),
			}),
			Payload: qdrant.NewValueMap(childPayload(d)),
		}
	}
	return s.insertNew(ctx, points)
}

// insertNew upserts only the points that do not exist yet. Qdrant has no
// insert-if-absent, so existing ids are looked up first and reported as
// duplicates.
func (s *DocumentStore) insertNew(ctx context.Context, points []*qdrant.PointStruct) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	ids := make([]*qdrant.PointId, len(points))
	for i, p := range points {
		ids[i] = p.Id
	}
	found, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: get points: %w", err)
	}

	existing := make(map[string]struct{}, len(found))
	for _, p := range found {
		existing[p.GetId().GetUuid()] = struct{}{}
	}

	fresh := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if _, ok := existing[p.GetId().GetUuid()]; !ok {
			fresh = append(fresh, p)
		}
	}

	if len(fresh) > 0 {
		_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         fresh,
		})
		if err != nil {
			return 0, fmt.Errorf("qdrant: upsert: %w", err)
		}
	}

	if dups := len(points) - len(fresh); dups > 0 {
		return len(fresh), &repository.DuplicateKeyError{Inserted: len(fresh), Duplicates: dups}
	}
	return len(fresh), nil
}

func (s *DocumentStore) SearchChildren(ctx context.Context, vector []float32, k int) ([]repository.ChildDoc, error) {
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(VectorName),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", repository.KindChild)},
		},
		Limit:       qdrant.PtrOf(uint64(k)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query: %w", err)
	}

	out := make([]repository.ChildDoc, len(hits))
	for i, h := range hits {
		out[i] = childFromPayload(h.GetPayload())
	}
	return out, nil
}

func (s *DocumentStore) FindParents(ctx context.Context, ids []string) ([]repository.ParentDoc, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = qdrant.NewID(pointID(id))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: get parents: %w", err)
	}

	out := make([]repository.ParentDoc, 0, len(points))
	for _, p := range points {
		if str(p.GetPayload(), "type") != repository.KindParent {
			continue
		}
		out = append(out, parentFromPayload(p.GetPayload()))
	}
	return out, nil
}

func (s *DocumentStore) HasURL(ctx context.Context, url string) (bool, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("url", url)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return false, fmt.Errorf("qdrant: count by url: %w", err)
	}
	return n > 0, nil
}

func (s *DocumentStore) Close(context.Context) error {
	return s.client.Close()
}
