package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/pkg/types"
)

const defaultCollection = "planforge_chunks"

// QdrantIndex implements Index against a Qdrant collection
type QdrantIndex struct {
	client         *qdrant.Client
	config         *config.QdrantConfig
	collectionName string
	dimension      int
	logger         logging.Logger
}

// NewQdrantIndex creates a Qdrant-backed vector index
func NewQdrantIndex(cfg *config.QdrantConfig, dimension int, logger logging.Logger) *QdrantIndex {
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	return &QdrantIndex{
		config:         cfg,
		collectionName: collection,
		dimension:      dimension,
		logger:         logger.WithComponent("vectorindex.qdrant"),
	}
}

// Initialize connects and creates the collection if it doesn't exist
func (q *QdrantIndex) Initialize(ctx context.Context) error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   q.config.Host,
		Port:   q.config.Port,
		APIKey: q.config.APIKey,
		UseTLS: q.config.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	q.client = client

	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	exists := false
	for _, name := range collections {
		if name == q.collectionName {
			exists = true
			break
		}
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", q.collectionName, err)
		}
		q.logger.Info("created Qdrant collection", "collection", q.collectionName)
	}

	return nil
}

// Index replaces a document's points: delete-by-filter then batch upsert
func (q *QdrantIndex) Index(ctx context.Context, chunks []types.DocumentChunk, vectors []types.EmbeddingVector) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	docID := chunks[0].DocID

	if err := q.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = q.chunkToPoint(chunk, &vectors[i])
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert chunks for %s: %w", docID, err)
	}

	q.logger.Debug("indexed document", "doc_id", docID, "chunks", len(chunks))
	return nil
}

// Query performs similarity search with optional metadata filters
func (q *QdrantIndex) Query(ctx context.Context, vector []float64, limit int, filters *types.SearchFilters) ([]QueryResult, error) {
	if limit <= 0 {
		return []QueryResult{}, nil
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(float64ToFloat32(vector)...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(filters),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query Qdrant: %w", err)
	}

	results := make([]QueryResult, 0, len(points))
	for _, point := range points {
		chunk, err := pointToChunk(point.GetPayload())
		if err != nil {
			q.logger.Warn("skipping malformed point", "error", err.Error())
			continue
		}
		results = append(results, QueryResult{
			Chunk:  chunk,
			Cosine: float64(point.GetScore()),
		})
	}
	return results, nil
}

// DeleteDocument removes all points for a document
func (q *QdrantIndex) DeleteDocument(ctx context.Context, docID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: docFilter(docID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	return nil
}

// DocumentCount is not cheaply available from Qdrant; returns the point
// count as an upper-bound health signal
func (q *QdrantIndex) DocumentCount(ctx context.Context) (int, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// HealthCheck verifies the Qdrant connection
func (q *QdrantIndex) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close releases the client connection
func (q *QdrantIndex) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// chunkToPoint converts a chunk and its vector to a Qdrant point. Point
// ids are UUIDs derived deterministically from the chunk id so repeated
// indexing is idempotent.
func (q *QdrantIndex) chunkToPoint(chunk types.DocumentChunk, vector *types.EmbeddingVector) *qdrant.PointStruct {
	pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunk.ChunkID)).String()

	payload := map[string]*qdrant.Value{
		"chunk_id":         stringValue(chunk.ChunkID),
		"doc_id":           stringValue(chunk.DocID),
		"chunk_index":      intValue(int64(chunk.Index)),
		"content":          stringValue(chunk.Content),
		"language":         stringValue(chunk.Metadata.Language),
		"section_index":    intValue(int64(chunk.Metadata.SectionIndex)),
		"chunk_type":       stringValue(chunk.Metadata.ChunkType),
		"quality_score":    doubleValue(chunk.Metadata.QualityScore),
		"content_length":   intValue(int64(chunk.Metadata.ContentLength)),
		"is_building_code": boolValue(chunk.Metadata.IsBuildingCode),
		"model_id":         stringValue(vector.ModelID),
	}

	return &qdrant.PointStruct{
		Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID}},
		Vectors: qdrant.NewVectors(float64ToFloat32(vector.Vector)...),
		Payload: payload,
	}
}

// pointToChunk rebuilds a chunk from a point payload
func pointToChunk(payload map[string]*qdrant.Value) (types.DocumentChunk, error) {
	chunkID := payload["chunk_id"].GetStringValue()
	if chunkID == "" {
		return types.DocumentChunk{}, fmt.Errorf("point payload missing chunk_id")
	}
	return types.DocumentChunk{
		ChunkID: chunkID,
		DocID:   payload["doc_id"].GetStringValue(),
		Index:   int(payload["chunk_index"].GetIntegerValue()),
		Content: payload["content"].GetStringValue(),
		Metadata: types.ChunkMetadata{
			Language:       payload["language"].GetStringValue(),
			SectionIndex:   int(payload["section_index"].GetIntegerValue()),
			ChunkType:      payload["chunk_type"].GetStringValue(),
			QualityScore:   payload["quality_score"].GetDoubleValue(),
			ContentLength:  int(payload["content_length"].GetIntegerValue()),
			IsBuildingCode: payload["is_building_code"].GetBoolValue(),
		},
	}, nil
}

// buildFilter translates search filters into a Qdrant filter
func buildFilter(filters *types.SearchFilters) *qdrant.Filter {
	if filters == nil {
		return nil
	}

	var must []*qdrant.Condition
	if filters.Language != "" {
		must = append(must, keywordCondition("language", filters.Language))
	}
	if filters.IsBuildingCode != nil {
		must = append(must, boolCondition("is_building_code", *filters.IsBuildingCode))
	}
	if len(filters.DocIDs) > 0 {
		var should []*qdrant.Condition
		for docID := range filters.DocIDs {
			should = append(should, keywordCondition("doc_id", docID))
		}
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Filter{
				Filter: &qdrant.Filter{Should: should},
			},
		})
	}
	if filters.MinContentLength > 0 {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "content_length",
					Range: &qdrant.Range{
						Gte: qdrant.PtrOf(float64(filters.MinContentLength)),
					},
				},
			},
		})
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func docFilter(docID string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{keywordCondition("doc_id", docID)}}
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func boolCondition(key string, value bool) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Boolean{Boolean: value},
				},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}

func doubleValue(f float64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: f}}
}

func boolValue(b bool) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: b}}
}

func float64ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
