package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
)

// SearchHit is one similarity-search result in backend ranking order.
type SearchHit struct {
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// VectorIndex is the vector-database capability consumed by ingestion and
// retrieval. An index maps to a backend collection; a namespace is a logical
// partition inside it scoping vectors to one owner/conversation pair.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, index string) error
	IndexExists(ctx context.Context, index string) (bool, error)
	ListIndexes(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, index, namespace string, ids, texts []string, metadatas []map[string]interface{}) error
	DeleteByIDs(ctx context.Context, index, namespace string, ids []string) error
	DeleteByDocumentID(ctx context.Context, index, namespace, documentID string) error
	DeleteNamespace(ctx context.Context, index, namespace string) error
	Search(ctx context.Context, index, namespace, query string, topK int) ([]SearchHit, error)
}

// QdrantIndex implements VectorIndex on Qdrant. Namespaces are stored as a
// mandatory payload field and every read/delete is filtered on it. Point ids
// must be UUIDs in Qdrant, so the durable string vector id is mapped to its
// deterministic UUIDv5 — re-upserting the same id overwrites the same point.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder Embedder
}

func NewQdrantIndex(cfg *config.Config, embedder Embedder) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.QdrantHost,
		Port: cfg.QdrantPort,
	})
	if err != nil {
		return nil, fmt.Errorf("init qdrant client: %w", err)
	}
	return &QdrantIndex{client: client, embedder: embedder}, nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func (q *QdrantIndex) ListIndexes(ctx context.Context) ([]string, error) {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

func (q *QdrantIndex) IndexExists(ctx context.Context, index string) (bool, error) {
	collections, err := q.ListIndexes(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range collections {
		if name == index {
			return true, nil
		}
	}
	return false, nil
}

// EnsureIndex lazily creates the collection. Concurrent callers racing on the
// same name treat "already exists" as success.
func (q *QdrantIndex) EnsureIndex(ctx context.Context, index string) error {
	exists, err := q.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: index,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.embedder.Dimensions()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("create collection %s: %w", index, err)
	}
	return nil
}

// Upsert embeds texts and stores one point per id. Idempotent: identical ids
// overwrite their prior vectors.
func (q *QdrantIndex) Upsert(ctx context.Context, index, namespace string, ids, texts []string, metadatas []map[string]interface{}) error {
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("upsert: ids, texts and metadatas must have equal length")
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := q.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed texts: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i := range ids {
		payload := make(map[string]interface{}, len(metadatas[i])+3)
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		payload["vector_id"] = ids[i]
		payload["namespace"] = namespace
		payload["content"] = texts[i]

		points[i] = &qdrant.PointStruct{
			Id:      pointID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := true
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: index,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (q *QdrantIndex) DeleteByIDs(ctx context.Context, index, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	wait := true
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: index,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// DeleteByDocumentID removes every vector of a document within a namespace,
// including vectors that predate per-chunk id tracking.
func (q *QdrantIndex) DeleteByDocumentID(ctx context.Context, index, namespace, documentID string) error {
	return q.deleteByFilter(ctx, index, &qdrant.Filter{
		Must: []*qdrant.Condition{
			matchKeyword("namespace", namespace),
			matchKeyword("document_id", documentID),
		},
	})
}

// DeleteNamespace removes every vector of an owner/conversation partition.
func (q *QdrantIndex) DeleteNamespace(ctx context.Context, index, namespace string) error {
	return q.deleteByFilter(ctx, index, &qdrant.Filter{
		Must: []*qdrant.Condition{
			matchKeyword("namespace", namespace),
		},
	})
}

func (q *QdrantIndex) deleteByFilter(ctx context.Context, index string, filter *qdrant.Filter) error {
	wait := true
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: index,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("delete by filter: %w", err)
	}
	return nil
}

// Search embeds the query and returns up to topK hits ordered by descending
// similarity as reported by the backend. No local re-ranking.
func (q *QdrantIndex) Search(ctx context.Context, index, namespace, query string, topK int) ([]SearchHit, error) {
	exists, err := q.IndexExists(ctx, index)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	vector, err := q.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := uint64(topK)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: index,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{matchKeyword("namespace", namespace)},
		},
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	hits := make([]SearchHit, 0, len(points))
	for _, point := range points {
		hit := SearchHit{
			Score:    point.Score,
			Metadata: make(map[string]interface{}, len(point.Payload)),
		}
		for key, value := range point.Payload {
			if key == "content" {
				hit.Content, _ = valueToInterface(value).(string)
				continue
			}
			hit.Metadata[key] = valueToInterface(value)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// pointID maps a durable string vector id to the deterministic UUID the
// backend requires for point identity.
func pointID(vectorID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(vectorID)).String())
}

func matchKeyword(field, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func valueToInterface(v *qdrant.Value) interface{} {
	switch kind := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		out := make([]interface{}, 0, len(kind.ListValue.Values))
		for _, item := range kind.ListValue.Values {
			out = append(out, valueToInterface(item))
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]interface{}, len(kind.StructValue.Fields))
		for key, item := range kind.StructValue.Fields {
			out[key] = valueToInterface(item)
		}
		return out
	default:
		return nil
	}
}
