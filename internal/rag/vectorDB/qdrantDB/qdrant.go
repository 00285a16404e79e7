package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/rag/vectorDB"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

// passageNamespace keys the deterministic point ids derived from passage ids.
var passageNamespace = uuid.MustParse("6f1f4a8e-4a36-4f43-9d0c-3c7f3b6f2a11")

type ClientConfig struct {
	Host   string
	Port   int
	UseTLS bool
	APIKey string
}

// NewClient connects to Qdrant over gRPC.
func NewClient(cfg ClientConfig) (*qdrant.Client, error) {
	if cfg.Host == "" {
		cfg.Host = config.QdrantHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		APIKey:   cfg.APIKey,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}
	return client, nil
}

type qdrantDB struct {
	client     *qdrant.Client
	collection string
	logger     *logger_i.Logger
}

func New(client *qdrant.Client, collection string) vectorDB.Store {
	return &qdrantDB{
		client:     client,
		collection: collection,
		logger:     logger_i.NewLogger("Qdrant").With("collection", collection),
	}
}

// PointID maps a passage id to the UUID Qdrant requires.
func PointID(passageID string) string {
	return uuid.NewSHA1(passageNamespace, []byte(passageID)).String()
}

func (db *qdrantDB) Reset(ctx context.Context, dimension int) error {
	if db.collection == "" {
		return errors.New("empty collection name")
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	exists, err := db.client.CollectionExists(ctx, db.collection)
	if err != nil {
		return err
	}
	if exists {
		if err := db.client.DeleteCollection(ctx, db.collection); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}

	db.logger.WithTrace(ctx).Debug("Creating collection", "dimension", dimension)
	return db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (db *qdrantDB) Upsert(ctx context.Context, ids []string, vectors [][]float32, passages []commonModels.Passage) error {
	if len(ids) != len(vectors) || len(ids) != len(passages) {
		return fmt.Errorf("mismatch: got %d ids, %d vectors and %d passages", len(ids), len(vectors), len(passages))
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		payload, err := qdrant.TryValueMap(passagePayload(id, passages[i]))
		if err != nil {
			return fmt.Errorf("payload for %s: %w", id, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(id)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err := db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func passagePayload(id string, p commonModels.Passage) map[string]any {
	return map[string]any{
		"passage_id": id,
		"file":       p.File,
		"page":       int64(p.Page),
		"text":       p.Text,
	}
}

func (db *qdrantDB) Search(ctx context.Context, vector []float32, k int) ([]vectorDB.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	result, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		db.logger.WithTrace(ctx).Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := make([]vectorDB.Match, 0, len(result))
	for _, hit := range result {
		id := hit.GetPayload()["passage_id"].GetStringValue()
		if id == "" {
			continue
		}
		matches = append(matches, vectorDB.Match{ID: id, Score: hit.GetScore()})
	}
	vectorDB.SortMatches(matches)
	return matches, nil
}

func (db *qdrantDB) Count(ctx context.Context) (int, error) {
	n, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (db *qdrantDB) Drop(ctx context.Context) error {
	exists, err := db.client.CollectionExists(ctx, db.collection)
	if err != nil || !exists {
		return err
	}
	return db.client.DeleteCollection(ctx, db.collection)
}
