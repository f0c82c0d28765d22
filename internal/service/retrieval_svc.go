package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
)

// Fragment is one retrieved piece of grounding context with its source
// metadata, in the backend's similarity order.
type Fragment struct {
	Content  string                 `json:"content"`
	Source   string                 `json:"source,omitempty"`
	Page     int                    `json:"page,omitempty"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RetrievalService answers similarity queries over a conversation's indexed
// documents. It resolves index and namespace with the exact same function
// ingestion uses; a conversation with nothing indexed yields an empty result,
// not an error.
type RetrievalService struct {
	resolver    *IndexNamespaceResolver
	index       VectorIndex
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

func NewRetrievalService(resolver *IndexNamespaceResolver, index VectorIndex, cfg *config.Config) *RetrievalService {
	defaultTopK := cfg.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	maxTopK := cfg.MaxTopK
	if maxTopK <= 0 {
		maxTopK = 50
	}
	return &RetrievalService{
		resolver:    resolver,
		index:       index,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      slog.Default().With("component", "retrieval"),
	}
}

func (s *RetrievalService) Retrieve(ctx context.Context, query, ownerID, conversationID string, topK int) ([]Fragment, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	indexName, namespace := s.resolver.Resolve(ownerID, conversationID)

	exists, err := s.index.IndexExists(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	if !exists {
		s.logger.Debug("index absent, returning empty result",
			"index", indexName, "namespace", namespace)
		return []Fragment{}, nil
	}

	hits, err := s.index.Search(ctx, indexName, namespace, query, topK)
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			return []Fragment{}, nil
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	fragments := make([]Fragment, len(hits))
	for i, hit := range hits {
		fragment := Fragment{
			Content:  hit.Content,
			Score:    hit.Score,
			Metadata: hit.Metadata,
		}
		if source, ok := hit.Metadata["filename"].(string); ok {
			fragment.Source = source
		}
		switch page := hit.Metadata["page"].(type) {
		case int64:
			fragment.Page = int(page)
		case int:
			fragment.Page = page
		}
		fragments[i] = fragment
	}
	return fragments, nil
}
