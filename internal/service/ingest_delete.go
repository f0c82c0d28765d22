package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

// DeletionStep records the outcome of one best-effort cleanup step so callers
// can tell a full cleanup from a degraded one.
type DeletionStep struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

func (s *DeletionStep) fail(err error) {
	s.Attempted = true
	s.Succeeded = false
	s.Error = err.Error()
}

func (s *DeletionStep) ok() {
	s.Attempted = true
	s.Succeeded = true
}

type DeletionResult struct {
	Status            string       `json:"status"` // success | warning | error
	DocumentID        string       `json:"document_id"`
	Message           string       `json:"message,omitempty"`
	IndexName         string       `json:"index_name,omitempty"`
	Namespace         string       `json:"namespace,omitempty"`
	ChunksRemovedByID int          `json:"chunks_removed_by_id"`
	DeleteByID        DeletionStep `json:"delete_by_id"`
	DeleteByFilter    DeletionStep `json:"delete_by_filter"`
	StatusReset       DeletionStep `json:"status_reset"`
}

// DeleteDocumentFromIndex removes a document's vectors and resets its
// indexing state. Every vector-side step is independently best-effort; the
// only outcomes reported as status "error" are a missing document (returned
// as ErrNotFound) and a failed relational commit.
func (s *IngestService) DeleteDocumentFromIndex(ctx context.Context, documentID uuid.UUID) (*DeletionResult, error) {
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("load document: %w", err)
	}

	// Prefer the index/namespace recorded at ingestion time; recompute for
	// documents whose metadata was lost or never set.
	indexName := doc.Metadata.IndexName
	namespace := doc.Metadata.Namespace
	if indexName == "" || namespace == "" {
		indexName, namespace = s.resolver.Resolve(doc.OwnerID, doc.ConversationID)
	}

	result := &DeletionResult{
		DocumentID: doc.ID.String(),
		IndexName:  indexName,
		Namespace:  namespace,
	}

	exists, err := s.index.IndexExists(ctx, indexName)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("list indexes: %v", err)
		return result, nil
	}
	if !exists {
		// Nothing to delete on the vector side; still reset local state.
		s.resetIndexState(ctx, doc, result)
		result.Status = "warning"
		result.Message = "index not found"
		return result, nil
	}

	vectorIDs, err := s.chunks.VectorIDs(ctx, doc.ID)
	if err != nil {
		s.logger.Warn("failed to collect vector ids", "document_id", doc.ID, "error", err)
	}
	if len(vectorIDs) > 0 {
		if err := s.index.DeleteByIDs(ctx, indexName, namespace, vectorIDs); err != nil {
			result.DeleteByID.fail(err)
			s.logger.Warn("delete by ids failed", "document_id", doc.ID, "error", err)
		} else {
			result.DeleteByID.ok()
			result.ChunksRemovedByID = len(vectorIDs)
		}
	}

	// Always run the filter pass too: some vectors may predate per-chunk id
	// tracking, and it covers anything the id pass missed.
	if err := s.index.DeleteByDocumentID(ctx, indexName, namespace, doc.ID.String()); err != nil {
		result.DeleteByFilter.fail(err)
		s.logger.Warn("delete by filter failed", "document_id", doc.ID, "error", err)
	} else {
		result.DeleteByFilter.ok()
	}

	s.resetIndexState(ctx, doc, result)

	switch {
	case !result.StatusReset.Succeeded:
		result.Status = "error"
	case (result.DeleteByID.Attempted && !result.DeleteByID.Succeeded) ||
		!result.DeleteByFilter.Succeeded:
		result.Status = "warning"
	default:
		result.Status = "success"
	}
	return result, nil
}

func (s *IngestService) resetIndexState(ctx context.Context, doc *model.Document, result *DeletionResult) {
	doc.IsProcessed = false
	doc.IndexStatus = model.IndexStatusPending
	doc.Metadata.ClearIndexInfo()

	if err := s.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		result.StatusReset.fail(fmt.Errorf("delete chunk rows: %w", err))
		return
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		result.StatusReset.fail(fmt.Errorf("commit status reset: %w", err))
		return
	}
	result.StatusReset.ok()
}

type ConversationDeletionResult struct {
	Status           string           `json:"status"`
	OwnerID          string           `json:"owner_id"`
	ConversationID   string           `json:"conversation_id"`
	Documents        []DeletionResult `json:"documents"`
	NamespaceDeleted bool             `json:"namespace_deleted"`
	Message          string           `json:"message,omitempty"`
}

// DeleteConversationFromIndex de-indexes every document of a conversation and
// then sweeps the whole namespace as a final safety net.
func (s *IngestService) DeleteConversationFromIndex(ctx context.Context, ownerID, conversationID string) (*ConversationDeletionResult, error) {
	docs, err := s.docs.FindByConversation(ctx, ownerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list conversation documents: %w", err)
	}

	indexName, namespace := s.resolver.Resolve(ownerID, conversationID)
	result := &ConversationDeletionResult{
		Status:         "success",
		OwnerID:        ownerID,
		ConversationID: conversationID,
	}

	for _, doc := range docs {
		docResult, err := s.DeleteDocumentFromIndex(ctx, doc.ID)
		if err != nil {
			// Deleted concurrently: nothing left to clean for this one.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Documents = append(result.Documents, *docResult)
		if docResult.Status == "error" {
			result.Status = "error"
		} else if docResult.Status == "warning" && result.Status == "success" {
			result.Status = "warning"
		}
	}

	exists, err := s.index.IndexExists(ctx, indexName)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("namespace sweep skipped: %v", err)
		return result, nil
	}
	if exists {
		if err := s.index.DeleteNamespace(ctx, indexName, namespace); err != nil {
			s.logger.Warn("namespace sweep failed",
				"index", indexName, "namespace", namespace, "error", err)
			if result.Status == "success" {
				result.Status = "warning"
			}
			result.Message = fmt.Sprintf("namespace sweep failed: %v", err)
		} else {
			result.NamespaceDeleted = true
		}
	}
	return result, nil
}
