package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/repository"
)

// DocumentService owns the document lifecycle around the pipeline: upload
// into object storage, listing, download URLs and full teardown.
type DocumentService struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	storage   *ObjectStorage
	ingest    *IngestService
	cfg       *config.Config
	logger    *slog.Logger
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	storage *ObjectStorage,
	ingest *IngestService,
	cfg *config.Config,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		storage:   storage,
		ingest:    ingest,
		cfg:       cfg,
		logger:    slog.Default().With("component", "documents"),
	}
}

// Upload stores the blob and creates the pending document record. The caps on
// documents per conversation and per owner are enforced here, before any
// bytes are written.
func (s *DocumentService) Upload(ctx context.Context, ownerID, conversationID, originalName, mimeType string, size int64, reader io.Reader) (*model.Document, error) {
	if size > s.cfg.MaxUploadSize {
		return nil, fmt.Errorf("file too large: %d bytes (limit %d)", size, s.cfg.MaxUploadSize)
	}

	if count, err := s.docRepo.CountByConversation(ctx, ownerID, conversationID); err != nil {
		return nil, fmt.Errorf("count conversation documents: %w", err)
	} else if s.cfg.MaxDocumentsPerConversation > 0 && count >= int64(s.cfg.MaxDocumentsPerConversation) {
		return nil, fmt.Errorf("conversation document limit reached (%d)", s.cfg.MaxDocumentsPerConversation)
	}

	if count, err := s.docRepo.CountByOwner(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("count owner documents: %w", err)
	} else if s.cfg.MaxDocumentsPerOwner > 0 && count >= int64(s.cfg.MaxDocumentsPerOwner) {
		return nil, fmt.Errorf("owner document limit reached (%d)", s.cfg.MaxDocumentsPerOwner)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	fileName := uuid.New().String() + ext
	storagePath := fmt.Sprintf("documents/%s/%s/%s", ownerID, conversationID, fileName)

	if err := s.storage.Upload(ctx, storagePath, reader, size, mimeType); err != nil {
		return nil, err
	}

	doc := &model.Document{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		FileName:       fileName,
		OriginalName:   originalName,
		StoragePath:    storagePath,
		MimeType:       mimeType,
		Size:           size,
		IndexStatus:    model.IndexStatusPending,
		Metadata:       model.DocMetadata{Extension: ext},
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		// Keep the store consistent with the database: drop the orphan blob.
		if rerr := s.storage.Remove(ctx, storagePath); rerr != nil {
			s.logger.Warn("failed to remove orphan blob", "path", storagePath, "error", rerr)
		}
		return nil, fmt.Errorf("create document record: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, ownerID, conversationID string, limit, offset int) ([]model.Document, int64, error) {
	return s.docRepo.FindByOwner(ctx, ownerID, conversationID, limit, offset)
}

func (s *DocumentService) ListChunks(ctx context.Context, documentID uuid.UUID, limit, offset int) ([]model.DocumentChunk, int64, error) {
	return s.chunkRepo.FindByDocumentID(ctx, documentID, limit, offset)
}

// DownloadURL returns a presigned, time-limited URL for the stored blob.
func (s *DocumentService) DownloadURL(ctx context.Context, id uuid.UUID, expiry time.Duration) (string, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignedGetURL(ctx, doc.StoragePath, expiry)
}

// Delete tears a document down across all three stores. The vector and blob
// steps are best-effort and may run in any order relative to each other; only
// the relational deletion is required to succeed.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if result, derr := s.ingest.DeleteDocumentFromIndex(ctx, id); derr != nil {
		s.logger.Warn("vector cleanup failed", "document_id", id, "error", derr)
	} else if result.Status != "success" {
		s.logger.Warn("vector cleanup degraded",
			"document_id", id, "status", result.Status, "message", result.Message)
	}

	if err := s.storage.Remove(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("blob removal failed", "document_id", id, "error", err)
	}

	if err := s.chunkRepo.DeleteByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("delete chunk rows: %w", err)
	}
	return s.docRepo.Delete(ctx, id)
}

// DeleteConversation removes every document of a conversation plus the whole
// vector namespace.
func (s *DocumentService) DeleteConversation(ctx context.Context, ownerID, conversationID string) (*ConversationDeletionResult, error) {
	result, err := s.ingest.DeleteConversationFromIndex(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.FindByConversation(ctx, ownerID, conversationID)
	if err != nil {
		return result, fmt.Errorf("list conversation documents: %w", err)
	}
	for _, doc := range docs {
		if err := s.storage.Remove(ctx, doc.StoragePath); err != nil {
			s.logger.Warn("blob removal failed", "document_id", doc.ID, "error", err)
		}
		if err := s.chunkRepo.DeleteByDocumentID(ctx, doc.ID); err != nil {
			return result, fmt.Errorf("delete chunk rows: %w", err)
		}
		if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
			return result, fmt.Errorf("delete document row: %w", err)
		}
	}
	return result, nil
}
