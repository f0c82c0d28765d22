package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/config"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

// DocumentStore is the relational persistence the pipeline needs for
// documents. Satisfied by repository.DocumentRepository.
type DocumentStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	FindByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error)
	FindPendingByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error)
}

// ChunkStore is the relational persistence for chunk rows. Satisfied by
// repository.ChunkRepository.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error
	VectorIDs(ctx context.Context, documentID uuid.UUID) ([]string, error)
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error
}

// IngestService orchestrates download, extraction, chunking, embedding and
// batched indexing for one document per invocation. Invocations are stateless
// and independent; callers serialize concurrent runs for the same document.
type IngestService struct {
	docs      DocumentStore
	chunks    ChunkStore
	blobs     BlobStore
	extractor *TextExtractor
	chunker   *Chunker
	resolver  *IndexNamespaceResolver
	index     VectorIndex
	batchSize int
	maxPages  int
	logger    *slog.Logger
}

func NewIngestService(
	docs DocumentStore,
	chunks ChunkStore,
	blobs BlobStore,
	extractor *TextExtractor,
	chunker *Chunker,
	resolver *IndexNamespaceResolver,
	index VectorIndex,
	cfg *config.Config,
) *IngestService {
	batchSize := cfg.IngestBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	return &IngestService{
		docs:      docs,
		chunks:    chunks,
		blobs:     blobs,
		extractor: extractor,
		chunker:   chunker,
		resolver:  resolver,
		index:     index,
		batchSize: batchSize,
		maxPages:  cfg.MaxDocumentPages,
		logger:    slog.Default().With("component", "ingest"),
	}
}

type IngestResult struct {
	Status          string `json:"status"`
	DocumentID      string `json:"document_id"`
	ChunksProcessed int    `json:"chunks_processed"`
	IndexName       string `json:"index_name"`
	Namespace       string `json:"namespace"`
}

// IngestDocument runs the full pipeline for one document. The document moves
// pending→processing immediately, then to completed or failed. A failed or
// completed document may be re-ingested: vector ids are deterministic so
// upserts overwrite, and stale chunk rows are cleared before the fresh pass.
func (s *IngestService) IngestDocument(ctx context.Context, documentID uuid.UUID) (*IngestResult, error) {
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("load document: %w", err)
	}

	// Commit processing before any heavy work so status is observable.
	doc.IndexStatus = model.IndexStatusProcessing
	doc.IsProcessed = false
	doc.Metadata.LastError = ""
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	result, err := s.run(ctx, doc)
	if err != nil {
		doc.IndexStatus = model.IndexStatusFailed
		doc.Metadata.LastError = err.Error()
		// The run may have failed because ctx was cancelled; the failure
		// commit must still go through or the document stays processing
		// and cannot be re-ingested.
		if uerr := s.docs.Update(context.WithoutCancel(ctx), doc); uerr != nil {
			s.logger.Error("failed to record ingestion failure",
				"document_id", doc.ID, "error", uerr)
		}
		return nil, err
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID,
		"chunks", result.ChunksProcessed,
		"index", result.IndexName,
		"namespace", result.Namespace)
	return result, nil
}

// PendingDocuments lists a conversation's documents that have not been
// indexed yet, for conversation-wide processing.
func (s *IngestService) PendingDocuments(ctx context.Context, ownerID, conversationID string) ([]model.Document, error) {
	return s.docs.FindPendingByConversation(ctx, ownerID, conversationID)
}

func (s *IngestService) run(ctx context.Context, doc *model.Document) (*IngestResult, error) {
	// A prior partial run may have left chunk rows behind; clear them so the
	// fresh pass owns every row it writes.
	if err := s.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("clear stale chunks: %w", err)
	}

	tmpPath, err := s.blobs.DownloadToTemp(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer os.Remove(tmpPath)

	if s.maxPages > 0 {
		if pages, perr := s.extractor.PageCount(tmpPath, doc.MimeType); perr == nil && pages > s.maxPages {
			return nil, fmt.Errorf("document has %d pages, limit is %d", pages, s.maxPages)
		}
	}

	text, err := s.extractor.Extract(tmpPath, doc.MimeType)
	if err != nil {
		return nil, err
	}

	pieces := s.chunker.Split(text)
	total := len(pieces)

	indexName, namespace := s.resolver.Resolve(doc.OwnerID, doc.ConversationID)
	if err := s.index.EnsureIndex(ctx, indexName); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	for start := 0; start < total; start += s.batchSize {
		// Batch boundaries are the only cancellation points.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := pieces[start:end]

		ids := make([]string, len(batch))
		texts := make([]string, len(batch))
		metadatas := make([]map[string]interface{}, len(batch))
		for i, piece := range batch {
			ids[i] = VectorID(namespace, doc.ID, piece.Index)
			texts[i] = piece.Content
			metadatas[i] = s.chunkMetadata(doc, piece, total)
		}

		if err := s.index.Upsert(ctx, indexName, namespace, ids, texts, metadatas); err != nil {
			return nil, fmt.Errorf("index batch starting at chunk %d: %w", start, err)
		}

		// Persist the batch's rows before moving on: a crash after this
		// commit loses at most the trailing batches, never the pairing
		// between a committed row and its vector.
		rows := make([]model.DocumentChunk, len(batch))
		for i, piece := range batch {
			rows[i] = model.DocumentChunk{
				DocumentID:    doc.ID,
				ChunkIndex:    piece.Index,
				Content:       piece.Content,
				ChunkMetadata: model.JSONMap(metadatas[i]),
				VectorID:      ids[i],
			}
		}
		if err := s.chunks.CreateBatch(ctx, rows); err != nil {
			return nil, fmt.Errorf("persist batch starting at chunk %d: %w", start, err)
		}

		doc.Metadata.Progress = end * 100 / total
		doc.Metadata.ChunkCount = end
		if err := s.docs.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("commit progress: %w", err)
		}
	}

	doc.IsProcessed = true
	doc.IndexStatus = model.IndexStatusCompleted
	doc.Metadata.IndexName = indexName
	doc.Metadata.Namespace = namespace
	doc.Metadata.Progress = 100
	doc.Metadata.ChunkCount = total
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	return &IngestResult{
		Status:          "success",
		DocumentID:      doc.ID.String(),
		ChunksProcessed: total,
		IndexName:       indexName,
		Namespace:       namespace,
	}, nil
}

// chunkMetadata merges per-chunk position info with document-level metadata.
func (s *IngestService) chunkMetadata(doc *model.Document, piece Chunk, total int) map[string]interface{} {
	meta := map[string]interface{}{
		"document_id":     doc.ID.String(),
		"conversation_id": doc.ConversationID,
		"owner_id":        doc.OwnerID,
		"filename":        doc.OriginalName,
		"mime_type":       doc.MimeType,
		"chunk_index":     piece.Index,
		"chunk_total":     total,
		"start_offset":    piece.Start,
		"end_offset":      piece.End,
	}
	for k, v := range doc.Metadata.Custom {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}
	return meta
}

// VectorID builds the deterministic vector id for a chunk. Re-ingestion
// recomputes the same ids, so upserts overwrite instead of duplicating.
func VectorID(namespace string, documentID uuid.UUID, chunkIndex int) string {
	return fmt.Sprintf("%s_%s_%d", namespace, documentID, chunkIndex)
}
