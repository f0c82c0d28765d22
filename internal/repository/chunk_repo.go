package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&chunks).Error
}

func (r *ChunkRepository) FindByDocumentID(ctx context.Context, documentID uuid.UUID, limit, offset int) ([]model.DocumentChunk, int64, error) {
	var chunks []model.DocumentChunk
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).
		Where("document_id = ?", documentID)

	query.Count(&total)
	err := query.Order("chunk_index ASC").Limit(limit).Offset(offset).Find(&chunks).Error
	return chunks, total, err
}

// VectorIDs returns the non-empty vector ids of a document's chunks in
// chunk_index order.
func (r *ChunkRepository) VectorIDs(ctx context.Context, documentID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).
		Where("document_id = ? AND vector_id <> ''", documentID).
		Order("chunk_index ASC").
		Pluck("vector_id", &ids).Error
	return ids, err
}

func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

// DeleteByDocumentID hard-deletes a document's chunk rows. Re-ingestion calls
// this before a fresh pass so stale rows never outlive their vectors.
func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("document_id = ?", documentID).
		Delete(&model.DocumentChunk{}).Error
}
