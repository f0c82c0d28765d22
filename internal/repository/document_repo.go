package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error
}

func (r *DocumentRepository) FindByOwner(ctx context.Context, ownerID string, conversationID string, limit, offset int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("owner_id = ?", ownerID)
	if conversationID != "" {
		query = query.Where("conversation_id = ?", conversationID)
	}

	query.Count(&total)
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error
	return docs, total, err
}

// FindByConversation returns every document of one owner/conversation pair,
// used by conversation-level processing and teardown.
func (r *DocumentRepository) FindByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND conversation_id = ?", ownerID, conversationID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) FindPendingByConversation(ctx context.Context, ownerID, conversationID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND conversation_id = ? AND is_processed = ?", ownerID, conversationID, false).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// ResetStuckProcessing marks documents stranded in processing as failed.
// Run at worker startup so a crash never leaves a document wedged in a
// transient state.
func (r *DocumentRepository) ResetStuckProcessing(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("index_status = ?", model.IndexStatusProcessing).
		Update("index_status", model.IndexStatusFailed)
	return result.RowsAffected, result.Error
}

func (r *DocumentRepository) CountByConversation(ctx context.Context, ownerID, conversationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("owner_id = ? AND conversation_id = ?", ownerID, conversationID).
		Count(&count).Error
	return count, err
}

func (r *DocumentRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, err
}
