package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

type IndexStatus string

const (
	IndexStatusPending    IndexStatus = "pending"
	IndexStatusProcessing IndexStatus = "processing"
	IndexStatusCompleted  IndexStatus = "completed"
	IndexStatusFailed     IndexStatus = "failed"
)

// DocMetadata holds the well-known per-document metadata keys plus an open
// extension map for caller-supplied fields. IndexName and Namespace are set
// only after a successful indexing pass and stripped again on de-indexing.
type DocMetadata struct {
	IndexName  string                 `json:"index_name,omitempty"`
	Namespace  string                 `json:"namespace,omitempty"`
	Progress   int                    `json:"indexing_progress,omitempty"`
	ChunkCount int                    `json:"chunk_count,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
	Extension  string                 `json:"extension,omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty"`
}

func (m DocMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *DocMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = DocMetadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// ClearIndexInfo strips everything a de-indexed document must not carry.
func (m *DocMetadata) ClearIndexInfo() {
	m.IndexName = ""
	m.Namespace = ""
	m.Progress = 0
	m.ChunkCount = 0
}

// Document represents one uploaded file and its indexing state.
type Document struct {
	BaseModel
	OwnerID        string      `gorm:"size:100;not null;index" json:"owner_id"`
	ConversationID string      `gorm:"size:255;not null;index" json:"conversation_id"`
	FileName       string      `gorm:"size:500;not null" json:"file_name"`
	OriginalName   string      `gorm:"size:500" json:"original_name"`
	StoragePath    string      `gorm:"size:1000;not null" json:"storage_path"`
	MimeType       string      `gorm:"size:100;not null" json:"mime_type"`
	Size           int64       `gorm:"not null" json:"size"`
	IsProcessed    bool        `gorm:"default:false" json:"is_processed"`
	IndexStatus    IndexStatus `gorm:"size:50;default:'pending'" json:"index_status"`
	Metadata       DocMetadata `gorm:"type:jsonb" json:"metadata"`

	// Relations
	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk is one embedded fragment of a document. VectorID stays empty
// until the chunk's batch has been upserted into the vector index.
type DocumentChunk struct {
	BaseModel
	DocumentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkIndex    int       `gorm:"not null" json:"chunk_index"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	ChunkMetadata JSONMap   `gorm:"type:jsonb" json:"chunk_metadata"`
	VectorID      string    `gorm:"size:255" json:"vector_id"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
