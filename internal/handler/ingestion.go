package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/model"
	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

type IngestionHandler struct {
	docSvc *service.DocumentService
	ingest *service.IngestService
	queue  *service.IngestQueue
}

func NewIngestionHandler(docSvc *service.DocumentService, ingest *service.IngestService, queue *service.IngestQueue) *IngestionHandler {
	return &IngestionHandler{docSvc: docSvc, ingest: ingest, queue: queue}
}

// Process indexes one document. By default the task is queued and picked up
// by a worker; pass ?sync=true to run the pipeline inline.
func (h *IngestionHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := h.docSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if doc.IndexStatus == model.IndexStatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "document is already being processed"})
		return
	}

	if c.Query("sync") == "true" {
		result, err := h.ingest.IngestDocument(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":      "queued",
		"document_id": id.String(),
	})
}

type ProcessConversationRequest struct {
	OwnerID        string `json:"owner_id" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
}

// ProcessConversation queues every unprocessed document of a conversation.
func (h *IngestionHandler) ProcessConversation(c *gin.Context) {
	var req ProcessConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, err := h.ingest.PendingDocuments(c.Request.Context(), req.OwnerID, req.ConversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	queued := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.IndexStatus == model.IndexStatusProcessing {
			continue
		}
		if err := h.queue.Enqueue(c.Request.Context(), doc.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		queued = append(queued, doc.ID.String())
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":       "queued",
		"document_ids": queued,
		"count":        len(queued),
	})
}

// DeleteFromIndex removes a document's vectors without touching the stored
// blob or the document record itself.
func (h *IngestionHandler) DeleteFromIndex(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	result, err := h.ingest.DeleteDocumentFromIndex(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
