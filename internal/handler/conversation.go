package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

type ConversationHandler struct {
	docSvc *service.DocumentService
}

func NewConversationHandler(docSvc *service.DocumentService) *ConversationHandler {
	return &ConversationHandler{docSvc: docSvc}
}

// Delete tears down a whole conversation: every document's vectors, blobs and
// rows, then the vector namespace itself.
func (h *ConversationHandler) Delete(c *gin.Context) {
	ownerID := c.Query("owner_id")
	conversationID := c.Param("id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required"})
		return
	}

	result, err := h.docSvc.DeleteConversation(c.Request.Context(), ownerID, conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "partial": result})
		return
	}

	c.JSON(http.StatusOK, result)
}
