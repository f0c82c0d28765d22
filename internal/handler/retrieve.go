package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MatheusOliveiraSilva/ChatWithDocs-API/internal/service"
)

type RetrieveHandler struct {
	retrievalSvc *service.RetrievalService
}

func NewRetrieveHandler(retrievalSvc *service.RetrievalService) *RetrieveHandler {
	return &RetrieveHandler{retrievalSvc: retrievalSvc}
}

type RetrieveRequest struct {
	Query          string `json:"query" binding:"required"`
	OwnerID        string `json:"owner_id" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
	TopK           int    `json:"top_k"`
}

type RetrieveResponse struct {
	Fragments []service.Fragment `json:"fragments"`
	Count     int                `json:"count"`
}

func (h *RetrieveHandler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fragments, err := h.retrievalSvc.Retrieve(
		c.Request.Context(),
		req.Query,
		req.OwnerID,
		req.ConversationID,
		req.TopK,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, RetrieveResponse{
		Fragments: fragments,
		Count:     len(fragments),
	})
}
