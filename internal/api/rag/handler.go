package rag

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/castle/internal/api/response"
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/service"
)

// Handler handles document storage and retrieval requests
type Handler struct {
	ragService    *service.RAGService
	ingestService *service.IngestService
}

// NewHandler creates a new RAG handler
func NewHandler(ragService *service.RAGService, ingestService *service.IngestService) *Handler {
	return &Handler{
		ragService:    ragService,
		ingestService: ingestService,
	}
}

// RegisterRoutes registers RAG routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/upsert", h.Upsert)
	r.POST("/ingest", h.Ingest)
	r.POST("/query", h.Query)
}

// Upsert stores raw texts
func (h *Handler) Upsert(c *gin.Context) {
	var req domain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.ragService.Upsert(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ingest loads, splits and stores a document. Loading failures are
// reported in the body with success false.
func (h *Handler) Ingest(c *gin.Context) {
	var req domain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, h.ingestService.Ingest(c.Request.Context(), &req))
}

// Query runs a similarity search
func (h *Handler) Query(c *gin.Context) {
	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.ragService.Query(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
