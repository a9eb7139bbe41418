package chains

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/castle/internal/api/response"
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/service"
)

// Handler handles templated chain requests
type Handler struct {
	chainService *service.ChainService
}

// NewHandler creates a new chains handler
func NewHandler(chainService *service.ChainService) *Handler {
	return &Handler{chainService: chainService}
}

// RegisterRoutes registers chain routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/summarize", h.Summarize)
	r.POST("/qa", h.QA)
	r.POST("/explain-code", h.ExplainCode)
	r.POST("/creative-write", h.CreativeWrite)
	r.POST("/creative", h.CreativeWrite)
}

// Summarize summarizes a conversation or a block of text
func (h *Handler) Summarize(c *gin.Context) {
	var req domain.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.chainService.Summarize(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QA answers a question from supplied or retrieved context
func (h *Handler) QA(c *gin.Context) {
	var req domain.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.chainService.QA(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExplainCode explains a code snippet in plain language
func (h *Handler) ExplainCode(c *gin.Context) {
	var req domain.CodeExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.chainService.ExplainCode(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreativeWrite writes a piece in the requested style
func (h *Handler) CreativeWrite(c *gin.Context) {
	var req domain.CreativeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.chainService.CreativeWrite(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
