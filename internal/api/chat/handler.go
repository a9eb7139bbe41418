package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/castle/internal/api/response"
	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/service"
	"github.com/liliang-cn/castle/internal/sse"
)

// Handler handles chat and prompt requests
type Handler struct {
	chatService   *service.ChatService
	promptService *service.PromptService
}

// NewHandler creates a new chat handler
func NewHandler(chatService *service.ChatService, promptService *service.PromptService) *Handler {
	return &Handler{
		chatService:   chatService,
		promptService: promptService,
	}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
	r.GET("/prompts", h.ListPrompts)
	r.POST("/prompts", h.SavePrompt)
}

// Chat streams a completion as server-sent events. Validation failures
// are plain JSON 400s; once the stream is open every failure is reported
// as an error event.
func (h *Handler) Chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.chatService.Prepare(&req); err != nil {
		response.Error(c, err)
		return
	}

	sse.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)

	if err := h.chatService.Stream(c.Request.Context(), &req, sse.NewWriter(c.Writer)); err != nil {
		_ = c.Error(err)
	}
}

// ListPrompts returns the stored prompts
func (h *Handler) ListPrompts(c *gin.Context) {
	list, err := h.promptService.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SavePrompt creates or replaces a prompt by name
func (h *Handler) SavePrompt(c *gin.Context) {
	var p domain.Prompt
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, err)
		return
	}

	list, err := h.promptService.Save(&p)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
