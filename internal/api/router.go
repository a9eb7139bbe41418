package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/api/chains"
	"github.com/liliang-cn/castle/internal/api/chat"
	"github.com/liliang-cn/castle/internal/api/middleware"
	"github.com/liliang-cn/castle/internal/api/rag"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	StaticDir    string
}

// Services bundles the services exposed over HTTP
type Services struct {
	Chat   *service.ChatService
	Prompt *service.PromptService
	RAG    *service.RAGService
	Ingest *service.IngestService
	Chain  *service.ChainService
}

// SetupRouter sets up the Gin router
func SetupRouter(svc Services, cfg RouterConfig, m *metrics.Metrics, logger *zap.Logger) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog(logger, m))

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth(cfg.APIKey))

	chat.NewHandler(svc.Chat, svc.Prompt).RegisterRoutes(api)
	rag.NewHandler(svc.RAG, svc.Ingest).RegisterRoutes(api.Group("/rag"))
	chains.NewHandler(svc.Chain).RegisterRoutes(api.Group("/chains"))

	// Static client build
	if cfg.StaticDir != "" {
		if err := SetupStaticRoutes(r, cfg.StaticDir); err != nil {
			return nil, err
		}
	}

	return r, nil
}
