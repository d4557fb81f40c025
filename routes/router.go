package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/commentstream/backend/attachment"
	"github.com/commentstream/backend/cache"
	"github.com/commentstream/backend/config"
	"github.com/commentstream/backend/controllers"
	"github.com/commentstream/backend/middleware"
	"github.com/commentstream/backend/store"
	"github.com/commentstream/backend/utils"
	"github.com/commentstream/backend/ws"
)

// Deps carries the wired collaborators into the router. Everything is
// constructed in main and injected; nothing here reaches for singletons
// besides configuration.
type Deps struct {
	Store *store.Comments
	Pages *cache.Pages
	Pool  *attachment.Pool
	Hub   *ws.Hub
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(utils.Logger))
	r.Use(middleware.Recovery(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Attachment blobs are plain static files.
	r.Static(cfg.AttachmentBaseURL, cfg.AttachmentDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	commentController := controllers.NewCommentController(deps.Store, deps.Pages, deps.Pool)
	streamHandler := ws.NewHandler(deps.Hub)

	api := r.Group("/api/v1")

	api.GET("/comments", commentController.ListComments)
	api.GET("/comments/stream", streamHandler.Subscribe)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/comments", commentController.CreateComment)
	protected.PATCH("/comments/:id", commentController.UpdateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
