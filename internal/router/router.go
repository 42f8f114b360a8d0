package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examforge/sessiond/internal/config"
	"github.com/examforge/sessiond/internal/handler"
	"github.com/examforge/sessiond/internal/identity"
	"github.com/examforge/sessiond/internal/middleware"
	"github.com/examforge/sessiond/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	identitySvc *identity.Service,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session routes (120 requests per minute per IP;
	// autosave fires on every field edit).
	sessionLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Exam Session Group (Identity Token) ────────────────────────
	examAPI := router.Group("/api/v1/exams")
	examAPI.Use(
		sessionLimiter.Middleware(),
		middleware.RequireIdentity(identitySvc),
	)
	{
		examAPI.GET("/:exam_id/session", handlers.Session.GetSession)
		examAPI.POST("/:exam_id/answers/:question_id", handlers.Session.SaveAnswer)
		examAPI.POST("/:exam_id/check/:question_id", handlers.Session.CheckOne)
		examAPI.POST("/:exam_id/check", handlers.Session.CheckAll)
		examAPI.POST("/:exam_id/submit", handlers.Session.Submit)
		examAPI.GET("/:exam_id/history", handlers.Session.GetHistory)
		examAPI.POST("/:exam_id/history/:index/restore", handlers.Session.RestoreHistory)
	}

	// ─── 2. WebSocket Group (Identity via ?token=) ─────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireIdentity(identitySvc))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.Stream)
	}

	return router
}
