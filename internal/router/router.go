package router

import (
	"net/http"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/aznacademy/aznexam-backend/internal/handler"
	"github.com/aznacademy/aznexam-backend/internal/middleware"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Entry   *handler.EntryHandler
	Session *handler.SessionHandler
	Test    *handler.TestHandler
	Access  *handler.AccessHandler
	Result  *handler.ResultHandler
	Retest  *handler.RetestHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.AdminKeyHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the entry endpoint. One exam hall shares an IP, so
	// the bucket is per-hall, not per-student.
	entryLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.GET("/tests", handlers.Entry.ListTests)
		publicAPI.POST("/entry/start", entryLimiter.Middleware(), handlers.Entry.StartSession)
	}

	// ─── 2. Session Group (Session Token) ──────────────────────────────
	sessionAPI := router.Group("/api/v1/session")
	sessionAPI.Use(middleware.RequireSessionToken(authService))
	{
		sessionAPI.GET("", handlers.Session.GetPaper)
		sessionAPI.GET("/state", handlers.Session.GetState)
		sessionAPI.PUT("/answers/:question_id", handlers.Session.SaveAnswer)
		sessionAPI.POST("/violations", handlers.Session.ReportViolation)
		sessionAPI.POST("/submit", handlers.Session.Submit)
		sessionAPI.GET("/result", handlers.Session.GetResult)
	}

	// ─── 3. Admin Group (Shared Key) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminKey(authService))
	{
		adminAPI.GET("/tests", handlers.Test.ListTests)
		adminAPI.POST("/tests", handlers.Test.CreateTest)
		adminAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		adminAPI.PATCH("/tests/:test_id", handlers.Test.UpdateTest)
		adminAPI.DELETE("/tests/:test_id", handlers.Test.DeleteTest)
		adminAPI.POST("/tests/:test_id/publish", handlers.Test.SetPublished)

		adminAPI.GET("/tests/:test_id/questions", handlers.Test.ListQuestions)
		adminAPI.PUT("/tests/:test_id/questions", handlers.Test.ReplaceQuestions)

		adminAPI.GET("/tests/:test_id/access-code", handlers.Access.CurrentAccessCode)

		adminAPI.GET("/tests/:test_id/submissions", handlers.Result.ListSubmissions)
		adminAPI.GET("/submissions/:submission_id", handlers.Result.GetSubmission)

		adminAPI.POST("/tests/:test_id/retest-keys", handlers.Retest.IssueKey)
		adminAPI.GET("/tests/:test_id/retest-keys", handlers.Retest.ListKeys)
	}

	// ─── 4. WebSocket Group (Shared Key via Query) ─────────────────────
	ws := router.Group("/ws/v1/admin")
	ws.Use(middleware.RequireAdminKey(authService))
	{
		ws.GET("/tests/:test_id/monitor", handlers.Monitor.MonitorTest)
	}

	return router
}
