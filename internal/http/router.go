// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/healthsphere/go-health-backend/internal/auth"
	"github.com/healthsphere/go-health-backend/internal/config"
	"github.com/healthsphere/go-health-backend/internal/http/handlers"
	"github.com/healthsphere/go-health-backend/internal/http/middleware"
	"github.com/healthsphere/go-health-backend/internal/llm"
	"github.com/healthsphere/go-health-backend/internal/ocr"
	"github.com/healthsphere/go-health-backend/internal/prefs"
	"github.com/healthsphere/go-health-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability (tracing, metrics), compression, rate limiting, CORS
// and security headers, health and metrics endpoints, and the versioned
// public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Structured logging
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. Gzip compression
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit: JSON bodies are small; the upload ceiling
	// plus form overhead bounds multipart requests.
	r.Use(limitBody(cfg.Upload.MaxBytes + 1<<20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) Compress responses (extractions and histories are text-heavy)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    false,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← clients/db/config
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	narrative := &services.NarrativeClient{LLM: llm.NewClient(cfg.LLM)}
	extractor := ocr.NewClient(cfg.Upload)
	prefStore := prefs.NewStore(db)

	checkinSvc := services.NewCheckinService(db, narrative, prefStore)
	checkinSvc.HistoryLimit = cfg.CheckinWindow
	insightsSvc := services.NewInsightsService(db)
	insightsSvc.Window = cfg.CheckinWindow

	h := handlers.New(
		services.NewAuthService(db, tokens),
		checkinSvc,
		services.NewChatService(db, narrative, prefStore),
		services.NewUploadService(db, narrative, extractor, cfg.Upload),
		insightsSvc,
		services.NewEmergencyService(),
	)

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// Public: accounts and emergency lookup
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.GET("/emergency/nearby", h.NearbyAmbulances)

	// Chat works with or without a token; an invalid token is still rejected.
	chat := api.Group("", middleware.OptionalAuth(tokens))
	{
		chat.POST("/chat", h.SendChat)
		chat.POST("/chat/regenerate", h.RegenerateChat)
		chat.GET("/chat/history", h.ChatHistory)
		chat.DELETE("/chat", h.ClearChat)
	}

	// Everything else requires a verified bearer token.
	authed := api.Group("", middleware.RequireAuth(tokens))
	{
		authed.GET("/auth/me", h.Me)

		authed.GET("/checkin/session", h.CheckinSessionStart)
		authed.POST("/checkin/submit", h.SubmitCheckin)
		authed.GET("/checkins", h.ListCheckins)
		authed.GET("/checkin/flags/:field", h.GetCheckinFlag)
		authed.PUT("/checkin/flags/:field", h.SetCheckinFlag)

		authed.POST("/uploads", h.ProcessUpload)
		authed.GET("/uploads", h.ListUploads)
		authed.GET("/uploads/:id/analysis", h.GetUploadAnalysis)

		authed.GET("/risk/series", h.RiskSeries)
		authed.GET("/risk/summary", h.RiskSummary)
		authed.GET("/dashboard/insights", h.DashboardInsights)
		authed.GET("/dashboard/activity", h.DashboardActivity)
		authed.POST("/feedback", h.SubmitFeedback)
	}

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
