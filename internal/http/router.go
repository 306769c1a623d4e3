// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Authentication per route group: extension, parent, operator
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-parental-backend/internal/auth"
	"github.com/tbourn/go-parental-backend/internal/classifier"
	"github.com/tbourn/go-parental-backend/internal/clock"
	"github.com/tbourn/go-parental-backend/internal/config"
	"github.com/tbourn/go-parental-backend/internal/http/handlers"
	"github.com/tbourn/go-parental-backend/internal/http/middleware"
	"github.com/tbourn/go-parental-backend/internal/repo"
	"github.com/tbourn/go-parental-backend/internal/services"
)

var (
	corsMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderAdminToken}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotent-Replayed"}
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per parent/child/IP, bypass on replay)
//  9. CORS and Security headers
//
// Authentication is attached per route group.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cl classifier.Classifier, clk clock.Clock, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// Dependency injection: services ← repo/db/classifier/clock
	catalog := services.NewCatalogService(db, cl, clk, cfg.Classifier.Timeout)
	quota := services.NewQuotaService(db, clk)
	pol := services.NewPolicyService(db, catalog, quota, clk, cfg.AutoBlockCategories)
	locks := services.NewChildLocks()
	usage := services.NewUsageService(db, catalog, quota, pol, clk, locks)
	if cfg.Usage.SessionWindow > 0 {
		usage.SessionWindow = cfg.Usage.SessionWindow
	}
	if cfg.Usage.HeartbeatMax > 0 {
		usage.MaxIncrement = int64(cfg.Usage.HeartbeatMax / time.Second)
	}
	if cfg.Usage.HeartbeatDefault > 0 {
		usage.DefaultIncrement = int64(cfg.Usage.HeartbeatDefault / time.Second)
	}
	if cfg.IdempotencyTTL > 0 {
		usage.IdempotencyTTL = cfg.IdempotencyTTL
	}
	authn := auth.NewAuthenticator(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clk)

	h := handlers.New(handlers.Services{
		Auth:    authn,
		Policy:  pol,
		Usage:   usage,
		Quota:   quota,
		Grant:   services.NewGrantService(db, quota, clk, locks, authn),
		Rules:   services.NewRuleService(db, catalog, quota),
		Reports: services.NewReportService(db),
		Catalog: catalog,
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderAdminToken},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		usage.Seen,
	))

	// 8) Token-bucket rate limiter per parent/child/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIdentity())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (extensions and health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// Responses are per child, so shared caches must never keep them.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		Cache:        middleware.CachePrivate,
		EnablePolicy: true,
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

	childExists := func(ctx context.Context, id string) (bool, error) {
		return repo.ChildExists(ctx, db, id)
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		api.POST("/auth/login", h.Login)

		child := api.Group("/children/:" + middleware.ChildParam)

		// Browser extension
		ext := child.Group("", middleware.KnownChild(childExists))
		ext.POST("/check", h.CheckURL)
		ext.POST("/heartbeat", h.Heartbeat)
		ext.GET("/status", h.Status)

		// Parent app
		parent := child.Group("", middleware.ParentAuth(authn), middleware.OwnsChild(authn))
		parent.POST("/grant", h.GrantTime)
		parent.POST("/usage/reset", h.ResetUsage)
		parent.GET("/rules", h.ListRules)
		parent.PUT("/rules/categories/:category", h.PutCategoryRule)
		parent.DELETE("/rules/categories/:category", h.DeleteCategoryRule)
		parent.PUT("/rules/domains/:domain", h.PutDomainRule)
		parent.DELETE("/rules/domains/:domain", h.DeleteDomainRule)
		parent.GET("/settings", h.GetSettings)
		parent.PUT("/settings", h.PutSettings)
		parent.GET("/history", h.History)
		parent.GET("/alerts", h.Alerts)
		parent.POST("/alerts/mark-sent", h.MarkAlertsSent)

		// Operators
		admin := api.Group("/admin", middleware.AdminToken(cfg.Auth.AdminToken))
		admin.POST("/catalog/:domain/reclassify", h.Reclassify)
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
