package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/services/health"
	"legalreview-backend/internal/sessions"
	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/metrics"
	"legalreview-backend/internal/shared/server/middleware"
	"legalreview-backend/internal/shared/server/respond"
	"legalreview-backend/internal/uploads"
	"legalreview-backend/internal/usage"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	ReviewHandler *sessions.Handler
	UsageHandler  *usage.Handler
	// UploadHandler is set when documents can be uploaded straight to S3.
	UploadHandler *uploads.Handler
	// Health is optional; nil reports liveness only.
	Health *health.Service
	// RateLimiter is shared across requests; nil creates one.
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !config.IsDevLike(deps.Config.Env) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	fixGroups := make(map[string]string)
	for _, route := range sessions.FixRoutes() {
		fixGroups[route] = middleware.FixRateLimitGroup
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(healthPath, metricsPath),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":                    {Rate: 5, Burst: 20},
				middleware.FixRateLimitGroup: {Rate: 1, Burst: 10},
			},
			GroupFor: middleware.GroupByRoute(fixGroups),
			Limiter:  deps.RateLimiter,
		}),
	)

	r.GET(metricsPath, metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status, ok := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.RegisterRoutes(api)
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
		if config.IsDevLike(deps.Config.Env) {
			deps.UsageHandler.RegisterDevRoutes(api.Group("/dev"))
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
