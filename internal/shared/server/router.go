package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"ocrdocs-backend/internal/documents"
	"ocrdocs-backend/internal/shared/config"
	"ocrdocs-backend/internal/shared/metrics"
	"ocrdocs-backend/internal/shared/server/middleware"
	"ocrdocs-backend/internal/shared/server/respond"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps groups handlers required to build the router.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	// Now overrides the rate limiter clock.
	Now func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})

	if deps.DocumentHandler != nil {
		rule := deps.Config.Tuning.UploadRateLimit
		uploadLimit := middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: uploadRateGroup,
			Limiter:      middleware.NewRateLimiter(deps.Now),
			Rules: map[string]middleware.RateLimitRule{
				uploadRateGroup: {Rate: rule.Rate, Burst: rule.Burst},
			},
		})
		deps.DocumentHandler.RegisterRoutes(api.Group("/ocr"), uploadLimit)
	}

	return r
}

// Handler wraps the engine with CORS handling for the configured origins.
func Handler(cfg config.Config, engine http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler(engine)
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
