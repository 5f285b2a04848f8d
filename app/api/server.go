package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		// scraped too often to be worth logging
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	// Cards are embedded in host pages on other origins
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, gatherer)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, gatherer prometheus.Gatherer) {
	r.GET("/health", handler.GetHealth)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints require authentication")
	} else {
		slog.Warn("API endpoints are open (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/hosts", handler.ListHosts)
		api.POST("/render/decide", handler.Decide)

		api.POST("/sessions", handler.OpenSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.DELETE("/sessions/:id", handler.CloseSession)
		api.POST("/sessions/:id/feed", handler.PushFeed)
		api.POST("/sessions/:id/fetch", handler.FetchFeed)
		api.POST("/sessions/:id/commit", handler.Commit)
		api.POST("/sessions/:id/reset", handler.Reset)
		api.GET("/sessions/:id/events", handler.StreamEvents)
		api.GET("/sessions/:id/commitments", handler.ListCommitments)

		api.POST("/sessions/:id/payment-intent", handler.PreparePayment)
		api.POST("/sessions/:id/payment/confirm", handler.ConfirmPayment)
		api.GET("/sessions/:id/payment/status", handler.PaymentStatus)

		api.GET("/checkouts", handler.ListCheckouts)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Trip Cards",
			"description": "Result cards for travel agents with commit-and-freeze selection and idempotent notification",
			"endpoints": map[string]string{
				"health":    "/health",
				"metrics":   "/metrics",
				"sessions":  "/api/sessions",
				"hosts":     "/api/hosts",
				"checkouts": "/api/checkouts?status=paid_unconfirmed",
				"decide":    "/api/render/decide (POST)",
			},
			"api_status": map[string]any{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// EventSource cannot set headers
		if providedKey == "" && strings.HasSuffix(c.Request.URL.Path, "/events") {
			providedKey = c.Query("key")
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
