package main

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/docflow/server/api/rest/auth"
	"codeberg.org/docflow/server/api/rest/documents"
	"codeberg.org/docflow/server/api/rest/health"
	"codeberg.org/docflow/server/api/websocket"
	"codeberg.org/docflow/server/internal/config"
	"codeberg.org/docflow/server/internal/errors"
	"codeberg.org/docflow/server/internal/logger"
	ws "codeberg.org/docflow/server/internal/websocket"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) error {
	router.Use(gin.Recovery(), requestLogger())
	router.Use(CORSMiddleware(server.config))

	handshakeLimit, err := HandshakeRateLimit(server)
	if err != nil {
		return err
	}

	router.GET("/health", health.Handler(server.hub))

	websocket.RegisterRoutes(router.Group("", handshakeLimit), websocket.Dependencies{
		Hub:         server.hub,
		Resolver:    server.resolver,
		Access:      server.storage.Repository,
		Persister:   server.dispatcher,
		CheckOrigin: ws.NewOriginChecker(server.config.WS.AllowedOrigins, server.config.IsProduction()),
		Session: ws.SessionConfig{
			SyncDelay:         server.config.Presence.SyncDelay,
			SweepInterval:     server.config.Presence.SweepInterval,
			MessagesPerSecond: server.config.WS.MessagesPerSecond,
			MessageBurst:      server.config.WS.MessageBurst,
		},
		AccessTimeout: server.config.Storage.Timeout,
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ping", health.PingHandler)

		auth.RegisterRoutes(v1, server.resolver, server.sessions)
		documents.RegisterRoutes(v1, server.storage.Repository, server.hub, server.resolver)
	}

	return nil
}

// allows the configured origins, or any origin outside production when none are set
func CORSMiddleware(cfg config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.WS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.WS.AllowedOrigins
	} else {
		production := cfg.IsProduction()
		corsConfig.AllowOriginFunc = func(string) bool { return !production }
	}

	return cors.New(corsConfig)
}

// limits websocket handshakes per client IP; shared through redis when configured
func HandshakeRateLimit(server *Server) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(server.config.HandshakeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid ratelimit.handshake %q: %w", server.config.HandshakeRate, err)
	}

	store := memory.NewStore()
	if server.redis != nil {
		store, err = sredis.NewStoreWithOptions(server.redis, limiter.StoreOptions{
			Prefix: "docflow:handshake",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create handshake limiter store: %w", err)
		}
	}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.Warn("websocket handshake rate limited", "ip", c.ClientIP())
			errors.TooManyRequests(c, "too many connection attempts")
		}),
	), nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
