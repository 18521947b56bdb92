package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/config"
	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/persistence"
	"codeberg.org/docflow/server/internal/workers"
	ws "codeberg.org/docflow/server/internal/websocket"
)

const (
	// how long issued bearer tokens stay valid
	tokenTTL = 7 * 24 * time.Hour

	// how long shutdown waits for open sessions to finish closing
	sessionDrainTimeout = 5 * time.Second
)

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	storage, err := InitializeStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = persistence.NewRedisClient(cfg.RedisURL)
		if err != nil {
			storage.Close()
			return nil, err
		}
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, tokenTTL)
	if err != nil {
		closeAll(storage, redisClient)
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	sessions, err := auth.NewSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionCookie, cfg.IsProduction())
	if err != nil {
		closeAll(storage, redisClient)
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	pool := workers.NewPool(workers.Options{
		Workers:     cfg.Storage.Workers,
		QueueSize:   cfg.Storage.QueueSize,
		MaxInflight: cfg.Storage.MaxInflight,
		Timeout:     cfg.Storage.Timeout,
	})

	throttle := newThrottle(cfg.History, storage.Repository, redisClient)
	policy := persistence.NewPolicy(storage.Repository, throttle, time.Now)

	logger.Info("history throttle configured",
		"throttle", cfg.History.Throttle,
		"edit_window", cfg.History.EditWindow,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:     cfg,
		storage:    storage,
		redis:      redisClient,
		pool:       pool,
		dispatcher: persistence.NewDispatcher(policy, pool),
		hub:        ws.NewHub(ws.HubOptions{StaleAfter: cfg.Presence.StaleAfter}),
		resolver:   auth.NewResolver(tokens, sessions),
		sessions:   sessions,
		router:     gin.New(),
	}

	if err := RegisterRoutes(server.router, server); err != nil {
		server.Close()
		return nil, err
	}

	return server, nil
}

// closes every session, drains queued storage work, then releases connections
func (s *Server) Close() {
	s.drain()
	closeAll(s.storage, s.redis)
}

// sessions close before the pool stops so their last edits are still queued
func (s *Server) drain() {
	s.hub.Shutdown("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), sessionDrainTimeout)
	defer cancel()

	if err := s.hub.Wait(ctx); err != nil {
		logger.Warn("sessions still open after shutdown timeout", "error", err)
	}

	s.pool.Stop()
}

func closeAll(storage *Storage, redisClient *redis.Client) {
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}

	storage.Close()
}
