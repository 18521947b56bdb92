package main

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/config"
	"codeberg.org/docflow/server/internal/persistence"
	"codeberg.org/docflow/server/internal/workers"
	ws "codeberg.org/docflow/server/internal/websocket"
)

// holds all dependencies and state for the collaboration server
type Server struct {
	config     config.Config
	storage    *Storage
	redis      *redis.Client
	pool       *workers.Pool
	dispatcher *persistence.Dispatcher
	hub        *ws.Hub
	resolver   *auth.Resolver
	sessions   *auth.SessionStore
	router     *gin.Engine
}

// the document store chosen by configuration and how to release it
type Storage struct {
	Repository documents.Repository
	close      func()
}
