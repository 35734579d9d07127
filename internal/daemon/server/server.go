// Package server exposes the plugin's live state over a Unix socket.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/version"
	"github.com/sirupsen/logrus"
)

// Source is the engine surface the API reads from.
type Source interface {
	Views() []engine.View
	Stats() engine.Stats
	Refresh(ctx context.Context) engine.TickResult
}

// Server manages the status HTTP server over a Unix socket.
type Server struct {
	logger    *logrus.Entry
	registry  *registry.Registry
	source    Source
	startTime time.Time

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New creates a new Server instance.
func New(reg *registry.Registry, source Source, logger *logrus.Entry) *Server {
	return &Server{
		logger:    logger,
		registry:  reg,
		source:    source,
		startTime: time.Now(),
	}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/buttons", s.handleButtons)
	r.GET("/api/engine", s.handleEngine)
	r.POST("/api/refresh", s.handleRefresh)
	return r
}

// ListenAndServe serves on the given unix socket path. It blocks until the
// server stops; a Shutdown returns nil.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.server = srv
	s.mu.Unlock()
	defer os.Remove(socketPath)

	s.logger.WithField("socket", socketPath).Info("Status API listening")
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("Shutting down status API")
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		StartedAt: s.startTime,
		Buttons:   s.registry.Len(),
		Version:   version.GetInfo(),
	})
}

func (s *Server) handleButtons(c *gin.Context) {
	views := make(map[string]engine.View)
	for _, v := range s.source.Views() {
		views[string(v.Button)] = v
	}

	snap := s.registry.Snapshot()
	out := make([]ButtonStatus, 0, len(snap))
	for id, cfg := range snap {
		status := ButtonStatus{
			ID:           id,
			Label:        cfg.DisplayLabel(),
			Activity:     cfg.Activity,
			WorkspaceID:  cfg.WorkspaceID,
			ProjectID:    cfg.ProjectID,
			Billable:     cfg.Billable,
			PromptOnStop: cfg.PromptOnStop,
			State:        models.Inactive,
			Title:        cfg.DisplayLabel(),
		}
		if v, ok := views[string(id)]; ok {
			status.State = v.State
			status.Title = v.Title
			status.LastError = v.LastError
			status.UpdatedAt = v.UpdatedAt
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEngine(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Stats())
}

func (s *Server) handleRefresh(c *gin.Context) {
	result := s.source.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, RefreshResponse{
		Groups:  result.Groups,
		Buttons: result.Buttons,
		Failed:  result.Failed,
	})
}
