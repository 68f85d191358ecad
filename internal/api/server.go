// Package api exposes sessions, schedules, documents and summaries over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/document"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/media"
	"github.com/balkashynov/wroklog/internal/metrics"
	"github.com/balkashynov/wroklog/internal/quota"
	"github.com/balkashynov/wroklog/internal/scheduler"
	"github.com/balkashynov/wroklog/internal/session"
	"github.com/balkashynov/wroklog/internal/summary"
)

// UserHeader carries the verified caller identity set by the upstream proxy.
const UserHeader = "X-User-ID"

const ownerKey = "owner_id"

// Deps are the services the API routes into.
type Deps struct {
	Store     *db.Store
	Sessions  *session.Manager
	Scheduler *scheduler.Scheduler
	Documents *document.Pipeline
	Quota     *quota.Gate
	Summary   *summary.Service
	Media     *media.LocalStore

	// RateLimit caps requests per user per minute under /api/v1; zero disables it.
	RateLimit      int
	AllowedOrigins []string
}

// Server is the wroklog HTTP server
type Server struct {
	deps   Deps
	router *gin.Engine
}

// NewServer creates a new HTTP server
func NewServer(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(deps.AllowedOrigins))
	}

	s := &Server{deps: deps, router: router}

	router.GET("/health", s.handleHealth)
	router.GET("/ready", s.handleReady)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if deps.Media != nil {
		router.Static(mediaPath(deps.Media.BaseURL()), deps.Media.Dir())
	}

	v1 := router.Group("/api/v1", requireUser())
	if deps.RateLimit > 0 {
		v1.Use(rateLimit(deps.RateLimit))
	}
	{
		v1.POST("/time/start", s.handleStart)
		v1.POST("/time/stop", s.handleStop)
		v1.POST("/time/cancel", s.handleCancel)
		v1.GET("/time/active", s.handleActive)

		v1.GET("/sessions", s.handleListSessions)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.POST("/sessions/manual", s.handleManual)

		v1.POST("/schedule", s.handleArm)
		v1.GET("/schedule/:id", s.handleGetSchedule)
		v1.DELETE("/schedule/:id", s.handleUnschedule)

		v1.GET("/documents", s.handleListDocuments)
		v1.POST("/documents", s.handleCreateDocument)
		v1.POST("/documents/autosave", s.handleAutosave)
		v1.GET("/documents/:id", s.handleGetDocument)
		v1.PUT("/documents/:id", s.handleUpdateDocument)
		v1.GET("/documents/:id/versions", s.handleListVersions)
		v1.GET("/documents/:id/versions/:version", s.handleGetVersion)
		v1.POST("/documents/:id/versions/:version/restore", s.handleRestore)

		v1.GET("/summary/quota", s.handleQuota)
		v1.POST("/summary", s.handleSummary)

		v1.POST("/media", s.handleUpload)
	}

	return s
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"owner", c.GetString(ownerKey),
		)
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(UserHeader))
		if owner == "" {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserHeader+" header")
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func mediaPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/media"
	}
	return strings.TrimRight(u.Path, "/")
}

func (s *Server) handleHealth(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, "NOT_READY", "database unavailable")
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "ready"})
}
