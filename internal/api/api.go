// Package api exposes a small REST surface for inspecting a running proxy
// using the Gin framework.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhead/phantom/internal/config"
	"github.com/jhead/phantom/internal/db"
	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/session"
)

// ProxyStatus is the view of the proxy the API needs.
type ProxyStatus interface {
	Running() bool
	ProxyPort() uint16
}

// Server serves the admin API over HTTP.
type Server struct {
	router      *gin.Engine
	server      *http.Server
	opts        config.Opts
	sessions    *session.Manager
	sessionRepo *db.SessionRepository
	proxy       ProxyStatus
	registry    *prometheus.Registry
	startTime   time.Time
}

// NewServer wires the API routes. sessionRepo may be nil when persistence
// is disabled; the history endpoints then report it unavailable.
func NewServer(opts config.Opts, sessions *session.Manager, sessionRepo *db.SessionRepository, proxy ProxyStatus, registry *prometheus.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		opts:        opts,
		sessions:    sessions,
		sessionRepo: sessionRepo,
		proxy:       proxy,
		registry:    registry,
		startTime:   time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())

	s.router.POST("/api/login", s.login)

	api := s.router.Group("/api")
	{
		api.Use(s.authMiddleware())

		api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

		api.GET("/status", s.getStatus)
		api.GET("/stats/system", s.getSystemStats)

		api.GET("/sessions", s.getSessions)
		api.GET("/sessions/history", s.getSessionHistory)
		api.DELETE("/sessions/history", s.clearSessionHistory)
		api.DELETE("/sessions/history/:id", s.deleteSessionHistory)
	}
}

// Start begins serving on addr without blocking.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("[api] server error: %v", err)
		}
	}()

	logger.Info("[api] listening on %s", addr)
	return nil
}

// Stop gracefully shuts the API server down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Response is the unified API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data,omitempty"`
}

func respondError(c *gin.Context, code int, message string, details string) {
	msg := message
	if details != "" {
		msg = message + ": " + details
	}
	c.JSON(code, Response{
		Success: false,
		Msg:     msg,
	})
}

func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Msg:     "ok",
		Data:    data,
	})
}

type statusDTO struct {
	Running        bool   `json:"running"`
	ProxyPort      uint16 `json:"proxy_port"`
	RemoteServer   string `json:"remote_server"`
	ActiveSessions int    `json:"active_sessions"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// getStatus reports proxy liveness and the live session count.
// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	respondSuccess(c, statusDTO{
		Running:        s.proxy.Running(),
		ProxyPort:      s.proxy.ProxyPort(),
		RemoteServer:   s.opts.Server,
		ActiveSessions: s.sessions.Count(),
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
	})
}

type sessionDTO struct {
	ID           string    `json:"id"`
	ClientAddr   string    `json:"client_addr"`
	UpstreamPort int       `json:"upstream_port"`
	StartTime    time.Time `json:"start_time"`
	LastSeen     time.Time `json:"last_seen"`
	BytesUp      int64     `json:"bytes_up"`
	BytesDown    int64     `json:"bytes_down"`
}

// getSessions lists the currently connected clients.
// GET /api/sessions
func (s *Server) getSessions(c *gin.Context) {
	live := s.sessions.All()

	out := make([]sessionDTO, 0, len(live))
	for _, sess := range live {
		out = append(out, sessionDTO{
			ID:           sess.ID,
			ClientAddr:   sess.ClientAddr,
			UpstreamPort: sess.UpstreamPort(),
			StartTime:    sess.StartTime,
			LastSeen:     sess.LastSeen(),
			BytesUp:      sess.BytesUp(),
			BytesDown:    sess.BytesDown(),
		})
	}
	respondSuccess(c, out)
}

// getSessionHistory lists finished sessions from the database.
// GET /api/sessions/history?limit=&offset=
func (s *Server) getSessionHistory(c *gin.Context) {
	if s.sessionRepo == nil {
		respondError(c, http.StatusServiceUnavailable, "session history disabled", "")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := s.sessionRepo.List(limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load session history", err.Error())
		return
	}
	if records == nil {
		records = []session.Record{}
	}
	respondSuccess(c, records)
}

// clearSessionHistory drops all stored session records.
// DELETE /api/sessions/history
func (s *Server) clearSessionHistory(c *gin.Context) {
	if s.sessionRepo == nil {
		respondError(c, http.StatusServiceUnavailable, "session history disabled", "")
		return
	}
	if err := s.sessionRepo.ClearHistory(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to clear session history", err.Error())
		return
	}
	respondSuccess(c, nil)
}

// deleteSessionHistory removes a single stored session record.
// DELETE /api/sessions/history/:id
func (s *Server) deleteSessionHistory(c *gin.Context) {
	if s.sessionRepo == nil {
		respondError(c, http.StatusServiceUnavailable, "session history disabled", "")
		return
	}

	err := s.sessionRepo.Delete(c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, http.StatusNotFound, "session record not found", "")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to delete session record", err.Error())
		return
	}
	respondSuccess(c, nil)
}
