// Package api implements the Readiness & Guard Endpoints: the external
// HTTP surface candidates and admins use to drive a timed assessment
// attempt. Handlers validate identity and current Submission state before
// performing work; none accept a client-supplied clock.
package api

import (
	"context"
	stdsql "database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/assessment-platform/enginer/pkg/catalog"
	"github.com/assessment-platform/enginer/pkg/composer"
	"github.com/assessment-platform/enginer/pkg/config"
	"github.com/assessment-platform/enginer/pkg/database"
	"github.com/assessment-platform/enginer/pkg/events"
	"github.com/assessment-platform/enginer/pkg/queue"
	"github.com/assessment-platform/enginer/pkg/scoring"
	"github.com/assessment-platform/enginer/pkg/session"
	"github.com/assessment-platform/enginer/pkg/store"
)

// Server is the HTTP API server.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	cfg        *config.Config
	db         *stdsql.DB
	store      *store.Store
	catalog    *catalog.Catalog
	composer   *composer.Composer
	session    *session.Manager
	scorer     *scoring.Scorer
	workerPool *queue.WorkerPool
	listener   *events.NotifyListener
}

// NewServer creates a new API server and registers all routes. listener may
// be nil (submission-status NOTIFYs unavailable); guard endpoints fall back
// to reading current state directly when it is.
func NewServer(
	cfg *config.Config,
	db *stdsql.DB,
	st *store.Store,
	cat *catalog.Catalog,
	comp *composer.Composer,
	sess *session.Manager,
	scorer *scoring.Scorer,
	workerPool *queue.WorkerPool,
	listener *events.NotifyListener,
) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		engine:     engine,
		cfg:        cfg,
		db:         db,
		store:      st,
		catalog:    cat,
		composer:   comp,
		session:    sess,
		scorer:     scorer,
		workerPool: workerPool,
		listener:   listener,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	candidate := s.engine.Group("/candidate")
	candidate.POST("/login", s.loginHandler)
	candidate.GET("/assessment/:id/readiness", s.readinessHandler)

	authed := candidate.Group("/assessment/:id")
	authed.Use(s.requireCandidateToken())
	authed.POST("/start", s.startHandler)
	authed.GET("/questions/page", s.questionsPageHandler)
	authed.GET("/timer", s.timerHandler)
	authed.POST("/submit", s.submitHandler)
	authed.POST("/events", s.recordEventHandler)

	admin := s.engine.Group("/admin")
	admin.POST("/tests/initiate", s.initiateHandler)
	admin.POST("/questions/check-duplicate", s.checkDuplicateHandler)
	admin.GET("/submissions/:id/report", s.reportHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	if _, err := database.Health(ctx, s.db); err != nil {
		status = "unhealthy"
	}

	var poolHealth *queue.PoolHealth
	if s.workerPool != nil {
		h := s.workerPool.Health()
		poolHealth = &h
	}

	resp := newHealthResponse(status, poolHealth)
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
