// Package server provides the HTTP API for chotto.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/config"
	"github.com/hyperjump/chotto/internal/indexer"
	"github.com/hyperjump/chotto/internal/keyword"
	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/search"
	"github.com/hyperjump/chotto/internal/vector"
	"github.com/hyperjump/chotto/pkg/utils"
)

// Searcher runs directory searches. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) *models.SearchResponse
	SearchKeyword(ctx context.Context, query *models.SearchQuery) *models.SearchResponse
	SearchBySkill(ctx context.Context, skillID int64) (*models.SearchResponse, error)
	SearchByDepartment(ctx context.Context, departmentID int64) (*models.SearchResponse, error)
}

// Rebuilder re-embeds the directory. *indexer.Indexer implements it.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*indexer.Report, error)
}

// StatsSource reports directory row counts. storage.Storage implements it.
type StatsSource interface {
	Stats(ctx context.Context) (*models.DirectoryStats, error)
}

// Deps are the components served over HTTP. KeywordIndex and Indexer may be nil.
type Deps struct {
	Engine       Searcher
	Indexer      Rebuilder
	Stats        StatsSource
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
}

// Server is the HTTP server for the chotto API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server. cfg supplies the listen address and the data
// paths reported by the status endpoint.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, config: cfg, logger: logger}
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search/fuzzy", s.handleFuzzySearch)
		r.Get("/search/keyword", s.handleKeywordSearch)
		r.Get("/search/skill/{id}", s.handleSkillSearch)
		r.Get("/search/department/{id}", s.handleDepartmentSearch)
		r.Get("/status", s.handleStatus)
		r.Post("/index", s.handleIndex)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

const requestIDHeader = "X-Request-ID"

// requestLogger stores a logger tagged with the request id in the request
// context and logs each completed request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger := s.logger.With(zap.String("request_id", id))

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(utils.ContextWithLogger(r.Context(), logger)))

		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

var _ Searcher = (*search.Engine)(nil)
