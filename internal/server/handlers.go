package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/search"
	"github.com/hyperjump/chotto/internal/storage"
	"github.com/hyperjump/chotto/pkg/utils"
)

// sampleIDCount is how many vector ids the status endpoint lists.
const sampleIDCount = 5

// queryFromRequest reads ?query= and ?limit=. A missing or non-numeric limit is 0,
// which the engine replaces with its default.
func queryFromRequest(r *http.Request) *models.SearchQuery {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = 0
	}
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))
	return &models.SearchQuery{Query: q.Get("query"), Limit: limit, Fuzzy: fuzzy}
}

func (s *Server) handleFuzzySearch(w http.ResponseWriter, r *http.Request) {
	query := queryFromRequest(r)
	utils.LoggerFromContext(r.Context(), s.logger).Debug("fuzzy search request",
		zap.String("query", query.Query), zap.Int("limit", query.Limit))
	s.respondJSON(w, http.StatusOK, s.deps.Engine.Search(r.Context(), query))
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	query := queryFromRequest(r)
	utils.LoggerFromContext(r.Context(), s.logger).Debug("keyword search request",
		zap.String("query", query.Query), zap.Int("limit", query.Limit), zap.Bool("fuzzy", query.Fuzzy))
	s.respondJSON(w, http.StatusOK, s.deps.Engine.SearchKeyword(r.Context(), query))
}

func (s *Server) handleSkillSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	resp, err := s.deps.Engine.SearchBySkill(r.Context(), id)
	s.respondLookup(w, r, resp, err)
}

func (s *Server) handleDepartmentSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	resp, err := s.deps.Engine.SearchByDepartment(r.Context(), id)
	s.respondLookup(w, r, resp, err)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) respondLookup(w http.ResponseWriter, r *http.Request, resp *models.SearchResponse, err error) {
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, resp)
	case errors.Is(err, search.ErrSkillNotFound), errors.Is(err, search.ErrDepartmentNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		utils.LoggerFromContext(r.Context(), s.logger).Error("lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "lookup failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Directory      *models.DirectoryStats `json:"directory"`
	VectorBackend  string                 `json:"vector_backend"`
	VectorCount    int                    `json:"vector_count"`
	SampleIDs      []string               `json:"sample_ids"`
	KeywordDocs    *uint64                `json:"keyword_docs,omitempty"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
}

// Status collects entity counts and index details. Only the directory stats
// are required; the other fields are best effort.
func (s *Server) Status(ctx context.Context) (*Status, error) {
	logger := utils.LoggerFromContext(ctx, s.logger)

	stats, err := s.deps.Stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory stats: %w", err)
	}
	st := &Status{
		Directory:     stats,
		VectorBackend: s.deps.VectorIndex.Type(),
		SampleIDs:     []string{},
	}
	if n, err := s.deps.VectorIndex.Count(ctx); err != nil {
		logger.Warn("status: vector count failed", zap.Error(err))
	} else {
		st.VectorCount = n
	}
	if ids, err := s.deps.VectorIndex.SampleIDs(ctx, sampleIDCount); err != nil {
		logger.Warn("status: vector sample failed", zap.Error(err))
	} else if ids != nil {
		st.SampleIDs = ids
	}
	if s.deps.KeywordIndex != nil {
		if n, err := s.deps.KeywordIndex.DocCount(); err == nil {
			st.KeywordDocs = &n
		}
	}
	if s.config != nil {
		paths := s.config.Storage
		if b, err := storage.DiskUsageBytes(paths.DatabasePath, paths.VectorIndexPath, paths.BleveIndexPath); err == nil {
			st.DiskUsageBytes = &b
		}
	}
	return st, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status(r.Context())
	if err != nil {
		utils.LoggerFromContext(r.Context(), s.logger).Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := utils.LoggerFromContext(r.Context(), s.logger)
	if s.deps.Indexer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "indexing not enabled")
		return
	}
	report, err := s.deps.Indexer.Rebuild(r.Context())
	if err != nil {
		logger.Error("index rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
