// File path: internal/api/coverage_handler.go
package api

import (
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/scheduler"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	counts, ok := s.loadCounts(w, r, projectID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"coverage":   scheduler.Coverage(counts),
		"maturity":   scheduler.MaturityScore(counts),
		"targets":    spec.CoverageTargets(),
	})
}

func (s *Server) handleNextCategory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	counts, ok := s.loadCounts(w, r, projectID)
	if !ok {
		return
	}
	category := scheduler.NextCategory(counts)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"category":   category,
		"coverage":   scheduler.Coverage(counts)[category],
	})
}

func (s *Server) loadCounts(w http.ResponseWriter, r *http.Request, projectID string) (map[spec.Category]int, bool) {
	logger := common.Logger()
	if _, err := s.store.Project(r.Context(), projectID); err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, err)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return nil, false
	}
	counts, err := s.store.CategoryCounts(r.Context(), projectID)
	if err != nil {
		logger.Error("api: coverage load failed", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return counts, true
}
