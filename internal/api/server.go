// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/data/orchestrator"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/pipeline"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

type Server struct {
	router   chi.Router
	store    *store.Store
	registry *agent.Registry
	pipeline *pipeline.Pipeline
	provider llm.Provider

	orchestrator *orchestrator.Orchestrator
}

func NewServer(orch *orchestrator.Orchestrator) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	if orch.Store() == nil {
		return nil, fmt.Errorf("store unavailable")
	}
	providerName := "unknown"
	if orch.Provider() != nil {
		providerName = orch.Provider().Name()
	}
	logger.Info("api: building server", "provider", providerName, "agents", len(orch.Registry().Providers()))
	srv := &Server{
		router:       chi.NewRouter(),
		store:        orch.Store(),
		registry:     orch.Registry(),
		pipeline:     orch.Pipeline(),
		provider:     orch.Provider(),
		orchestrator: orch,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/dispatch", s.handleDispatch)
	s.router.Post("/v1/answers", s.handleAnswer)
	s.router.Post("/v1/questions", s.handleQuestion)
	s.router.Get("/v1/projects/{projectID}/coverage", s.handleCoverage)
	s.router.Get("/v1/projects/{projectID}/next-category", s.handleNextCategory)
	s.router.Get("/v1/agents", s.handleAgents)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
