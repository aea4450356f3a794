// File path: internal/api/questions_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
)

// handleQuestion asks the question agent to produce the next probing
// question for a session.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: question decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProjectID == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("project_id and session_id required"))
		return
	}
	logger.Info("api: question requested", "project_id", req.ProjectID, "session_id", req.SessionID)
	result := s.registry.Dispatch(r.Context(), "question", "generate_question", agent.Payload{
		"project_id": req.ProjectID,
		"session_id": req.SessionID,
	})
	writeJSON(w, statusForOutcome(result.Success, result.ErrorCode), result)
}
