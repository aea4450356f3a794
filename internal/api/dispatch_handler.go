// File path: internal/api/dispatch_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Nireus79/Socrates2-sub000/internal/common"
)

// handleDispatch exposes the registry directly. Dispatch is total, so the
// response is always 200 with a structured result; callers inspect success
// and error_code instead of the HTTP status.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: dispatch decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.AgentID == "" || req.Action == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("agent_id and action required"))
		return
	}
	logger.Info("api: dispatch requested", "agent", req.AgentID, "action", req.Action)
	result := s.registry.Dispatch(r.Context(), req.AgentID, req.Action, req.Payload)
	writeJSON(w, http.StatusOK, result)
}
