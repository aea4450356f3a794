// File path: internal/api/answers_handler.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
)

// handleAnswer feeds one answer through the commit pipeline. Rejections come
// back with a status matching the error code; the body is always the full
// pipeline outcome.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: answer decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger.Info("api: answer submitted", "session_id", req.SessionID, "question_id", req.QuestionID)
	outcome := s.pipeline.Submit(r.Context(), req)
	writeJSON(w, statusForOutcome(outcome.Success, outcome.ErrorCode), outcome)
}

func statusForOutcome(success bool, code string) int {
	if success {
		return http.StatusOK
	}
	switch code {
	case agent.CodeValidationError:
		return http.StatusBadRequest
	case agent.CodeProjectNotFound, agent.CodeSessionNotFound, agent.CodeQuestionNotFound, agent.CodeConflictNotFound:
		return http.StatusNotFound
	case agent.CodeConflictDetected:
		return http.StatusConflict
	case agent.CodeQualityCheckFailed:
		return http.StatusUnprocessableEntity
	case agent.CodeExtractionError, agent.CodeConflictCheckError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
