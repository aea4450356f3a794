// File path: internal/api/types.go
package api

import (
	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/pipeline"
)

type dispatchRequest struct {
	AgentID string        `json:"agent_id"`
	Action  string        `json:"action"`
	Payload agent.Payload `json:"payload"`
}

type answerRequest = pipeline.SubmitRequest

type questionRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
}

type agentInfo struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Received     int64    `json:"received"`
	Succeeded    int64    `json:"succeeded"`
	Failed       int64    `json:"failed"`
}

type agentsResponse struct {
	Agents        []agentInfo `json:"agents"`
	TotalRequests int64       `json:"total_requests"`
}
