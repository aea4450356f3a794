// File path: internal/api/agents_handler.go
package api

import (
	"net/http"
)

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.Stats()
	resp := agentsResponse{TotalRequests: stats.TotalRequests}
	for _, name := range s.registry.Providers() {
		capabilities, err := s.registry.Capabilities(name)
		if err != nil {
			continue
		}
		info := agentInfo{Name: name, Capabilities: capabilities}
		if snapshot, ok := stats.Providers[name]; ok {
			info.Received = snapshot.Requests
			info.Succeeded = snapshot.Succeeded
			info.Failed = snapshot.Failed
		}
		resp.Agents = append(resp.Agents, info)
	}
	writeJSON(w, http.StatusOK, resp)
}
