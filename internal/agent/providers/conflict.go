// File path: internal/agent/providers/conflict.go
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// ConflictProvider judges candidate specifications against the current set
// and manages the lifecycle of recorded conflicts.
type ConflictProvider struct {
	operationSet
	store    *store.Store
	provider llm.Provider
}

func NewConflictProvider(st *store.Store, provider llm.Provider) *ConflictProvider {
	p := &ConflictProvider{store: st, provider: provider}
	p.operationSet = operationSet{
		name: "conflict",
		ops: map[string]agent.HandlerFunc{
			"detect_conflicts": p.detect,
			"list_conflicts":   p.list,
			"resolve_conflict": p.resolve,
			"ignore_conflict":  p.ignore,
		},
	}
	return p
}

type conflictVerdict struct {
	Type            string   `json:"type"`
	Severity        string   `json:"severity"`
	Reason          string   `json:"reason"`
	ExistingSpecIDs []string `json:"existing_spec_ids"`
	CandidateIndex  int      `json:"candidate_index"`
}

func (p *ConflictProvider) detect(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	var candidates []spec.Candidate
	if err := decodeInto(payload["candidates"], &candidates); err != nil {
		return agent.Fail(agent.CodeValidationError, "candidates are required: %v", err)
	}
	if len(candidates) == 0 {
		return agent.OK(agent.Payload{"conflicts_detected": false, "conflicts": []spec.Conflict{}})
	}

	current, err := p.relevantSpecifications(ctx, projectID, candidates)
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "load current specifications: %v", err)
	}
	if len(current) == 0 {
		// Nothing durable to contradict yet.
		return agent.OK(agent.Payload{"conflicts_detected": false, "conflicts": []spec.Conflict{}})
	}
	if p.provider == nil {
		return agent.Fail(agent.CodeConflictCheckError, "no completion provider configured")
	}

	raw, err := p.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: conflictSystemPrompt},
		{Role: "user", Content: buildConflictPrompt(current, candidates)},
	})
	if err != nil {
		return agent.Fail(agent.CodeConflictCheckError, "conflict completion failed: %v", err)
	}
	verdicts, err := parseConflictVerdicts(raw)
	if err != nil {
		common.Logger().Warn("conflict: unparseable completion", "error", err)
		return agent.Fail(agent.CodeConflictCheckError, "conflict output invalid: %v", err)
	}
	conflicts := make([]spec.Conflict, 0, len(verdicts))
	for _, verdict := range verdicts {
		ids := validSpecIDs(verdict.ExistingSpecIDs, current)
		if len(ids) == 0 {
			continue
		}
		conflictType := strings.TrimSpace(verdict.Type)
		if conflictType == "" {
			conflictType = "contradiction"
		}
		severity := strings.ToLower(strings.TrimSpace(verdict.Severity))
		switch severity {
		case spec.SeverityLow, spec.SeverityMedium, spec.SeverityHigh, spec.SeverityCritical:
		default:
			severity = spec.SeverityMedium
		}
		conflicts = append(conflicts, spec.Conflict{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			SpecIDs:    ids,
			Type:       conflictType,
			Severity:   severity,
			Status:     spec.ConflictOpen,
			Resolution: strings.TrimSpace(verdict.Reason),
		})
	}
	return agent.OK(agent.Payload{
		"conflicts_detected": len(conflicts) > 0,
		"conflicts":          conflicts,
	})
}

func (p *ConflictProvider) relevantSpecifications(ctx context.Context, projectID string, candidates []spec.Candidate) ([]spec.Specification, error) {
	categories := make(map[spec.Category]struct{}, len(candidates))
	for _, candidate := range candidates {
		categories[candidate.Category] = struct{}{}
	}
	all, err := p.store.CurrentSpecifications(ctx, projectID, "")
	if err != nil {
		return nil, err
	}
	relevant := make([]spec.Specification, 0, len(all))
	for _, record := range all {
		if _, ok := categories[record.Category]; ok {
			relevant = append(relevant, record)
		}
	}
	return relevant, nil
}

const conflictSystemPrompt = "You review candidate requirement statements against the accepted " +
	"specification set and report incompatibilities. Respond with a JSON object only: " +
	`{"conflicts": [{"type", "severity" (low|medium|high|critical), "reason", ` +
	`"existing_spec_ids" (ids from the accepted set), "candidate_index"}]}. ` +
	"Report a conflict only when two statements cannot both hold. An empty conflicts " +
	"array means the candidates are compatible."

func buildConflictPrompt(current []spec.Specification, candidates []spec.Candidate) string {
	var builder strings.Builder
	builder.WriteString("Accepted specifications:\n")
	for _, record := range current {
		fmt.Fprintf(&builder, "- id=%s category=%s: %s\n", record.ID, record.Category, record.Content)
	}
	builder.WriteString("Candidate specifications:\n")
	for idx, candidate := range candidates {
		fmt.Fprintf(&builder, "- index=%d category=%s: %s\n", idx, candidate.Category, candidate.Content)
	}
	return builder.String()
}

func parseConflictVerdicts(raw string) ([]conflictVerdict, error) {
	cleaned := stripCodeFence(raw)
	var decoded struct {
		Conflicts []conflictVerdict `json:"conflicts"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("decode verdicts: %w", err)
	}
	return decoded.Conflicts, nil
}

func validSpecIDs(ids []string, current []spec.Specification) []string {
	known := make(map[string]struct{}, len(current))
	for _, record := range current {
		known[record.ID] = struct{}{}
	}
	valid := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		valid = append(valid, id)
	}
	return valid
}

func (p *ConflictProvider) list(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	conflicts, err := p.store.ConflictsForProject(ctx, projectID, stringField(payload, "status"))
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "list conflicts: %v", err)
	}
	return agent.OK(agent.Payload{"conflicts": conflicts, "count": len(conflicts)})
}

func (p *ConflictProvider) resolve(ctx context.Context, payload agent.Payload) agent.Result {
	return p.transition(ctx, payload, spec.ConflictResolved)
}

func (p *ConflictProvider) ignore(ctx context.Context, payload agent.Payload) agent.Result {
	return p.transition(ctx, payload, spec.ConflictIgnored)
}

func (p *ConflictProvider) transition(ctx context.Context, payload agent.Payload, status string) agent.Result {
	conflictID := stringField(payload, "conflict_id")
	if conflictID == "" {
		return agent.Fail(agent.CodeValidationError, "conflict_id is required")
	}
	resolution := stringField(payload, "resolution")
	if err := p.store.ResolveConflict(ctx, conflictID, status, resolution); err != nil {
		if errors.Is(err, store.ErrConflictNotFound) {
			return agent.Fail(agent.CodeConflictNotFound, "conflict %s not found", conflictID)
		}
		return agent.Fail(agent.CodeStoreError, "update conflict: %v", err)
	}
	common.Logger().Info("conflict: transitioned", "conflict_id", conflictID, "status", status)
	return agent.OK(agent.Payload{"conflict_id": conflictID, "status": status})
}
