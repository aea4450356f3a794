// File path: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/scheduler"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// Stage names the states of one commit attempt. A submission moves strictly
// forward; rejected is terminal and reachable from every stage after
// received.
type Stage string

const (
	StageReceived        Stage = "received"
	StageExtracted       Stage = "extracted"
	StageConflictChecked Stage = "conflict_checked"
	StageQualityChecked  Stage = "quality_checked"
	StageCommitted       Stage = "committed"
	StageRejected        Stage = "rejected"
)

// SubmitRequest carries one user answer into the pipeline.
type SubmitRequest struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// Outcome is the structured result of a submission. Side effects on the
// specification table are observable only when Success is true; conflict
// rows are persisted even on rejection.
type Outcome struct {
	Stage            Stage           `json:"stage"`
	Success          bool            `json:"success"`
	CommittedSpecIDs []string        `json:"committed_spec_ids,omitempty"`
	Conflicts        []spec.Conflict `json:"conflicts,omitempty"`
	RejectReason     string          `json:"reject_reason,omitempty"`
	Alternatives     []string        `json:"alternatives,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorCode        string          `json:"error_code,omitempty"`
}

func rejected(stage Stage, code, reason string) Outcome {
	return Outcome{Stage: StageRejected, Success: false, RejectReason: reason, Error: reason, ErrorCode: code}
}

// Pipeline drives a submission through extraction, conflict detection and
// quality screening before the durable write. Stages two through four hold
// the project lock so detection and commit are atomic with respect to other
// submissions on the same project.
type Pipeline struct {
	registry *agent.Registry
	store    *store.Store

	stageTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a pipeline over the given registry and store. stageTimeout
// bounds each provider dispatch; zero applies the one-minute default.
func New(registry *agent.Registry, st *store.Store, stageTimeout time.Duration) *Pipeline {
	if stageTimeout <= 0 {
		stageTimeout = time.Minute
	}
	return &Pipeline{
		registry:     registry,
		store:        st,
		stageTimeout: stageTimeout,
		locks:        make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) projectLock(projectID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	return lock
}

func (p *Pipeline) dispatch(ctx context.Context, providerID, operation string, payload agent.Payload) agent.Result {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.registry.Dispatch(stageCtx, providerID, operation, payload)
}

// decodeField converts a gate result field to a typed value. In-process gates
// hand back typed Go values, but a provider registered over a generic
// transport returns JSON shapes; a marshal round trip accepts both and
// surfaces a shape mismatch instead of silently dropping the data.
func decodeField(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	return nil
}

// Submit runs one answer through the full gate sequence. Like dispatch it is
// total: every failure mode comes back as a structured rejection.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) Outcome {
	logger := common.Logger()
	sessionID := strings.TrimSpace(req.SessionID)
	questionID := strings.TrimSpace(req.QuestionID)
	answer := strings.TrimSpace(req.Answer)
	if sessionID == "" || questionID == "" || answer == "" {
		return rejected(StageReceived, agent.CodeValidationError, "session_id, question_id and answer are required")
	}

	session, err := p.store.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return rejected(StageReceived, agent.CodeSessionNotFound, "session "+sessionID+" not found")
		}
		return rejected(StageReceived, agent.CodeStoreError, "load session: "+err.Error())
	}
	question, err := p.store.Question(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return rejected(StageReceived, agent.CodeQuestionNotFound, "question "+questionID+" not found")
		}
		return rejected(StageReceived, agent.CodeStoreError, "load question: "+err.Error())
	}
	if question.SessionID != sessionID {
		return rejected(StageReceived, agent.CodeValidationError, "question does not belong to session")
	}
	projectID := session.ProjectID

	// Stage 1: extraction.
	extraction := p.dispatch(ctx, "extraction", "extract_specifications", agent.Payload{
		"answer":   answer,
		"question": question.Text,
		"category": string(question.Category),
	})
	if !extraction.Success {
		logger.Info("pipeline: extraction rejected submission", "project_id", projectID, "code", extraction.ErrorCode)
		return rejected(StageReceived, extraction.ErrorCode, extraction.Error)
	}
	var candidates []spec.Candidate
	if err := decodeField(extraction.Data["candidates"], &candidates); err != nil {
		return rejected(StageReceived, agent.CodeExtractionError, "decode extraction candidates: "+err.Error())
	}

	// Stages 2-4 are exclusive per project: conflict detection must see the
	// durable state it will commit against.
	lock := p.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	// Stage 2: conflict detection against current durable state.
	detection := p.dispatch(ctx, "conflict", "detect_conflicts", agent.Payload{
		"project_id": projectID,
		"candidates": candidates,
	})
	if !detection.Success {
		return rejected(StageExtracted, detection.ErrorCode, detection.Error)
	}
	if detection.Bool("conflicts_detected") {
		var conflicts []spec.Conflict
		if err := decodeField(detection.Data["conflicts"], &conflicts); err != nil {
			return rejected(StageExtracted, agent.CodeConflictCheckError, "decode conflicts: "+err.Error())
		}
		if err := p.store.CreateConflicts(ctx, conflicts); err != nil {
			return rejected(StageExtracted, agent.CodeStoreError, "persist conflicts: "+err.Error())
		}
		logger.Info("pipeline: conflicts detected", "project_id", projectID, "count", len(conflicts))
		outcome := rejected(StageExtracted, agent.CodeConflictDetected, "candidate specifications conflict with current state")
		outcome.Conflicts = conflicts
		return outcome
	}

	// Stage 3: quality screening runs last among the gates so a transient
	// scoring failure cannot orphan unscreened specifications.
	if len(candidates) > 0 {
		quality := p.dispatch(ctx, "quality", "check_quality", agent.Payload{"candidates": candidates})
		if !quality.Success {
			return rejected(StageConflictChecked, quality.ErrorCode, quality.Error)
		}
		if quality.Bool("is_blocking") {
			outcome := rejected(StageConflictChecked, agent.CodeQualityCheckFailed, quality.String("reason"))
			var alternatives []string
			if err := decodeField(quality.Data["alternatives"], &alternatives); err != nil {
				logger.Warn("pipeline: quality alternatives unreadable", "project_id", projectID, "error", err)
			}
			outcome.Alternatives = alternatives
			return outcome
		}
	}

	// Stage 4: durable commit, all rows in one transaction.
	committed := make([]spec.Specification, 0, len(candidates))
	superseded := make(map[string]string, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		record := spec.Specification{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			Category:   candidate.Category,
			Content:    candidate.Content,
			Source:     spec.SourceAnswer,
			Confidence: candidate.Confidence,
			IsCurrent:  true,
		}
		for _, oldID := range candidate.Supersedes {
			if trimmed := strings.TrimSpace(oldID); trimmed != "" {
				superseded[trimmed] = record.ID
			}
		}
		committed = append(committed, record)
		ids = append(ids, record.ID)
	}
	if err := p.store.CommitSpecifications(ctx, projectID, questionID, answer, committed, superseded); err != nil {
		logger.Error("pipeline: commit failed", "project_id", projectID, "error", err)
		return rejected(StageQualityChecked, agent.CodeStoreError, "commit specifications: "+err.Error())
	}

	p.recalculateMaturity(ctx, projectID)
	logger.Info("pipeline: committed", "project_id", projectID, "specs", len(ids))
	return Outcome{Stage: StageCommitted, Success: true, CommittedSpecIDs: ids}
}

// recalculateMaturity refreshes the project's maturity indicator after a
// successful commit. The commit already landed, so failures only log.
func (p *Pipeline) recalculateMaturity(ctx context.Context, projectID string) {
	counts, err := p.store.CategoryCounts(ctx, projectID)
	if err != nil {
		common.Logger().Warn("pipeline: coverage load failed", "project_id", projectID, "error", err)
		return
	}
	if err := p.store.UpdateProjectMaturity(ctx, projectID, scheduler.MaturityScore(counts)); err != nil {
		common.Logger().Warn("pipeline: maturity update failed", "project_id", projectID, "error", err)
	}
}

// NextCategory exposes the scheduler decision for a project's next question.
func (p *Pipeline) NextCategory(ctx context.Context, projectID string) (spec.Category, error) {
	counts, err := p.store.CategoryCounts(ctx, projectID)
	if err != nil {
		return "", err
	}
	return scheduler.NextCategory(counts), nil
}
