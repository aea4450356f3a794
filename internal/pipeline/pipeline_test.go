// File path: internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

type stubAgent struct {
	name string
	ops  map[string]agent.HandlerFunc
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Capabilities() []string {
	out := make([]string, 0, len(s.ops))
	for op := range s.ops {
		out = append(out, op)
	}
	return out
}

func (s *stubAgent) Handler(operation string) (agent.HandlerFunc, bool) {
	handler, ok := s.ops[operation]
	return handler, ok
}

type fixture struct {
	store    *store.Store
	registry *agent.Registry
	pipeline *Pipeline

	project  spec.Project
	session  spec.Session
	question spec.Question
}

// newFixture builds a pipeline over a real temporary database with
// deterministic stand-ins for the three gate agents. Gates default to
// passing; tests override the relevant handler.
func newFixture(t *testing.T, overrides map[string]agent.HandlerFunc) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "socrates.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	extract := func(ctx context.Context, payload agent.Payload) agent.Result {
		candidates := []spec.Candidate{{
			Category:   spec.CategoryGoals,
			Content:    "The system tracks inventory in real time",
			Confidence: 0.9,
		}}
		return agent.OK(agent.Payload{"candidates": candidates, "count": len(candidates)})
	}
	detect := func(ctx context.Context, payload agent.Payload) agent.Result {
		return agent.OK(agent.Payload{"conflicts_detected": false, "conflicts": []spec.Conflict{}})
	}
	check := func(ctx context.Context, payload agent.Payload) agent.Result {
		return agent.OK(agent.Payload{"score": 0.8, "is_blocking": false, "reason": ""})
	}
	if h, ok := overrides["extract_specifications"]; ok {
		extract = h
	}
	if h, ok := overrides["detect_conflicts"]; ok {
		detect = h
	}
	if h, ok := overrides["check_quality"]; ok {
		check = h
	}

	registry := agent.NewRegistry()
	agents := []*stubAgent{
		{name: "extraction", ops: map[string]agent.HandlerFunc{"extract_specifications": extract}},
		{name: "conflict", ops: map[string]agent.HandlerFunc{"detect_conflicts": detect}},
		{name: "quality", ops: map[string]agent.HandlerFunc{"check_quality": check}},
	}
	for _, a := range agents {
		if err := registry.Register(a); err != nil {
			t.Fatalf("Register(%s): %v", a.name, err)
		}
	}

	f := &fixture{
		store:    st,
		registry: registry,
		pipeline: New(registry, st, 5*time.Second),
	}
	f.project = spec.Project{ID: uuid.NewString(), Owner: "alice", Name: "inventory"}
	if err := st.CreateProject(ctx, f.project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	f.session = spec.Session{ID: uuid.NewString(), ProjectID: f.project.ID, Mode: spec.SessionGuided}
	if err := st.CreateSession(ctx, f.session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	f.question = spec.Question{
		ID:        uuid.NewString(),
		ProjectID: f.project.ID,
		SessionID: f.session.ID,
		Category:  spec.CategoryGoals,
		Text:      "What must the system achieve first?",
	}
	if err := st.CreateQuestion(ctx, f.question); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return f
}

func (f *fixture) submit(t *testing.T, answer string) Outcome {
	t.Helper()
	return f.pipeline.Submit(context.Background(), SubmitRequest{
		SessionID:  f.session.ID,
		QuestionID: f.question.ID,
		Answer:     answer,
	})
}

func TestSubmitCommits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	outcome := f.submit(t, "track stock levels as they change")
	if !outcome.Success || outcome.Stage != StageCommitted {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(outcome.CommittedSpecIDs) != 1 {
		t.Fatalf("CommittedSpecIDs = %v, want one id", outcome.CommittedSpecIDs)
	}

	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, spec.CategoryGoals)
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 1 || current[0].ID != outcome.CommittedSpecIDs[0] {
		t.Fatalf("committed rows = %+v", current)
	}

	question, err := f.store.Question(ctx, f.question.ID)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if question.Status != spec.QuestionAnswered {
		t.Fatalf("question status = %s, want %s", question.Status, spec.QuestionAnswered)
	}

	project, err := f.store.Project(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if project.MaturityScore <= 0 {
		t.Fatalf("maturity not recomputed: %d", project.MaturityScore)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil)

	outcome := f.pipeline.Submit(context.Background(), SubmitRequest{})
	if outcome.Success || outcome.ErrorCode != agent.CodeValidationError {
		t.Fatalf("outcome = %+v", outcome)
	}

	outcome = f.pipeline.Submit(context.Background(), SubmitRequest{
		SessionID:  "missing",
		QuestionID: f.question.ID,
		Answer:     "something",
	})
	if outcome.ErrorCode != agent.CodeSessionNotFound {
		t.Fatalf("ErrorCode = %s, want %s", outcome.ErrorCode, agent.CodeSessionNotFound)
	}

	outcome = f.pipeline.Submit(context.Background(), SubmitRequest{
		SessionID:  f.session.ID,
		QuestionID: "missing",
		Answer:     "something",
	})
	if outcome.ErrorCode != agent.CodeQuestionNotFound {
		t.Fatalf("ErrorCode = %s, want %s", outcome.ErrorCode, agent.CodeQuestionNotFound)
	}
}

func TestSubmitRejectsOnConflictAndPersistsConflictRows(t *testing.T) {
	conflictID := uuid.NewString()
	var projectID string
	f := newFixture(t, map[string]agent.HandlerFunc{
		"detect_conflicts": func(ctx context.Context, payload agent.Payload) agent.Result {
			conflicts := []spec.Conflict{{
				ID:        conflictID,
				ProjectID: projectID,
				SpecIDs:   []string{uuid.NewString()},
				Type:      "contradiction",
				Severity:  spec.SeverityHigh,
				Status:    spec.ConflictOpen,
			}}
			return agent.OK(agent.Payload{"conflicts_detected": true, "conflicts": conflicts})
		},
	})
	projectID = f.project.ID
	ctx := context.Background()

	outcome := f.submit(t, "stock may go negative")
	if outcome.Success || outcome.Stage != StageRejected {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.ErrorCode != agent.CodeConflictDetected {
		t.Fatalf("ErrorCode = %s, want %s", outcome.ErrorCode, agent.CodeConflictDetected)
	}
	if len(outcome.Conflicts) != 1 {
		t.Fatalf("Conflicts = %+v", outcome.Conflicts)
	}

	// The conflict row survives the rejection; the specification table does
	// not change.
	if _, err := f.store.Conflict(ctx, conflictID); err != nil {
		t.Fatalf("Conflict: %v", err)
	}
	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, "")
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 0 {
		t.Fatalf("specifications written on rejection: %+v", current)
	}
	question, err := f.store.Question(ctx, f.question.ID)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if question.Status != spec.QuestionPending {
		t.Fatalf("question status = %s, want %s", question.Status, spec.QuestionPending)
	}
}

func TestSubmitRejectsOnBlockingQuality(t *testing.T) {
	f := newFixture(t, map[string]agent.HandlerFunc{
		"check_quality": func(ctx context.Context, payload agent.Payload) agent.Result {
			return agent.OK(agent.Payload{
				"score":        0.1,
				"is_blocking":  true,
				"reason":       "statement is too vague",
				"alternatives": []string{"Name the latency target explicitly"},
			})
		},
	})
	ctx := context.Background()

	outcome := f.submit(t, "it should be fast")
	if outcome.Success || outcome.ErrorCode != agent.CodeQualityCheckFailed {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.RejectReason != "statement is too vague" {
		t.Fatalf("RejectReason = %q", outcome.RejectReason)
	}
	if len(outcome.Alternatives) != 1 {
		t.Fatalf("Alternatives = %v", outcome.Alternatives)
	}
	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, "")
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 0 {
		t.Fatalf("specifications written on rejection: %+v", current)
	}
}

func TestSubmitRejectsOnExtractionFailure(t *testing.T) {
	f := newFixture(t, map[string]agent.HandlerFunc{
		"extract_specifications": func(ctx context.Context, payload agent.Payload) agent.Result {
			return agent.Fail(agent.CodeExtractionError, "completion output invalid")
		},
	})

	outcome := f.submit(t, "anything")
	if outcome.Success || outcome.ErrorCode != agent.CodeExtractionError {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestSubmitEmptyExtractionStillAnswersQuestion(t *testing.T) {
	f := newFixture(t, map[string]agent.HandlerFunc{
		"extract_specifications": func(ctx context.Context, payload agent.Payload) agent.Result {
			return agent.OK(agent.Payload{"candidates": []spec.Candidate{}, "count": 0})
		},
	})
	ctx := context.Background()

	outcome := f.submit(t, "I do not know yet")
	if !outcome.Success || outcome.Stage != StageCommitted {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(outcome.CommittedSpecIDs) != 0 {
		t.Fatalf("CommittedSpecIDs = %v, want none", outcome.CommittedSpecIDs)
	}
	question, err := f.store.Question(ctx, f.question.ID)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if question.Status != spec.QuestionAnswered {
		t.Fatalf("question status = %s, want %s", question.Status, spec.QuestionAnswered)
	}
}

func TestSubmitSupersedesExistingSpecification(t *testing.T) {
	existingID := uuid.NewString()
	f := newFixture(t, map[string]agent.HandlerFunc{
		"extract_specifications": func(ctx context.Context, payload agent.Payload) agent.Result {
			candidates := []spec.Candidate{{
				Category:   spec.CategoryGoals,
				Content:    "The system tracks inventory with sub-second latency",
				Confidence: 0.95,
				Supersedes: []string{existingID},
			}}
			return agent.OK(agent.Payload{"candidates": candidates, "count": 1})
		},
	})
	ctx := context.Background()

	existing := spec.Specification{
		ID:         existingID,
		Category:   spec.CategoryGoals,
		Content:    "The system tracks inventory eventually",
		Source:     spec.SourceAnswer,
		Confidence: 0.5,
	}
	if err := f.store.CommitSpecifications(ctx, f.project.ID, "", "", []spec.Specification{existing}, nil); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	outcome := f.submit(t, "actually it must be sub-second")
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}

	old, err := f.store.Specification(ctx, existingID)
	if err != nil {
		t.Fatalf("Specification: %v", err)
	}
	if old.IsCurrent {
		t.Fatal("superseded specification still current")
	}
	if old.SupersededBy != outcome.CommittedSpecIDs[0] {
		t.Fatalf("SupersededBy = %s, want %s", old.SupersededBy, outcome.CommittedSpecIDs[0])
	}
	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, spec.CategoryGoals)
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("current set = %+v", current)
	}
}

func TestSubmitSerializesPerProject(t *testing.T) {
	// The detector records how many current specifications it can see and
	// lingers long enough for an unserialised second submission to slip past
	// it. With stages two through four exclusive per project, one detection
	// must observe the other submission's committed row.
	var mu sync.Mutex
	var snapshots []int
	var st *store.Store
	var projectID string
	f := newFixture(t, map[string]agent.HandlerFunc{
		"detect_conflicts": func(ctx context.Context, payload agent.Payload) agent.Result {
			current, err := st.CurrentSpecifications(ctx, projectID, "")
			if err != nil {
				return agent.Fail(agent.CodeStoreError, "load current: %v", err)
			}
			mu.Lock()
			snapshots = append(snapshots, len(current))
			mu.Unlock()
			time.Sleep(150 * time.Millisecond)
			return agent.OK(agent.Payload{"conflicts_detected": false, "conflicts": []spec.Conflict{}})
		},
	})
	st = f.store
	projectID = f.project.ID
	ctx := context.Background()

	second := spec.Question{
		ID:        uuid.NewString(),
		ProjectID: f.project.ID,
		SessionID: f.session.ID,
		Category:  spec.CategoryGoals,
		Text:      "What else must the system achieve?",
	}
	if err := f.store.CreateQuestion(ctx, second); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	outcomes := make([]Outcome, 2)
	var wg sync.WaitGroup
	for i, questionID := range []string{f.question.ID, second.ID} {
		wg.Add(1)
		go func(i int, questionID string) {
			defer wg.Done()
			outcomes[i] = f.pipeline.Submit(ctx, SubmitRequest{
				SessionID:  f.session.ID,
				QuestionID: questionID,
				Answer:     "track stock levels as they change",
			})
		}(i, questionID)
	}
	wg.Wait()

	for i, outcome := range outcomes {
		if !outcome.Success || outcome.Stage != StageCommitted {
			t.Fatalf("outcome[%d] = %+v", i, outcome)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	sort.Ints(snapshots)
	if len(snapshots) != 2 || snapshots[0] != 0 || snapshots[1] != 1 {
		t.Fatalf("detection snapshots = %v, want [0 1]", snapshots)
	}
}

func TestSubmitAcceptsGenericGatePayloads(t *testing.T) {
	f := newFixture(t, map[string]agent.HandlerFunc{
		"extract_specifications": func(ctx context.Context, payload agent.Payload) agent.Result {
			// The shape a JSON transport would deliver instead of typed
			// candidates.
			return agent.OK(agent.Payload{
				"candidates": []interface{}{map[string]interface{}{
					"category":   "goals",
					"content":    "The system tracks inventory in real time",
					"confidence": 0.9,
				}},
				"count": 1,
			})
		},
	})
	ctx := context.Background()

	outcome := f.submit(t, "track stock levels as they change")
	if !outcome.Success || len(outcome.CommittedSpecIDs) != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, spec.CategoryGoals)
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 1 || current[0].Content != "The system tracks inventory in real time" {
		t.Fatalf("committed rows = %+v", current)
	}
}

func TestSubmitRejectsMalformedCandidatePayload(t *testing.T) {
	f := newFixture(t, map[string]agent.HandlerFunc{
		"extract_specifications": func(ctx context.Context, payload agent.Payload) agent.Result {
			return agent.OK(agent.Payload{"candidates": "not a list", "count": 1})
		},
	})
	ctx := context.Background()

	outcome := f.submit(t, "track stock levels as they change")
	if outcome.Success || outcome.ErrorCode != agent.CodeExtractionError {
		t.Fatalf("outcome = %+v", outcome)
	}
	current, err := f.store.CurrentSpecifications(ctx, f.project.ID, "")
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 0 {
		t.Fatalf("specifications written on rejection: %+v", current)
	}
}

func TestSubmitQuestionSessionMismatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	other := spec.Session{ID: uuid.NewString(), ProjectID: f.project.ID, Mode: spec.SessionGuided}
	if err := f.store.CreateSession(ctx, other); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	outcome := f.pipeline.Submit(ctx, SubmitRequest{
		SessionID:  other.ID,
		QuestionID: f.question.ID,
		Answer:     "something",
	})
	if outcome.Success || outcome.ErrorCode != agent.CodeValidationError {
		t.Fatalf("outcome = %+v", outcome)
	}
}
