// File path: internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "socrates.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedProject(t *testing.T, st *Store) spec.Project {
	t.Helper()
	project := spec.Project{ID: uuid.NewString(), Owner: "alice", Name: "inventory system"}
	if err := st.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project
}

func seedSession(t *testing.T, st *Store, projectID string) spec.Session {
	t.Helper()
	session := spec.Session{ID: uuid.NewString(), ProjectID: projectID, Mode: spec.SessionGuided}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return session
}

func seedQuestion(t *testing.T, st *Store, projectID, sessionID string, category spec.Category) spec.Question {
	t.Helper()
	question := spec.Question{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		SessionID: sessionID,
		Category:  category,
		Text:      "What should the system achieve?",
	}
	if err := st.CreateQuestion(context.Background(), question); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return question
}

func TestProjectLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	loaded, err := st.Project(ctx, project.ID)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if loaded.CurrentPhase != spec.PhaseDiscovery || loaded.Status != spec.ProjectActive {
		t.Fatalf("defaults not applied: %+v", loaded)
	}

	if err := st.UpdateProjectFields(ctx, project.ID, "renamed", "", spec.PhaseAnalysis); err != nil {
		t.Fatalf("UpdateProjectFields: %v", err)
	}
	loaded, err = st.Project(ctx, project.ID)
	if err != nil {
		t.Fatalf("Project after update: %v", err)
	}
	if loaded.Name != "renamed" || loaded.CurrentPhase != spec.PhaseAnalysis {
		t.Fatalf("update not applied: %+v", loaded)
	}

	if err := st.ArchiveProject(ctx, project.ID); err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	loaded, err = st.Project(ctx, project.ID)
	if err != nil {
		t.Fatalf("Project after archive: %v", err)
	}
	if loaded.Status != spec.ProjectArchived {
		t.Fatalf("Status = %s, want %s", loaded.Status, spec.ProjectArchived)
	}

	if _, err := st.Project(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("Project(missing) = %v, want ErrProjectNotFound", err)
	}
}

func TestListProjectsByOwner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	other := spec.Project{ID: uuid.NewString(), Owner: "bob", Name: "billing"}
	if err := st.CreateProject(ctx, other); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	all, err := st.ListProjects(ctx, "")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	mine, err := st.ListProjects(ctx, "bob")
	if err != nil {
		t.Fatalf("ListProjects(bob): %v", err)
	}
	if len(mine) != 1 || mine[0].ID != other.ID {
		t.Fatalf("owner filter failed: %+v", mine)
	}
}

func TestUpdateProjectMaturityClamps(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	if err := st.UpdateProjectMaturity(ctx, project.ID, 150); err != nil {
		t.Fatalf("UpdateProjectMaturity: %v", err)
	}
	loaded, err := st.Project(ctx, project.ID)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if loaded.MaturityScore != 100 {
		t.Fatalf("MaturityScore = %d, want 100", loaded.MaturityScore)
	}
	if err := st.UpdateProjectMaturity(ctx, "missing", 10); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("UpdateProjectMaturity(missing) = %v, want ErrProjectNotFound", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)
	session := seedSession(t, st, project.ID)

	loaded, err := st.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if loaded.EndedAt != nil {
		t.Fatalf("EndedAt = %v, want nil", loaded.EndedAt)
	}
	if err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	// Ending twice stays idempotent.
	if err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	loaded, err = st.Session(ctx, session.ID)
	if err != nil {
		t.Fatalf("Session after end: %v", err)
	}
	if loaded.EndedAt == nil {
		t.Fatal("EndedAt still nil after EndSession")
	}
	if _, err := st.Session(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Session(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestCommitSpecificationsTransaction(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)
	session := seedSession(t, st, project.ID)
	question := seedQuestion(t, st, project.ID, session.ID, spec.CategoryGoals)

	first := spec.Specification{
		ID:         uuid.NewString(),
		Category:   spec.CategoryGoals,
		Content:    "Track inventory levels in real time",
		Source:     spec.SourceAnswer,
		Confidence: 0.9,
	}
	if err := st.CommitSpecifications(ctx, project.ID, question.ID, "real time tracking", []spec.Specification{first}, nil); err != nil {
		t.Fatalf("CommitSpecifications: %v", err)
	}

	answered, err := st.Question(ctx, question.ID)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if answered.Status != spec.QuestionAnswered || answered.Answer == "" || answered.AnsweredAt == nil {
		t.Fatalf("question not stamped: %+v", answered)
	}

	counts, err := st.CategoryCounts(ctx, project.ID)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts[spec.CategoryGoals] != 1 {
		t.Fatalf("counts[goals] = %d, want 1", counts[spec.CategoryGoals])
	}

	// A second commit supersedes the first row; the coverage count must not
	// grow because only current rows are counted.
	replacement := spec.Specification{
		ID:         uuid.NewString(),
		Category:   spec.CategoryGoals,
		Content:    "Track inventory levels with sub-second latency",
		Source:     spec.SourceAnswer,
		Confidence: 0.95,
	}
	superseded := map[string]string{first.ID: replacement.ID}
	if err := st.CommitSpecifications(ctx, project.ID, "", "", []spec.Specification{replacement}, superseded); err != nil {
		t.Fatalf("superseding commit: %v", err)
	}
	counts, err = st.CategoryCounts(ctx, project.ID)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts[spec.CategoryGoals] != 1 {
		t.Fatalf("counts[goals] after supersede = %d, want 1", counts[spec.CategoryGoals])
	}
	old, err := st.Specification(ctx, first.ID)
	if err != nil {
		t.Fatalf("Specification(old): %v", err)
	}
	if old.IsCurrent || old.SupersededBy != replacement.ID {
		t.Fatalf("old row not demoted: %+v", old)
	}

	current, err := st.CurrentSpecifications(ctx, project.ID, spec.CategoryGoals)
	if err != nil {
		t.Fatalf("CurrentSpecifications: %v", err)
	}
	if len(current) != 1 || current[0].ID != replacement.ID {
		t.Fatalf("current set = %+v", current)
	}
}

func TestCommitSpecificationsRollsBackOnBadSupersede(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	record := spec.Specification{
		ID:       uuid.NewString(),
		Category: spec.CategoryData,
		Content:  "Orders reference products by SKU",
		Source:   spec.SourceAnswer,
	}
	err := st.CommitSpecifications(ctx, project.ID, "", "", []spec.Specification{record}, map[string]string{"missing": record.ID})
	if !errors.Is(err, ErrSpecificationNotFound) {
		t.Fatalf("CommitSpecifications = %v, want ErrSpecificationNotFound", err)
	}
	// Nothing from the failed transaction may be visible.
	if _, err := st.Specification(ctx, record.ID); !errors.Is(err, ErrSpecificationNotFound) {
		t.Fatalf("failed commit left a row behind: %v", err)
	}
	counts, err := st.CategoryCounts(ctx, project.ID)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if counts[spec.CategoryData] != 0 {
		t.Fatalf("counts[data] = %d, want 0", counts[spec.CategoryData])
	}
}

func TestConflictLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)

	conflict := spec.Conflict{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		SpecIDs:   []string{uuid.NewString(), uuid.NewString()},
		Type:      "contradiction",
		Severity:  spec.SeverityHigh,
		Status:    spec.ConflictOpen,
	}
	if err := st.CreateConflicts(ctx, []spec.Conflict{conflict}); err != nil {
		t.Fatalf("CreateConflicts: %v", err)
	}

	loaded, err := st.Conflict(ctx, conflict.ID)
	if err != nil {
		t.Fatalf("Conflict: %v", err)
	}
	if len(loaded.SpecIDs) != 2 {
		t.Fatalf("SpecIDs round-trip failed: %+v", loaded)
	}

	open, err := st.ConflictsForProject(ctx, project.ID, spec.ConflictOpen)
	if err != nil {
		t.Fatalf("ConflictsForProject: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open conflicts = %d, want 1", len(open))
	}

	if err := st.ResolveConflict(ctx, conflict.ID, spec.ConflictResolved, "kept the newer statement"); err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	loaded, err = st.Conflict(ctx, conflict.ID)
	if err != nil {
		t.Fatalf("Conflict after resolve: %v", err)
	}
	if loaded.Status != spec.ConflictResolved || loaded.ResolvedAt == nil {
		t.Fatalf("resolution not recorded: %+v", loaded)
	}

	if err := st.ResolveConflict(ctx, "missing", spec.ConflictIgnored, ""); !errors.Is(err, ErrConflictNotFound) {
		t.Fatalf("ResolveConflict(missing) = %v, want ErrConflictNotFound", err)
	}
}

func TestQuestionSkip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	project := seedProject(t, st)
	session := seedSession(t, st, project.ID)
	question := seedQuestion(t, st, project.ID, session.ID, spec.CategoryRisks)

	if err := st.MarkQuestionSkipped(ctx, question.ID); err != nil {
		t.Fatalf("MarkQuestionSkipped: %v", err)
	}
	loaded, err := st.Question(ctx, question.ID)
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if loaded.Status != spec.QuestionSkipped {
		t.Fatalf("Status = %s, want %s", loaded.Status, spec.QuestionSkipped)
	}
	if _, err := st.Question(ctx, "missing"); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("Question(missing) = %v, want ErrQuestionNotFound", err)
	}
}
