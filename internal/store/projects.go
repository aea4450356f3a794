// File path: internal/store/projects.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSessionNotFound = errors.New("session not found")
)

// CreateProject persists a new project record.
func (s *Store) CreateProject(ctx context.Context, project spec.Project) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(project.ID) == "" {
		return fmt.Errorf("project id required")
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = now
	}
	if project.CurrentPhase == "" {
		project.CurrentPhase = spec.PhaseDiscovery
	}
	if project.Status == "" {
		project.Status = spec.ProjectActive
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO projects
                (id, owner, name, description, current_phase, maturity_score, status, created_at, updated_at)
                VALUES (:id, :owner, :name, :description, :current_phase, :maturity_score, :status, :created_at, :updated_at)`,
		project)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Project loads a single project by id.
func (s *Store) Project(ctx context.Context, id string) (*spec.Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var project spec.Project
	if err := s.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return &project, nil
}

// ListProjects returns projects for an owner, or every project when the owner
// filter is empty. Archived projects are included; callers filter by status.
func (s *Store) ListProjects(ctx context.Context, owner string) ([]spec.Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	projects := []spec.Project{}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		if err := s.db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY created_at, id`); err != nil {
			return nil, fmt.Errorf("select projects: %w", err)
		}
		return projects, nil
	}
	if err := s.db.SelectContext(ctx, &projects, `SELECT * FROM projects WHERE owner = ? ORDER BY created_at, id`, owner); err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectFields applies name/description/phase updates. Empty values
// leave the stored field untouched.
func (s *Store) UpdateProjectFields(ctx context.Context, id, name, description, phase string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	project, err := s.Project(ctx, id)
	if err != nil {
		return err
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		project.Name = trimmed
	}
	if trimmed := strings.TrimSpace(description); trimmed != "" {
		project.Description = trimmed
	}
	if trimmed := strings.TrimSpace(phase); trimmed != "" {
		project.CurrentPhase = trimmed
	}
	project.UpdatedAt = time.Now().UTC()
	_, err = s.db.NamedExecContext(ctx, `UPDATE projects SET
                name = :name, description = :description, current_phase = :current_phase, updated_at = :updated_at
                WHERE id = :id`, project)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// UpdateProjectMaturity stores a recomputed maturity score, clamped to 0-100.
func (s *Store) UpdateProjectMaturity(ctx context.Context, id string, score int) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET maturity_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update maturity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update maturity: %w", err)
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// ArchiveProject soft-deletes a project by flipping its status.
func (s *Store) ArchiveProject(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		spec.ProjectArchived, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// CreateSession opens a new question/answer session for a project.
func (s *Store) CreateSession(ctx context.Context, session spec.Session) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id required")
	}
	if strings.TrimSpace(session.ProjectID) == "" {
		return fmt.Errorf("session project id required")
	}
	if session.Mode == "" {
		session.Mode = spec.SessionGuided
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sessions (id, project_id, mode, started_at, ended_at)
                VALUES (:id, :project_id, :mode, :started_at, :ended_at)`, session)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Session loads a single session by id.
func (s *Store) Session(ctx context.Context, id string) (*spec.Session, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var session spec.Session
	if err := s.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &session, nil
}

// EndSession stamps the session's end time. Ending an ended session is a
// no-op so the operation stays idempotent.
func (s *Store) EndSession(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}
	if _, err := s.Session(ctx, id); err != nil {
		return err
	}
	return nil
}
