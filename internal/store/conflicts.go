// File path: internal/store/conflicts.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

var ErrConflictNotFound = errors.New("conflict not found")

type conflictRow struct {
	ID         string     `db:"id"`
	ProjectID  string     `db:"project_id"`
	SpecIDs    string     `db:"spec_ids"`
	Type       string     `db:"type"`
	Severity   string     `db:"severity"`
	Status     string     `db:"status"`
	Resolution string     `db:"resolution"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

func (r conflictRow) toConflict() (spec.Conflict, error) {
	conflict := spec.Conflict{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		Type:       r.Type,
		Severity:   r.Severity,
		Status:     r.Status,
		Resolution: r.Resolution,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
	if strings.TrimSpace(r.SpecIDs) != "" {
		if err := json.Unmarshal([]byte(r.SpecIDs), &conflict.SpecIDs); err != nil {
			return spec.Conflict{}, fmt.Errorf("decode conflict spec ids: %w", err)
		}
	}
	return conflict, nil
}

// CreateConflicts persists detected conflict records. Conflict rows are the
// one write that survives a rejected submission, so they get their own
// transaction independent of the specification commit.
func (s *Store) CreateConflicts(ctx context.Context, conflicts []spec.Conflict) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin conflict insert: %w", err)
	}
	now := time.Now().UTC()
	for _, conflict := range conflicts {
		if strings.TrimSpace(conflict.ID) == "" {
			tx.Rollback()
			return fmt.Errorf("conflict id required")
		}
		if conflict.Status == "" {
			conflict.Status = spec.ConflictOpen
		}
		if conflict.Severity == "" {
			conflict.Severity = spec.SeverityMedium
		}
		if conflict.CreatedAt.IsZero() {
			conflict.CreatedAt = now
		}
		encoded, err := json.Marshal(conflict.SpecIDs)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode conflict spec ids: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO conflicts
                        (id, project_id, spec_ids, type, severity, status, resolution, created_at, resolved_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			conflict.ID, conflict.ProjectID, string(encoded), conflict.Type, conflict.Severity,
			conflict.Status, conflict.Resolution, conflict.CreatedAt, conflict.ResolvedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert conflict: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conflicts: %w", err)
	}
	return nil
}

// Conflict loads a single conflict by id.
func (s *Store) Conflict(ctx context.Context, id string) (*spec.Conflict, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row conflictRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM conflicts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, fmt.Errorf("select conflict: %w", err)
	}
	conflict, err := row.toConflict()
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

// ConflictsForProject lists conflicts for a project. An empty status returns
// every record.
func (s *Store) ConflictsForProject(ctx context.Context, projectID, status string) ([]spec.Conflict, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := []conflictRow{}
	status = strings.TrimSpace(status)
	if status == "" {
		if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM conflicts WHERE project_id = ? ORDER BY created_at, id`, projectID); err != nil {
			return nil, fmt.Errorf("select conflicts: %w", err)
		}
	} else {
		if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM conflicts WHERE project_id = ? AND status = ? ORDER BY created_at, id`, projectID, status); err != nil {
			return nil, fmt.Errorf("select conflicts: %w", err)
		}
	}
	conflicts := make([]spec.Conflict, 0, len(rows))
	for _, row := range rows {
		conflict, err := row.toConflict()
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

// ResolveConflict transitions an open conflict to resolved or ignored. The
// transition only ever happens through this explicit call.
func (s *Store) ResolveConflict(ctx context.Context, id, status, resolution string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if status != spec.ConflictResolved && status != spec.ConflictIgnored {
		return fmt.Errorf("invalid conflict status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE conflicts SET status = ?, resolution = ?, resolved_at = ? WHERE id = ?`,
		status, resolution, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if affected == 0 {
		return ErrConflictNotFound
	}
	return nil
}
