// File path: internal/store/specs.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nireus79/Socrates2-sub000/internal/spec"
)

var ErrSpecificationNotFound = errors.New("specification not found")

// CurrentSpecifications returns the active specification set for a project,
// optionally filtered to a single category.
func (s *Store) CurrentSpecifications(ctx context.Context, projectID string, category spec.Category) ([]spec.Specification, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	specs := []spec.Specification{}
	if category == "" {
		if err := s.db.SelectContext(ctx, &specs, `SELECT * FROM specifications
                        WHERE project_id = ? AND is_current = 1 ORDER BY category, created_at, id`, projectID); err != nil {
			return nil, fmt.Errorf("select specifications: %w", err)
		}
		return specs, nil
	}
	if err := s.db.SelectContext(ctx, &specs, `SELECT * FROM specifications
                WHERE project_id = ? AND category = ? AND is_current = 1 ORDER BY created_at, id`, projectID, category); err != nil {
		return nil, fmt.Errorf("select specifications: %w", err)
	}
	return specs, nil
}

// Specification loads a single specification row regardless of currency.
func (s *Store) Specification(ctx context.Context, id string) (*spec.Specification, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var record spec.Specification
	if err := s.db.GetContext(ctx, &record, `SELECT * FROM specifications WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpecificationNotFound
		}
		return nil, fmt.Errorf("select specification: %w", err)
	}
	return &record, nil
}

// SpecificationsByIDs loads the given rows, current or not.
func (s *Store) SpecificationsByIDs(ctx context.Context, ids []string) ([]spec.Specification, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM specifications WHERE id IN (?) ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build specification query: %w", err)
	}
	query = s.db.Rebind(query)
	specs := []spec.Specification{}
	if err := s.db.SelectContext(ctx, &specs, query, args...); err != nil {
		return nil, fmt.Errorf("select specifications: %w", err)
	}
	return specs, nil
}

// CategoryCounts reads the per-category current specification counts from the
// coverage view. Categories with no rows are absent from the result.
func (s *Store) CategoryCounts(ctx context.Context, projectID string) (map[spec.Category]int, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows := []struct {
		Category     string `db:"category"`
		CurrentCount int    `db:"current_count"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT category, current_count FROM category_coverage_view WHERE project_id = ?`, projectID); err != nil {
		return nil, fmt.Errorf("select coverage: %w", err)
	}
	counts := make(map[spec.Category]int, len(rows))
	for _, row := range rows {
		if category, ok := spec.ParseCategory(row.Category); ok {
			counts[category] = row.CurrentCount
		}
	}
	return counts, nil
}

// CommitSpecifications durably writes every committed specification in a
// single transaction: the new rows are inserted, any rows they supersede are
// demoted, the answered question is stamped, and an audit entry is appended.
// Either all of it lands or none of it does.
func (s *Store) CommitSpecifications(ctx context.Context, projectID, questionID, answer string, committed []spec.Specification, superseded map[string]string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(projectID) == "" {
		return fmt.Errorf("project id required")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	now := time.Now().UTC()
	for i := range committed {
		record := committed[i]
		if strings.TrimSpace(record.ID) == "" {
			tx.Rollback()
			return fmt.Errorf("specification id required")
		}
		record.ProjectID = projectID
		record.IsCurrent = true
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO specifications
                        (id, project_id, category, content, source, confidence, is_current, superseded_by, created_at)
                        VALUES (:id, :project_id, :category, :content, :source, :confidence, :is_current, :superseded_by, :created_at)`,
			record); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert specification: %w", err)
		}
	}
	for oldID, newID := range superseded {
		res, err := tx.ExecContext(ctx, `UPDATE specifications SET is_current = 0, superseded_by = ?
                        WHERE id = ? AND project_id = ? AND is_current = 1`, newID, oldID, projectID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("supersede specification: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("supersede specification: %w", err)
		}
		if affected == 0 {
			tx.Rollback()
			return fmt.Errorf("supersede %s: %w", oldID, ErrSpecificationNotFound)
		}
	}
	if strings.TrimSpace(questionID) != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE questions SET status = ?, answer = ?, answered_at = ? WHERE id = ?`,
			spec.QuestionAnswered, answer, now, questionID); err != nil {
			tx.Rollback()
			return fmt.Errorf("mark question answered: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO audit (project_id, action, detail, created_at) VALUES (?, ?, ?, ?)`,
		projectID, "specifications_committed", fmt.Sprintf("question=%s committed=%d superseded=%d", questionID, len(committed), len(superseded)), now); err != nil {
		tx.Rollback()
		return fmt.Errorf("append audit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit specifications: %w", err)
	}
	return nil
}

// AppendAudit records a standalone audit entry outside of a commit.
func (s *Store) AppendAudit(ctx context.Context, projectID, action, detail string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(action) == "" {
		return fmt.Errorf("audit action required")
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO audit (project_id, action, detail, created_at) VALUES (?, ?, ?, ?)`,
		projectID, action, detail, time.Now().UTC()); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
