// File path: internal/store/questions.go
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

var ErrQuestionNotFound = errors.New("question not found")

// CreateQuestion persists a generated question together with the quality
// score the screening gate assigned at creation time.
func (s *Store) CreateQuestion(ctx context.Context, question spec.Question) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(question.ID) == "" {
		return fmt.Errorf("question id required")
	}
	if strings.TrimSpace(question.Text) == "" {
		return fmt.Errorf("question text required")
	}
	if question.Status == "" {
		question.Status = spec.QuestionPending
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO questions
                (id, project_id, session_id, category, text, context, quality_score, status, answer, answered_at, created_at)
                VALUES (:id, :project_id, :session_id, :category, :text, :context, :quality_score, :status, :answer, :answered_at, :created_at)`,
		question)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// Question loads a single question by id.
func (s *Store) Question(ctx context.Context, id string) (*spec.Question, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var question spec.Question
	if err := s.db.GetContext(ctx, &question, `SELECT * FROM questions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("select question: %w", err)
	}
	return &question, nil
}

// QuestionsForSession lists questions asked within one session, oldest first.
func (s *Store) QuestionsForSession(ctx context.Context, sessionID string) ([]spec.Question, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	questions := []spec.Question{}
	if err := s.db.SelectContext(ctx, &questions, `SELECT * FROM questions WHERE session_id = ? ORDER BY created_at, id`, sessionID); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return questions, nil
}

// MarkQuestionSkipped records that the user declined to answer.
func (s *Store) MarkQuestionSkipped(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET status = ? WHERE id = ?`, spec.QuestionSkipped, id)
	if err != nil {
		return fmt.Errorf("skip question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("skip question: %w", err)
	}
	if affected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
