// File path: internal/spec/types.go
package spec

import (
	"strings"
	"time"
)

// Category classifies questions and specifications into the fixed coverage
// dimensions the scheduler tracks.
type Category string

const (
	CategoryGoals         Category = "goals"
	CategoryFunctional    Category = "functional"
	CategoryNonfunctional Category = "nonfunctional"
	CategoryConstraints   Category = "constraints"
	CategoryStakeholders  Category = "stakeholders"
	CategoryInterfaces    Category = "interfaces"
	CategoryData          Category = "data"
	CategoryRisks         Category = "risks"
)

// Categories lists every category in its canonical order. The order doubles
// as the tie-break rule when several categories share the lowest coverage.
func Categories() []Category {
	return []Category{
		CategoryGoals,
		CategoryFunctional,
		CategoryNonfunctional,
		CategoryConstraints,
		CategoryStakeholders,
		CategoryInterfaces,
		CategoryData,
		CategoryRisks,
	}
}

// CoverageTargets returns the number of current specifications each category
// needs before it counts as fully covered.
func CoverageTargets() map[Category]int {
	return map[Category]int{
		CategoryGoals:         10,
		CategoryFunctional:    15,
		CategoryNonfunctional: 10,
		CategoryConstraints:   8,
		CategoryStakeholders:  5,
		CategoryInterfaces:    8,
		CategoryData:          8,
		CategoryRisks:         5,
	}
}

// ParseCategory normalises free-form category text to a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, category := range Categories() {
		if category == normalized {
			return category, true
		}
	}
	return "", false
}

// Project phases and statuses.
const (
	PhaseDiscovery  = "discovery"
	PhaseAnalysis   = "analysis"
	PhaseRefinement = "refinement"

	ProjectActive   = "active"
	ProjectArchived = "archived"
)

type Project struct {
	ID            string    `db:"id" json:"id"`
	Owner         string    `db:"owner" json:"owner"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description,omitempty"`
	CurrentPhase  string    `db:"current_phase" json:"current_phase"`
	MaturityScore int       `db:"maturity_score" json:"maturity_score"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Session modes.
const (
	SessionGuided   = "guided"
	SessionFreeform = "freeform"
)

type Session struct {
	ID        string     `db:"id" json:"id"`
	ProjectID string     `db:"project_id" json:"project_id"`
	Mode      string     `db:"mode" json:"mode"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// Question statuses.
const (
	QuestionPending  = "pending"
	QuestionAnswered = "answered"
	QuestionSkipped  = "skipped"
)

type Question struct {
	ID           string     `db:"id" json:"id"`
	ProjectID    string     `db:"project_id" json:"project_id"`
	SessionID    string     `db:"session_id" json:"session_id"`
	Category     Category   `db:"category" json:"category"`
	Text         string     `db:"text" json:"text"`
	Context      string     `db:"context" json:"context,omitempty"`
	QualityScore float64    `db:"quality_score" json:"quality_score"`
	Status       string     `db:"status" json:"status"`
	Answer       string     `db:"answer" json:"answer,omitempty"`
	AnsweredAt   *time.Time `db:"answered_at" json:"answered_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Specification sources.
const (
	SourceAnswer = "answer"
	SourceImport = "import"
	SourceManual = "manual"
)

type Specification struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	Category     Category  `db:"category" json:"category"`
	Content      string    `db:"content" json:"content"`
	Source       string    `db:"source" json:"source"`
	Confidence   float64   `db:"confidence" json:"confidence"`
	IsCurrent    bool      `db:"is_current" json:"is_current"`
	SupersededBy string    `db:"superseded_by" json:"superseded_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Candidate is a specification proposed by the extraction gate before it has
// been committed. Candidates exist only in memory until the pipeline commits.
type Candidate struct {
	Category   Category `json:"category"`
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	// Supersedes carries the ids of current specifications this candidate
	// replaces when committed.
	Supersedes []string `json:"supersedes,omitempty"`
}

// Conflict statuses and severities.
const (
	ConflictOpen     = "open"
	ConflictResolved = "resolved"
	ConflictIgnored  = "ignored"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type Conflict struct {
	ID         string     `db:"id" json:"id"`
	ProjectID  string     `db:"project_id" json:"project_id"`
	SpecIDs    []string   `db:"-" json:"spec_ids"`
	Type       string     `db:"type" json:"type"`
	Severity   string     `db:"severity" json:"severity"`
	Status     string     `db:"status" json:"status"`
	Resolution string     `db:"resolution" json:"resolution,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
