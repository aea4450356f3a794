// File path: internal/agent/providers/project.go
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/scheduler"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// ProjectProvider owns the project and session lifecycle capabilities.
type ProjectProvider struct {
	operationSet
	store *store.Store
}

func NewProjectProvider(st *store.Store) *ProjectProvider {
	p := &ProjectProvider{store: st}
	p.operationSet = operationSet{
		name: "project",
		ops: map[string]agent.HandlerFunc{
			"create_project":  p.createProject,
			"get_project":     p.getProject,
			"list_projects":   p.listProjects,
			"update_project":  p.updateProject,
			"archive_project": p.archiveProject,
			"start_session":   p.startSession,
			"end_session":     p.endSession,
		},
	}
	return p
}

func (p *ProjectProvider) createProject(ctx context.Context, payload agent.Payload) agent.Result {
	owner := stringField(payload, "owner")
	name := stringField(payload, "name")
	if owner == "" || name == "" {
		return agent.Fail(agent.CodeValidationError, "owner and name are required")
	}
	project := spec.Project{
		ID:           uuid.NewString(),
		Owner:        owner,
		Name:         name,
		Description:  stringField(payload, "description"),
		CurrentPhase: spec.PhaseDiscovery,
		Status:       spec.ProjectActive,
	}
	if err := p.store.CreateProject(ctx, project); err != nil {
		return agent.Fail(agent.CodeStoreError, "create project: %v", err)
	}
	common.Logger().Info("project: created", "project_id", project.ID, "owner", owner)
	return agent.OK(agent.Payload{"project_id": project.ID, "project": project})
}

func (p *ProjectProvider) getProject(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	project, err := p.store.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID)
		}
		return agent.Fail(agent.CodeStoreError, "load project: %v", err)
	}
	counts, err := p.store.CategoryCounts(ctx, projectID)
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "load coverage: %v", err)
	}
	return agent.OK(agent.Payload{
		"project":  project,
		"coverage": scheduler.Coverage(counts),
		"maturity": scheduler.MaturityScore(counts),
	})
}

func (p *ProjectProvider) listProjects(ctx context.Context, payload agent.Payload) agent.Result {
	projects, err := p.store.ListProjects(ctx, stringField(payload, "owner"))
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "list projects: %v", err)
	}
	return agent.OK(agent.Payload{"projects": projects, "count": len(projects)})
}

func (p *ProjectProvider) updateProject(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	err := p.store.UpdateProjectFields(ctx, projectID,
		stringField(payload, "name"), stringField(payload, "description"), stringField(payload, "phase"))
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID)
		}
		return agent.Fail(agent.CodeStoreError, "update project: %v", err)
	}
	return agent.OK(agent.Payload{"project_id": projectID})
}

func (p *ProjectProvider) archiveProject(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	if err := p.store.ArchiveProject(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID)
		}
		return agent.Fail(agent.CodeStoreError, "archive project: %v", err)
	}
	if err := p.store.AppendAudit(ctx, projectID, "project_archived", ""); err != nil {
		common.Logger().Warn("project: audit append failed", "error", err)
	}
	return agent.OK(agent.Payload{"project_id": projectID, "status": spec.ProjectArchived})
}

func (p *ProjectProvider) startSession(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id is required")
	}
	if _, err := p.store.Project(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID)
		}
		return agent.Fail(agent.CodeStoreError, "load project: %v", err)
	}
	mode := stringField(payload, "mode")
	if mode == "" {
		mode = spec.SessionGuided
	}
	session := spec.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}
	if err := p.store.CreateSession(ctx, session); err != nil {
		return agent.Fail(agent.CodeStoreError, "start session: %v", err)
	}
	return agent.OK(agent.Payload{"session_id": session.ID, "session": session})
}

func (p *ProjectProvider) endSession(ctx context.Context, payload agent.Payload) agent.Result {
	sessionID := stringField(payload, "session_id")
	if sessionID == "" {
		return agent.Fail(agent.CodeValidationError, "session_id is required")
	}
	if err := p.store.EndSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return agent.Fail(agent.CodeSessionNotFound, "session %s not found", sessionID)
		}
		return agent.Fail(agent.CodeStoreError, "end session: %v", err)
	}
	return agent.OK(agent.Payload{"session_id": sessionID})
}
