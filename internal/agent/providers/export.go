// File path: internal/agent/providers/export.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/scheduler"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// ExportProvider renders the current specification set for external
// consumption. Superseded rows never appear in an export.
type ExportProvider struct {
	operationSet
	store *store.Store
}

func NewExportProvider(st *store.Store) *ExportProvider {
	p := &ExportProvider{store: st}
	p.operationSet = operationSet{
		name: "export",
		ops: map[string]agent.HandlerFunc{
			"export_markdown": p.exportMarkdown,
			"export_json":     p.exportJSON,
		},
	}
	return p
}

func (p *ExportProvider) load(ctx context.Context, payload agent.Payload) (*spec.Project, []spec.Specification, agent.Result, bool) {
	projectID := stringField(payload, "project_id")
	if projectID == "" {
		return nil, nil, agent.Fail(agent.CodeValidationError, "project_id is required"), false
	}
	project, err := p.store.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return nil, nil, agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID), false
		}
		return nil, nil, agent.Fail(agent.CodeStoreError, "load project: %v", err), false
	}
	specs, err := p.store.CurrentSpecifications(ctx, projectID, "")
	if err != nil {
		return nil, nil, agent.Fail(agent.CodeStoreError, "load specifications: %v", err), false
	}
	return project, specs, agent.Result{}, true
}

func (p *ExportProvider) exportJSON(ctx context.Context, payload agent.Payload) agent.Result {
	project, specs, failure, ok := p.load(ctx, payload)
	if !ok {
		return failure
	}
	counts := make(map[spec.Category]int, len(specs))
	for _, record := range specs {
		counts[record.Category]++
	}
	return agent.OK(agent.Payload{
		"project":        project,
		"specifications": specs,
		"coverage":       scheduler.Coverage(counts),
		"count":          len(specs),
	})
}

func (p *ExportProvider) exportMarkdown(ctx context.Context, payload agent.Payload) agent.Result {
	project, specs, failure, ok := p.load(ctx, payload)
	if !ok {
		return failure
	}
	grouped := make(map[spec.Category][]spec.Specification, len(specs))
	for _, record := range specs {
		grouped[record.Category] = append(grouped[record.Category], record)
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "# %s\n\n", project.Name)
	if project.Description != "" {
		fmt.Fprintf(&builder, "%s\n\n", project.Description)
	}
	fmt.Fprintf(&builder, "Phase: %s | Maturity: %d/100\n", project.CurrentPhase, project.MaturityScore)
	for _, category := range spec.Categories() {
		records := grouped[category]
		if len(records) == 0 {
			continue
		}
		fmt.Fprintf(&builder, "\n## %s\n\n", titleCase(string(category)))
		for _, record := range records {
			fmt.Fprintf(&builder, "- %s (confidence %.2f)\n", record.Content, record.Confidence)
		}
	}
	return agent.OK(agent.Payload{"markdown": builder.String(), "count": len(specs)})
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
