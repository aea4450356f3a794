// File path: internal/agent/providers/question.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langgraphgo/graph"

	"github.com/Nireus79/Socrates2-sub000/internal/agent"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
	"github.com/Nireus79/Socrates2-sub000/internal/scheduler"
	"github.com/Nireus79/Socrates2-sub000/internal/spec"
	"github.com/Nireus79/Socrates2-sub000/internal/store"
)

// QuestionProvider generates the next probing question for a session. The
// category comes from the coverage scheduler; the text comes from the
// completion service; the quality screener scores it before it is persisted.
type QuestionProvider struct {
	operationSet
	store    *store.Store
	provider llm.Provider
	screener QualityScreener
}

func NewQuestionProvider(st *store.Store, provider llm.Provider, screener QualityScreener) *QuestionProvider {
	p := &QuestionProvider{store: st, provider: provider, screener: screener}
	p.operationSet = operationSet{
		name: "question",
		ops: map[string]agent.HandlerFunc{
			"generate_question": p.generate,
			"skip_question":     p.skip,
		},
	}
	return p
}

func (p *QuestionProvider) generate(ctx context.Context, payload agent.Payload) agent.Result {
	projectID := stringField(payload, "project_id")
	sessionID := stringField(payload, "session_id")
	if projectID == "" || sessionID == "" {
		return agent.Fail(agent.CodeValidationError, "project_id and session_id are required")
	}
	project, err := p.store.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return agent.Fail(agent.CodeProjectNotFound, "project %s not found", projectID)
		}
		return agent.Fail(agent.CodeStoreError, "load project: %v", err)
	}
	session, err := p.store.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return agent.Fail(agent.CodeSessionNotFound, "session %s not found", sessionID)
		}
		return agent.Fail(agent.CodeStoreError, "load session: %v", err)
	}
	if session.ProjectID != projectID {
		return agent.Fail(agent.CodeValidationError, "session %s does not belong to project %s", sessionID, projectID)
	}

	counts, err := p.store.CategoryCounts(ctx, projectID)
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "load coverage: %v", err)
	}
	category := scheduler.NextCategory(counts)

	asked, err := p.store.QuestionsForSession(ctx, sessionID)
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "load session questions: %v", err)
	}
	current, err := p.store.CurrentSpecifications(ctx, projectID, category)
	if err != nil {
		return agent.Fail(agent.CodeStoreError, "load specifications: %v", err)
	}

	text, err := p.runGeneration(ctx, project, category, asked, current)
	if err != nil {
		return agent.Fail(agent.CodeDispatchError, "question generation failed: %v", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return agent.Fail(agent.CodeDispatchError, "question generation produced empty text")
	}

	verdict := QualityVerdict{Score: 1}
	if p.screener != nil {
		verdict, err = p.screener.Screen(ctx, text)
		if err != nil {
			return agent.Fail(agent.CodeQualityCheckFailed, "question screening failed: %v", err)
		}
		if verdict.IsBlocking {
			return agent.Fail(agent.CodeQualityCheckFailed, "generated question rejected: %s", verdict.Reason)
		}
	}

	question := spec.Question{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		SessionID:    sessionID,
		Category:     category,
		Text:         text,
		Context:      stringField(payload, "context"),
		QualityScore: verdict.Score,
		Status:       spec.QuestionPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.CreateQuestion(ctx, question); err != nil {
		return agent.Fail(agent.CodeStoreError, "persist question: %v", err)
	}
	common.Logger().Info("question: generated", "project_id", projectID, "category", category, "quality", verdict.Score)
	return agent.OK(agent.Payload{
		"question": question,
		"category": string(category),
		"coverage": scheduler.Coverage(counts),
	})
}

// runGeneration executes the generation step as a single-node message graph
// over the completion provider.
func (p *QuestionProvider) runGeneration(ctx context.Context, project *spec.Project, category spec.Category, asked []spec.Question, current []spec.Specification) (string, error) {
	if p.provider == nil {
		return "", fmt.Errorf("no completion provider configured")
	}
	workflow := graph.NewMessageGraph()
	workflow.AddNode("generate", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		messages := make([]llm.Message, 0, len(state))
		for _, msg := range state {
			messages = append(messages, llm.Message{Role: messageRole(msg.Role), Content: flattenParts(msg.Parts)})
		}
		answer, err := p.provider.Chat(ctx, messages)
		if err != nil {
			return nil, err
		}
		return append(state, llms.TextParts(llms.ChatMessageTypeAI, answer)), nil
	})
	workflow.AddEdge("generate", graph.END)
	workflow.SetEntryPoint("generate")
	runnable, err := workflow.Compile()
	if err != nil {
		return "", fmt.Errorf("compile generation graph: %w", err)
	}
	state := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, questionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildQuestionPrompt(project, category, asked, current)),
	}
	out, err := runnable.Invoke(ctx, state)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("generation graph returned no messages")
	}
	return flattenParts(out[len(out)-1].Parts), nil
}

const questionSystemPrompt = "You help a user flesh out a software specification by asking one " +
	"probing question at a time. Ask exactly one open, neutral question targeting the " +
	"requested category. Respond with the question text only."

func buildQuestionPrompt(project *spec.Project, category spec.Category, asked []spec.Question, current []spec.Specification) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Project: %s\n", project.Name)
	if project.Description != "" {
		fmt.Fprintf(&builder, "Description: %s\n", project.Description)
	}
	fmt.Fprintf(&builder, "Target category: %s\n", category)
	if len(current) > 0 {
		builder.WriteString("Already specified in this category:\n")
		for _, record := range current {
			fmt.Fprintf(&builder, "- %s\n", record.Content)
		}
	}
	if len(asked) > 0 {
		builder.WriteString("Questions already asked this session (do not repeat):\n")
		for _, question := range asked {
			fmt.Fprintf(&builder, "- %s\n", question.Text)
		}
	}
	return builder.String()
}

func messageRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeSystem:
		return "system"
	case llms.ChatMessageTypeAI:
		return "assistant"
	default:
		return "user"
	}
}

func flattenParts(parts []llms.ContentPart) string {
	var builder strings.Builder
	for _, part := range parts {
		if text, ok := part.(llms.TextContent); ok {
			builder.WriteString(text.Text)
		}
	}
	return builder.String()
}

func (p *QuestionProvider) skip(ctx context.Context, payload agent.Payload) agent.Result {
	questionID := stringField(payload, "question_id")
	if questionID == "" {
		return agent.Fail(agent.CodeValidationError, "question_id is required")
	}
	if err := p.store.MarkQuestionSkipped(ctx, questionID); err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return agent.Fail(agent.CodeQuestionNotFound, "question %s not found", questionID)
		}
		return agent.Fail(agent.CodeStoreError, "skip question: %v", err)
	}
	return agent.OK(agent.Payload{"question_id": questionID, "status": spec.QuestionSkipped})
}
