// Package agent runs the per-turn pipeline: persist the user turn, gather
// knowledge and tool contributions concurrently, assemble the prompt, call
// the model, persist the reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/knowledge"
	"github.com/kadirpekel/parley/pkg/llms"
	"github.com/kadirpekel/parley/pkg/memory"
	"github.com/kadirpekel/parley/pkg/observability"
	"github.com/kadirpekel/parley/pkg/prompt"
	"github.com/kadirpekel/parley/pkg/tools"
)

// ErrNotConfigured reports a missing hard dependency. Callers treat it as a
// service-level failure rather than a bad request.
var ErrNotConfigured = errors.New("agent runtime not configured")

// FallbackReply is returned when the model produces no usable text.
const FallbackReply = "I wasn't able to come up with a response. Please try again."

// Orchestrator coordinates one chat turn end to end. Knowledge retrieval and
// tool execution degrade to empty contributions on failure; only persistence
// of the user turn and the model call itself are fatal.
type Orchestrator struct {
	llm       llms.Provider
	retriever *knowledge.Retriever
	loops     *tools.LoopController
	api       *tools.APIExecutor
	scorer    tools.Scorer
	store     memory.ConversationStore
	metrics   *observability.Metrics

	historyLimit int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetriever enables knowledge retrieval for agents that opt in.
func WithRetriever(r *knowledge.Retriever) Option {
	return func(o *Orchestrator) { o.retriever = r }
}

// WithLoopController enables MCP tool servers.
func WithLoopController(l *tools.LoopController) Option {
	return func(o *Orchestrator) { o.loops = l }
}

// WithAPIExecutor enables configured REST/GraphQL tools.
func WithAPIExecutor(e *tools.APIExecutor) Option {
	return func(o *Orchestrator) { o.api = e }
}

// WithScorer overrides the relevance scorer.
func WithScorer(s tools.Scorer) Option {
	return func(o *Orchestrator) { o.scorer = s }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithHistoryLimit bounds how many stored turns feed back into the model.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) { o.historyLimit = n }
}

// NewOrchestrator builds an orchestrator over the given model provider and
// conversation store. Both are required.
func NewOrchestrator(llm llms.Provider, store memory.ConversationStore, opts ...Option) (*Orchestrator, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: model provider is required", ErrNotConfigured)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: conversation store is required", ErrNotConfigured)
	}

	o := &Orchestrator{
		llm:          llm,
		store:        store,
		scorer:       tools.NewHeuristicScorer(),
		historyLimit: 20,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// HandleTurn processes one user message for the given agent and returns the
// model's reply. The user turn is persisted before the model is called; the
// reply is persisted after, and a persistence failure there is logged but
// does not discard the reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, agent *config.AgentConfig, userID, message string) (string, error) {
	if agent == nil {
		return "", fmt.Errorf("%w: nil agent", ErrNotConfigured)
	}

	start := time.Now()
	reply, err := o.runTurn(ctx, agent, userID, message)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.TurnsTotal.WithLabelValues(agent.Name, status).Inc()
		o.metrics.TurnDuration.WithLabelValues(agent.Name).Observe(time.Since(start).Seconds())
	}
	return reply, err
}

func (o *Orchestrator) runTurn(ctx context.Context, agent *config.AgentConfig, userID, message string) (string, error) {
	userTurn := memory.Turn{
		AgentID: agent.Name,
		UserID:  userID,
		Role:    memory.RoleUser,
		Content: message,
	}
	if err := o.store.Append(ctx, userTurn); err != nil {
		return "", fmt.Errorf("failed to persist user turn: %w", err)
	}

	snippets, results := o.gather(ctx, agent, message)

	personality := agent.Personality
	if personality == "" {
		personality = prompt.DefaultPersonality
	}
	system := prompt.Assemble(personality, snippets, results)

	history, err := o.store.Recent(ctx, agent.Name, userID, o.historyLimit)
	if err != nil {
		slog.Warn("Failed to load conversation history", "agent", agent.Name, "error", err)
		history = []memory.Turn{userTurn}
	}

	turns := make([]llms.Turn, 0, len(history))
	for _, t := range history {
		role := llms.RoleUser
		if t.Role == memory.RoleModel {
			role = llms.RoleModel
		}
		turns = append(turns, llms.Turn{Role: role, Content: t.Content})
	}

	reply, err := o.llm.Generate(ctx, turns, llms.GenerateOptions{
		SystemInstruction: system,
		Model:             agent.Model,
		WebSearch:         agent.WebSearch,
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if reply == "" {
		reply = FallbackReply
	}

	modelTurn := memory.Turn{
		AgentID: agent.Name,
		UserID:  userID,
		Role:    memory.RoleModel,
		Content: reply,
	}
	if err := o.store.Append(ctx, modelTurn); err != nil {
		slog.Warn("Failed to persist model turn", "agent", agent.Name, "error", err)
	}

	return reply, nil
}

// gather collects knowledge snippets and tool contributions concurrently.
// Every branch degrades to nothing on failure; gather never fails the turn.
func (o *Orchestrator) gather(ctx context.Context, agent *config.AgentConfig, message string) (snippets, results []string) {
	g, gctx := errgroup.WithContext(ctx)

	var knowledgeSnippets []string
	if agent.Knowledge && o.retriever != nil {
		g.Go(func() error {
			knowledgeSnippets = o.retriever.Retrieve(gctx, agent.Name, message, knowledge.DefaultMaxResults)
			if len(knowledgeSnippets) == 0 && len(agent.KnowledgeSources) > 0 {
				knowledgeSnippets = o.retriever.FetchUnindexed(gctx, agent.KnowledgeSources)
			}
			return nil
		})
	}

	serverResults := make([]string, len(agent.ToolServers))
	if agent.MCPTools && o.loops != nil {
		for i, server := range agent.ToolServers {
			if !o.scorer.Relevant(server.Name, "", server.Instructions, tools.KindServer, message) {
				continue
			}
			g.Go(func() error {
				serverResults[i] = o.loops.Run(gctx, server, message)
				o.countToolCall(tools.KindServer, serverResults[i])
				return nil
			})
		}
	}

	apiResults := make([]string, len(agent.APIToolConfigs))
	if agent.APITools && o.api != nil {
		for i, cfg := range agent.APIToolConfigs {
			kind := toolKindFor(cfg.Kind)
			if !o.scorer.Relevant(cfg.Name, "", cfg.Instructions, kind, message) {
				continue
			}
			g.Go(func() error {
				apiResults[i] = o.api.Invoke(gctx, cfg, message)
				o.countToolCall(kind, apiResults[i])
				return nil
			})
		}
	}

	// Branches return nil errors; Wait only synchronizes.
	_ = g.Wait()

	for _, r := range serverResults {
		if r != "" {
			results = append(results, r)
		}
	}
	for _, r := range apiResults {
		if r != "" {
			results = append(results, r)
		}
	}
	return knowledgeSnippets, results
}

func (o *Orchestrator) countToolCall(kind tools.ToolKind, result string) {
	if o.metrics == nil {
		return
	}
	outcome := "ok"
	if result == "" {
		outcome = "empty"
	}
	o.metrics.ToolCallsTotal.WithLabelValues(string(kind), outcome).Inc()
}

func toolKindFor(kind config.APIToolKind) tools.ToolKind {
	switch kind {
	case config.APIToolGraphQL:
		return tools.KindGraphQL
	case config.APIToolOpenAPI:
		return tools.KindOpenAPI
	default:
		return tools.KindREST
	}
}
