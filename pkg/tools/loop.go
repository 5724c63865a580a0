package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/llms"
)

const (
	// MaxLoopIterations bounds tool invocations per server per turn. The
	// model could otherwise chase resolver calls indefinitely.
	MaxLoopIterations = 3

	// IntermediateResultLimit truncates results carried into the next
	// selection round.
	IntermediateResultLimit = 5000

	// FinalResultLimit truncates the server's contribution to the prompt.
	FinalResultLimit = 10000
)

// loopState enumerates the terminal states of one iteration.
type loopState int

const (
	stateContinue loopState = iota
	stateFinal
	stateNoTool
	stateError
)

// Invoker executes one discovered tool against its server.
type Invoker interface {
	Invoke(ctx context.Context, endpoint string, headers map[string]string, toolName string, args map[string]any) string
}

// toolSelection is the strict JSON shape the model must answer with when
// choosing the next tool. A null or absent toolName declines.
type toolSelection struct {
	ToolName *string        `json:"toolName"`
	Args     map[string]any `json:"args"`
}

// LoopController runs the model-driven tool-call loop for one MCP server:
// discover, ask the model which tool to call next given what was already
// learned, invoke, classify, repeat. Bounded to MaxLoopIterations.
type LoopController struct {
	cache      *SchemaCache
	invoker    Invoker
	llm        llms.Provider
	classifier ResultClassifier
}

// NewLoopController wires a controller over the shared schema cache.
func NewLoopController(cache *SchemaCache, invoker Invoker, llm llms.Provider, classifier ResultClassifier) *LoopController {
	if classifier == nil {
		classifier = DefaultClassifier{}
	}
	return &LoopController{
		cache:      cache,
		invoker:    invoker,
		llm:        llm,
		classifier: classifier,
	}
}

// Run executes the loop for one server and returns its contribution to the
// prompt, or "" when the server had nothing to offer. All failures degrade
// to an empty contribution.
func (l *LoopController) Run(ctx context.Context, server config.ToolServerConfig, message string) string {
	headers := BuildServerHeaders(server.Headers, server.BearerToken)

	descriptors := l.cache.GetOrRefresh(ctx, server.URL, headers)
	if len(descriptors) == 0 {
		// Degraded substitute: a one-shot web-search-grounded description
		// of the server is better than nothing.
		return l.describeServer(ctx, server)
	}

	var accumulated strings.Builder
	var contribution string

	for iteration := 0; iteration < MaxLoopIterations; iteration++ {
		selection, state := l.selectTool(ctx, server, descriptors, message, accumulated.String())
		if state == stateNoTool {
			// The model declining is a normal terminal state.
			break
		}

		result := l.invoker.Invoke(ctx, server.URL, headers, *selection.ToolName, selection.Args)
		if result == "" {
			break
		}

		final := l.classifier.Final(*selection.ToolName, result)
		if !final && iteration < MaxLoopIterations-1 {
			accumulated.WriteString(fmt.Sprintf("Result from %s:\n%s\n\n",
				*selection.ToolName, truncate(result, IntermediateResultLimit)))
			continue
		}

		contribution = fmt.Sprintf("Result from %s (%s):\n%s",
			*selection.ToolName, server.Name, truncate(result, FinalResultLimit))
		break
	}

	return contribution
}

// selectTool asks the model to pick at most one tool given the descriptors
// and everything learned so far this turn.
func (l *LoopController) selectTool(ctx context.Context, server config.ToolServerConfig, descriptors []ToolDescriptor, message, accumulated string) (*toolSelection, loopState) {
	var prompt strings.Builder

	prompt.WriteString("You decide whether to call a tool to help answer the user's message.\n\n")
	prompt.WriteString("Available tools:\n")
	for _, d := range descriptors {
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
		for _, p := range d.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			prompt.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, required, p.Description))
		}
	}

	if server.Instructions != "" {
		prompt.WriteString("\nServer instructions: " + server.Instructions + "\n")
	}

	if accumulated != "" {
		prompt.WriteString("\nResults already gathered this turn:\n" + accumulated + "\n")
	}

	prompt.WriteString("\nUser message: " + message + "\n\n")
	prompt.WriteString(`Respond with ONLY a JSON object, no other text: {"toolName": "<name>", "args": {...}}. ` +
		`If no tool call is needed, respond with {"toolName": null, "args": {}}.`)

	response, err := l.llm.Generate(ctx, []llms.Turn{{Role: llms.RoleUser, Content: prompt.String()}},
		llms.GenerateOptions{MaxOutputTokens: 512})
	if err != nil {
		slog.Debug("Tool selection call failed",
			"server", server.Name,
			"error", err)
		return nil, stateNoTool
	}

	var selection toolSelection
	if err := json.Unmarshal([]byte(StripCodeFences(response)), &selection); err != nil {
		// An unparsable selection is treated as the model declining.
		slog.Debug("Unparsable tool selection",
			"server", server.Name,
			"response", truncate(response, 200))
		return nil, stateNoTool
	}

	if selection.ToolName == nil || *selection.ToolName == "" {
		return nil, stateNoTool
	}

	if selection.Args == nil {
		selection.Args = map[string]any{}
	}

	return &selection, stateContinue
}

// describeServer produces a short, web-search-grounded description of a
// server that advertised no tools. Failures yield nothing.
func (l *LoopController) describeServer(ctx context.Context, server config.ToolServerConfig) string {
	prompt := fmt.Sprintf("Briefly describe what the service %q provides and what it can be used for.", server.Name)
	if server.Instructions != "" {
		prompt += " Known context: " + server.Instructions
	}

	description, err := l.llm.Generate(ctx, []llms.Turn{{Role: llms.RoleUser, Content: prompt}},
		llms.GenerateOptions{MaxOutputTokens: 512, WebSearch: true})
	if err != nil || strings.TrimSpace(description) == "" {
		return ""
	}

	return fmt.Sprintf("About %s:\n%s", server.Name, strings.TrimSpace(description))
}
