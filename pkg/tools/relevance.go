package tools

import "strings"

// Scorer decides whether a configured tool is worth invoking for a message.
// Both the MCP server path and the REST/GraphQL tool path go through the
// same scorer so the heuristics cannot drift apart.
type Scorer interface {
	Relevant(name, description, instructions string, kind ToolKind, message string) bool
}

// HeuristicScorer is a pure keyword matcher, deliberately over-inclusive: a
// false positive costs one wasted tool call, a false negative silently
// starves the model of useful context. Do not tighten these rules without
// measuring how often tools stop being consulted.
type HeuristicScorer struct{}

// alwaysMarkers force a tool to be consulted on every message.
var alwaysMarkers = []string{
	"always",
	"every question",
	"all questions",
}

// intentPhrases signal the user is asking for documentation or data.
var intentPhrases = []string{
	"docs",
	"documentation",
	"how to",
	"how do i",
	"what is",
	"what are",
	"search",
	"find",
	"show",
	"get",
	"explain",
	"look up",
	"tell me",
}

// docMarkers signal the tool itself is documentation-related.
var docMarkers = []string{
	"doc",
	"search",
	"library",
}

// apiSignals are explicit requests to use a configured API tool.
var apiSignals = []string{
	"use the api",
	"use the tool",
	"call the api",
	"call the tool",
	"query the api",
}

// dataVerbs widen the GraphQL heuristic to data-retrieval phrasing.
var dataVerbs = []string{
	"get",
	"fetch",
	"list",
	"show",
	"recent",
	"latest",
}

func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

func (s *HeuristicScorer) Relevant(name, description, instructions string, kind ToolKind, message string) bool {
	msg := strings.ToLower(message)
	instr := strings.ToLower(instructions)
	toolText := strings.ToLower(name + " " + description + " " + instructions)

	// Explicit always-call marker in the tool's instructions
	if containsAny(instr, alwaysMarkers) {
		return true
	}

	// The tool's own name appears verbatim in the message
	if name != "" && strings.Contains(msg, strings.ToLower(name)) {
		return true
	}

	// Any token longer than 3 chars shared between tool text and message
	for _, token := range strings.Fields(toolText) {
		if len(token) > 3 && strings.Contains(msg, token) {
			return true
		}
	}

	// Documentation/query intent against a documentation-looking tool
	if containsAny(msg, intentPhrases) && containsAny(toolText, docMarkers) {
		return true
	}

	// HTTP tools get two widening signals: an explicit ask to use the
	// api/tool, and for GraphQL tools any data-retrieval phrasing.
	if kind != KindServer {
		if containsAny(msg, apiSignals) {
			return true
		}
		if kind == KindGraphQL && containsAny(msg, dataVerbs) {
			return true
		}
	}

	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

var _ Scorer = (*HeuristicScorer)(nil)
