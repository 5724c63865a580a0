package tools

// ToolDescriptor is the discovered shape of one callable tool. Descriptors
// are immutable once fetched and owned by the schema cache.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

// ToolParameter describes one named parameter of a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolKind identifies how a configured tool is invoked, for relevance
// scoring.
type ToolKind string

const (
	// KindServer is an MCP tool server.
	KindServer ToolKind = "server"

	// KindREST is a plain HTTP tool.
	KindREST ToolKind = "rest"

	// KindGraphQL is a GraphQL HTTP tool.
	KindGraphQL ToolKind = "graphql"

	// KindOpenAPI is an OpenAPI-described HTTP tool.
	KindOpenAPI ToolKind = "openapi"
)

// CallOutcome is the classified result of one tool invocation. Final is
// recomputed per call by a ResultClassifier, never persisted.
type CallOutcome struct {
	Tool  string
	Text  string
	Final bool
}
