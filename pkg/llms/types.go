package llms

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one conversation turn as fed to the model, oldest first.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions configures a single model call.
type GenerateOptions struct {
	// SystemInstruction is the assembled system prompt.
	SystemInstruction string

	// Model overrides the provider's configured model when set.
	Model string

	MaxOutputTokens int
	Temperature     float64

	// WebSearch enables search-grounded generation when the provider
	// supports it.
	WebSearch bool
}

// Provider is a language model backend.
type Provider interface {
	// Generate returns the model's text response. An empty string with a
	// nil error means the model produced no text; callers decide the
	// fallback.
	Generate(ctx context.Context, turns []Turn, opts GenerateOptions) (string, error)

	GetModelName() string
}
