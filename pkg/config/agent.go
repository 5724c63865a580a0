// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Visibility controls who can address an agent.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// APIToolKind is the closed set of API tool protocols. The kind is resolved
// once at config load; downstream code switches on it instead of re-inspecting
// free-form strings per call.
type APIToolKind string

const (
	// APIToolREST is a plain HTTP endpoint with an unknown body shape.
	APIToolREST APIToolKind = "rest"

	// APIToolGraphQL expects a GraphQL query synthesized from the tool's schema.
	APIToolGraphQL APIToolKind = "graphql"

	// APIToolOpenAPI expects a JSON body synthesized from the tool's schema.
	APIToolOpenAPI APIToolKind = "openapi"
)

// normalizeAPIToolKind maps legacy free-text protocol names onto the closed set.
func normalizeAPIToolKind(raw string) (APIToolKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "rest", "http", "api":
		return APIToolREST, nil
	case "graphql", "gql":
		return APIToolGraphQL, nil
	case "openapi", "swagger":
		return APIToolOpenAPI, nil
	default:
		return "", fmt.Errorf("unknown api tool kind %q (supported: rest, graphql, openapi)", raw)
	}
}

// AgentConfig describes one conversational agent.
type AgentConfig struct {
	// Name is the agent's display name (defaults to its map key).
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name"`

	// Emoji shown alongside the agent name.
	Emoji string `yaml:"emoji,omitempty" json:"emoji,omitempty" jsonschema:"title=Emoji"`

	// Personality is the agent's system text.
	Personality string `yaml:"personality,omitempty" json:"personality,omitempty" jsonschema:"title=Personality,description=System text defining the agent's behavior"`

	// Model overrides the global LLM model for this agent.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model"`

	// Visibility controls agent exposure (public, private).
	Visibility Visibility `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"title=Visibility,enum=public,enum=private,default=public"`

	// Owner identifies the user owning a private agent.
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty" jsonschema:"title=Owner"`

	// Feature toggles.
	Knowledge bool `yaml:"knowledge,omitempty" json:"knowledge,omitempty" jsonschema:"title=Knowledge Base,description=Enable knowledge retrieval"`
	MCPTools  bool `yaml:"mcp_tools,omitempty" json:"mcp_tools,omitempty" jsonschema:"title=MCP Tools,description=Enable MCP tool servers"`
	APITools  bool `yaml:"api_tools,omitempty" json:"api_tools,omitempty" jsonschema:"title=API Tools,description=Enable REST/GraphQL tools"`
	WebSearch bool `yaml:"web_search,omitempty" json:"web_search,omitempty" jsonschema:"title=Web Search,description=Enable web-search grounding"`

	// KnowledgeSources lists URLs that may not be indexed yet; they are
	// fetched live when vector search comes back empty.
	KnowledgeSources []string `yaml:"knowledge_sources,omitempty" json:"knowledge_sources,omitempty" jsonschema:"title=Knowledge Sources"`

	// ToolServers lists MCP tool servers available to this agent.
	ToolServers []ToolServerConfig `yaml:"tool_servers,omitempty" json:"tool_servers,omitempty" jsonschema:"title=Tool Servers"`

	// APIToolConfigs lists REST/GraphQL tools available to this agent.
	APIToolConfigs []APIToolConfig `yaml:"api_tool_configs,omitempty" json:"api_tool_configs,omitempty" jsonschema:"title=API Tool Configs"`
}

func (a *AgentConfig) SetDefaults(name string) {
	if a.Name == "" {
		a.Name = name
	}
	if a.Visibility == "" {
		a.Visibility = VisibilityPublic
	}
}

func (a *AgentConfig) Validate() error {
	switch a.Visibility {
	case VisibilityPublic, VisibilityPrivate:
	default:
		return fmt.Errorf("invalid visibility %q", a.Visibility)
	}
	for i := range a.ToolServers {
		if err := a.ToolServers[i].Validate(); err != nil {
			return fmt.Errorf("tool server %d: %w", i, err)
		}
	}
	for i := range a.APIToolConfigs {
		if err := a.APIToolConfigs[i].Validate(); err != nil {
			return fmt.Errorf("api tool %d: %w", i, err)
		}
	}
	return nil
}

// ToolServerConfig describes one MCP tool server.
type ToolServerConfig struct {
	Name string `yaml:"name" json:"name" jsonschema:"title=Name"`
	URL  string `yaml:"url" json:"url" jsonschema:"title=URL,description=MCP server endpoint"`

	// Instructions is free text used both for relevance matching and as
	// model context.
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty" jsonschema:"title=Instructions"`

	// Headers are static headers sent on every request to this server.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers"`

	// BearerToken is attached as an Authorization header when set.
	BearerToken string `yaml:"bearer_token,omitempty" json:"bearer_token,omitempty" jsonschema:"title=Bearer Token"`
}

func (c *ToolServerConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("tool server URL is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid tool server URL: %w", err)
	}
	return nil
}

// APIToolConfig describes one user-configured REST/GraphQL tool.
type APIToolConfig struct {
	Name   string `yaml:"name" json:"name" jsonschema:"title=Name"`
	URL    string `yaml:"url" json:"url" jsonschema:"title=URL"`
	Method string `yaml:"method,omitempty" json:"method,omitempty" jsonschema:"title=Method,default=POST"`

	// Instructions is free text used both for relevance matching and to
	// guide generated request bodies.
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty" jsonschema:"title=Instructions"`

	// Kind is the declared protocol (rest, graphql, openapi).
	Kind APIToolKind `yaml:"kind,omitempty" json:"kind,omitempty" jsonschema:"title=Kind,enum=rest,enum=graphql,enum=openapi,default=rest"`

	// Schema is optional schema text (GraphQL SDL or OpenAPI fragment)
	// used to guide generated requests.
	Schema string `yaml:"schema,omitempty" json:"schema,omitempty" jsonschema:"title=Schema"`

	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers"`
	BearerToken string            `yaml:"bearer_token,omitempty" json:"bearer_token,omitempty" jsonschema:"title=Bearer Token"`
}

// UnmarshalYAML normalizes the declared kind while decoding so the rest of
// the codebase only ever sees the closed set.
func (c *APIToolConfig) UnmarshalYAML(unmarshal func(any) error) error {
	type plain APIToolConfig
	var raw plain
	if err := unmarshal(&raw); err != nil {
		return err
	}

	kind, err := normalizeAPIToolKind(string(raw.Kind))
	if err != nil {
		return err
	}
	raw.Kind = kind

	*c = APIToolConfig(raw)
	return nil
}

func (c *APIToolConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("api tool URL is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid api tool URL: %w", err)
	}
	if c.Method == "" {
		c.Method = "POST"
	}
	switch c.Kind {
	case APIToolREST, APIToolGraphQL, APIToolOpenAPI:
	case "":
		c.Kind = APIToolREST
	default:
		return fmt.Errorf("unknown api tool kind %q", c.Kind)
	}
	return nil
}
