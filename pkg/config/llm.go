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

import "fmt"

// LLMConfig configures the language model provider.
type LLMConfig struct {
	// Provider name (currently: gemini).
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,enum=gemini,default=gemini"`

	Model  string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,default=gemini-2.0-flash"`
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key"`
	Host   string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,default=https://generativelanguage.googleapis.com"`

	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,default=2048"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature"`

	// Timeout in seconds for a single model call.
	Timeout    int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,default=60"`
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,default=3"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.Host == "" {
		c.Host = "https://generativelanguage.googleapis.com"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *LLMConfig) Validate() error {
	if c.Provider != "gemini" {
		return fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
	return nil
}

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	Type      string `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"title=Type,enum=ollama,default=ollama"`
	Model     string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,default=nomic-embed-text"`
	Host      string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,default=http://localhost:11434"`
	Dimension int    `yaml:"dimension,omitempty" json:"dimension,omitempty" jsonschema:"title=Dimension,default=768"`

	// Timeout in seconds per embedding request.
	Timeout    int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,default=30"`
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,default=3"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,enum=chromem,default=chromem"`

	// PersistPath enables file persistence when set; empty keeps vectors
	// in memory only.
	PersistPath string `yaml:"persist_path,omitempty" json:"persist_path,omitempty" jsonschema:"title=Persist Path"`
	Compress    bool   `yaml:"compress,omitempty" json:"compress,omitempty" jsonschema:"title=Compress"`
}

func (c *VectorConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "chromem"
	}
}

// MemoryConfig configures conversation persistence.
type MemoryConfig struct {
	// Backend is "memory" or "sql".
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,enum=memory,enum=sql,default=memory"`

	// Driver (sqlite, postgres, mysql) and DSN for the sql backend.
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty" jsonschema:"title=Driver,enum=sqlite,enum=postgres,enum=mysql"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty" jsonschema:"title=DSN"`

	// HistoryLimit is the number of prior turns fed back as context.
	HistoryLimit int `yaml:"history_limit,omitempty" json:"history_limit,omitempty" jsonschema:"title=History Limit,default=20"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 20
	}
}

func (c *MemoryConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "sql":
		if c.Driver == "" || c.DSN == "" {
			return fmt.Errorf("sql memory backend requires driver and dsn")
		}
		switch c.Driver {
		case "sqlite", "postgres", "mysql":
			return nil
		default:
			return fmt.Errorf("unsupported memory driver %q (supported: sqlite, postgres, mysql)", c.Driver)
		}
	default:
		return fmt.Errorf("unsupported memory backend %q", c.Backend)
	}
}
