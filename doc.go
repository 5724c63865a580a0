// Package parley serves configurable conversational agents over HTTP.
//
// Agents are defined in YAML: a personality, an optional per-agent model,
// and a set of capabilities (knowledge retrieval, MCP tool servers,
// REST/GraphQL tools, web-search grounding). Each chat turn runs a fixed
// pipeline: persist the user message, gather knowledge and tool context
// concurrently, assemble the system prompt, call the model, persist the
// reply.
//
// # Quick Start
//
// Install:
//
//	go install github.com/kadirpekel/parley/cmd/parley@latest
//
// Create a configuration:
//
//	llm:
//	  api_key: "${GEMINI_API_KEY}"
//
//	agents:
//	  helper:
//	    personality: "You are a helpful assistant."
//	    knowledge: true
//	    tool_servers:
//	      - name: docs
//	        url: https://mcp.context7.com/mcp
//
// Start the server:
//
//	parley serve --config config.yaml
//
// Then chat:
//
//	curl -X POST localhost:8080/v1/agents/helper/chat \
//	  -d '{"user_id": "me", "message": "hello"}'
//
// # Packages
//
//	import (
//	    "github.com/kadirpekel/parley/pkg/agent"
//	    "github.com/kadirpekel/parley/pkg/config"
//	    "github.com/kadirpekel/parley/pkg/tools"
//	)
package parley
