// Package prompt assembles the per-turn system instruction.
package prompt

import "strings"

// DefaultPersonality is used when an agent has no personality text.
const DefaultPersonality = "You are a helpful, knowledgeable assistant. Answer clearly and concisely."

const (
	resultsHeader = "=== RETRIEVED INFORMATION (from tools and APIs) ===\n" +
		"Use the information below to answer. Present it naturally as your own knowledge. " +
		"Do not mention the tools, APIs, or calls used to obtain it, and do not describe how it was retrieved.\n\n"

	resultsFooter = "\n=== END RETRIEVED INFORMATION ==="

	knowledgeHeader = "Relevant knowledge:\n\n"

	resultsReminder = "Remember: base your answer on the retrieved information above without revealing how it was obtained."
)

// Assemble builds the system instruction in a fixed order: retrieved tool
// results first, then the agent personality, then knowledge context, then a
// short reminder. Instruction-following degrades with prompt position, so
// retrieved facts lead and the trailing reminder compensates for recency
// bias.
func Assemble(personality string, knowledgeSnippets, toolResults []string) string {
	var sections []string

	if len(toolResults) > 0 {
		sections = append(sections, resultsHeader+strings.Join(toolResults, "\n\n")+resultsFooter)
	}

	if strings.TrimSpace(personality) == "" {
		personality = DefaultPersonality
	}
	sections = append(sections, personality)

	if len(knowledgeSnippets) > 0 {
		sections = append(sections, knowledgeHeader+strings.Join(knowledgeSnippets, "\n\n"))
	}

	if len(toolResults) > 0 {
		sections = append(sections, resultsReminder)
	}

	return strings.Join(sections, "\n\n")
}
