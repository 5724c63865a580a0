package tools

import "strings"

// ResultClassifier decides whether a tool result is a final answer or an
// intermediate step (a resolved identifier the next call needs). Many tool
// protocols split "resolve an identifier" from "use the identifier", so a
// single-shot call is insufficient.
//
// This is an inherently heuristic and possibly agent-specific judgment; the
// default markers below are not exhaustive. Swap in a different policy
// rather than growing this one per protocol.
type ResultClassifier interface {
	Final(toolName, result string) bool
}

// DefaultClassifier flags resolver-style tool names and identifier-lookup
// result text as intermediate.
type DefaultClassifier struct{}

// intermediateNameParts mark resolver-style tools by name.
var intermediateNameParts = []string{
	"resolve",
	"search",
	"list",
}

// intermediateResultMarkers mark results that return an identifier rather
// than content.
var intermediateResultMarkers = []string{
	"library id",
	"libraryid",
	"use this id",
	"resolved id",
}

func (DefaultClassifier) Final(toolName, result string) bool {
	name := strings.ToLower(toolName)
	for _, part := range intermediateNameParts {
		if strings.Contains(name, part) {
			return false
		}
	}

	text := strings.ToLower(result)
	for _, marker := range intermediateResultMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}

	return true
}

var _ ResultClassifier = DefaultClassifier{}
