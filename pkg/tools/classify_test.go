package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier_Final(t *testing.T) {
	classifier := DefaultClassifier{}

	tests := []struct {
		name     string
		toolName string
		result   string
		want     bool
	}{
		{"plain content", "get-docs", "Here is how to configure retries.", true},
		{"resolver name", "resolve-library-id", "whatever came back", false},
		{"search name", "search_issues", "3 matching issues", false},
		{"list name", "list_repos", "repo-a, repo-b", false},
		{"identifier result", "get-docs", "Library ID: /vercel/next.js. Use this ID in the next call.", false},
		{"libraryid variant", "fetch", `{"libraryId": "abc"}`, false},
		{"case insensitive name", "Resolve-Library-Id", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Final(tt.toolName, tt.result))
		})
	}
}
