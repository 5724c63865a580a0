package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHeaderName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "X-Api-Key", true},
		{"authorization", "Authorization", true},
		{"empty", "", false},
		{"colon", "X-Key:", false},
		{"space", "X Key", false},
		{"tab", "X\tKey", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidHeaderName(tt.input))
		})
	}
}

func TestBuildServerHeaders(t *testing.T) {
	t.Run("drops invalid names", func(t *testing.T) {
		headers := BuildServerHeaders(map[string]string{
			"X-Valid":   "yes",
			"X Invalid": "no",
			"":          "no",
		}, "")
		assert.Equal(t, map[string]string{"X-Valid": "yes"}, headers)
	})

	t.Run("bearer token becomes Authorization", func(t *testing.T) {
		headers := BuildServerHeaders(nil, "tok123")
		assert.Equal(t, "Bearer tok123", headers["Authorization"])
	})

	t.Run("explicit Authorization wins over bearer token", func(t *testing.T) {
		headers := BuildServerHeaders(map[string]string{
			"Authorization": "Basic abc",
		}, "tok123")
		assert.Equal(t, "Basic abc", headers["Authorization"])
	})

	t.Run("no bearer leaves Authorization unset", func(t *testing.T) {
		headers := BuildServerHeaders(map[string]string{"X-Key": "v"}, "")
		_, ok := headers["Authorization"]
		assert.False(t, ok)
	})
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"plain fences", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("", 5))
}
