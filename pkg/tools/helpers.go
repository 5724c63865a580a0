package tools

import "strings"

// ValidHeaderName rejects header names that would corrupt the outgoing
// request: empty names and names containing a colon or whitespace.
func ValidHeaderName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, ": \t")
}

// BuildServerHeaders merges a tool's static headers with its bearer
// credential. Invalid header names are dropped; the bearer token only
// applies when no Authorization header was configured explicitly.
func BuildServerHeaders(static map[string]string, bearerToken string) map[string]string {
	headers := make(map[string]string, len(static)+1)
	for name, value := range static {
		if ValidHeaderName(name) {
			headers[name] = value
		}
	}

	if bearerToken != "" {
		if _, exists := headers["Authorization"]; !exists {
			headers["Authorization"] = "Bearer " + bearerToken
		}
	}

	return headers
}

// StripCodeFences removes Markdown code fence framing from model output.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line, including any language tag
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
