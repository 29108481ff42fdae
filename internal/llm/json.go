package llm

import "strings"

// ExtractJSON pulls a JSON object out of a model response. Models frequently
// wrap JSON in markdown fences or surround it with prose, so this trims
// fences and cuts to the outermost brace pair. Returns "" when no object is
// present.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
