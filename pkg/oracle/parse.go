package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnmarshalResponse extracts the first JSON object or array from a model
// response and unmarshals it into out. Models frequently wrap JSON in
// markdown fences or lead with prose, so the raw text is scanned rather than
// decoded directly.
func UnmarshalResponse(raw string, out any) error {
	cleaned := stripFences(raw)

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON payload in response")
	}

	open := cleaned[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(cleaned, close)
	if end < start {
		return fmt.Errorf("unterminated JSON payload in response")
	}

	if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err != nil {
		return fmt.Errorf("decode JSON payload: %w", err)
	}
	return nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
