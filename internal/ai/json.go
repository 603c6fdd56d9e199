package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSONResponse unmarshals an LLM reply into out, tolerating markdown
// code fences around the JSON body.
func decodeJSONResponse(text string, out interface{}) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty model response")
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}
	return nil
}
