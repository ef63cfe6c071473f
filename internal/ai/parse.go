package ai

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// StripFences removes markdown code-fence wrapping the models sometimes
// add despite instructions.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseScores decodes a scoring response into id→score. Non-integer
// values are logged and dropped; a response that is not a JSON object at
// all returns an error so the caller can decide to discard it.
func ParseScores(raw string) (map[string]int, error) {
	cleaned := StripFences(raw)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	var loose map[string]interface{}
	if err := dec.Decode(&loose); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}

	scores := make(map[string]int, len(loose))
	for id, v := range loose {
		switch val := v.(type) {
		case json.Number:
			if n, err := val.Int64(); err == nil {
				scores[id] = int(n)
				continue
			}
		case string:
			var n json.Number = json.Number(val)
			if i, err := n.Int64(); err == nil {
				scores[id] = int(i)
				continue
			}
		}
		log.Printf("AI: invalid score value for item %s: %v", id, v)
	}
	return scores, nil
}
