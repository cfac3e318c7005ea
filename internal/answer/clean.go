package answer

import (
	"encoding/json"
	"regexp"
	"strings"

	"plantprofit/internal/units"
)

var (
	codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	leftovers = regexp.MustCompile("[{}\\[\\]\"'`]+")
)

// TryParseJSON parses text as a JSON object, also when it is wrapped in a
// Markdown code fence.
func TryParseJSON(text string) (map[string]any, bool) {
	candidate := strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Clean turns raw model output into display text: it unwraps a JSON
// "answer" field, adds units to yield and planting figures and strips
// leftover JSON punctuation. Text that matches none of this passes through
// trimmed.
func Clean(raw string) string {
	text := raw
	if obj, ok := TryParseJSON(raw); ok {
		if a, ok := obj["answer"].(string); ok && strings.TrimSpace(a) != "" {
			text = a
		}
	}
	return StripPunctuation(units.AnnotateAnswer(text))
}

// StripPunctuation removes braces, brackets, quotes and backticks, turns
// literal \n sequences into spaces and drops remaining backslashes.
func StripPunctuation(s string) string {
	s = leftovers.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\n`, " ")
	s = strings.ReplaceAll(s, `\`, "")
	return strings.TrimSpace(s)
}
