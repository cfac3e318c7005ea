// Package units injects agronomic units into catalog records and generated answers.
package units

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

const (
	YieldUnit = "tons/acre"
	AreaUnit  = "acres"
)

var (
	yieldKey      = regexp.MustCompile(`(?i)yield`)
	nextSeasonKey = regexp.MustCompile(`(?i)next season`)
	number        = regexp.MustCompile(`\d+(?:\.\d+)?`)

	yieldLabel      = regexp.MustCompile(`(?i)(yield:?\s*)(\d+(?:\.\d+)?)`)
	nextSeasonLabel = regexp.MustCompile(`(?i)(plant next season:?\s*)([\w\s]*?)(\d+(?:\.\d+)?)`)
)

// AnnotateRecord rewrites a JSON object record before embedding: numeric
// fields named like "yield" become "<n> tons/acre" and numbers inside string
// fields named like "next season" get an "acres" suffix. Anything that is not
// a JSON object is returned unchanged.
func AnnotateRecord(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return text
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || dec.More() {
		return text
	}
	changed := false
	for k, v := range obj {
		switch val := v.(type) {
		case json.Number:
			if yieldKey.MatchString(k) {
				obj[k] = val.String() + " " + YieldUnit
				changed = true
			}
		case string:
			if nextSeasonKey.MatchString(k) {
				obj[k] = number.ReplaceAllString(val, "$0 "+AreaUnit)
				changed = true
			}
		}
	}
	if !changed {
		return text
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return text
	}
	return strings.TrimRight(buf.String(), "\n")
}

// AnnotateAnswer appends units to figures that follow a "yield" or
// "plant next season" label in free text. Figures that already carry the
// unit are left alone.
func AnnotateAnswer(text string) string {
	text = replaceUnlessFollowed(text, yieldLabel, YieldUnit)
	return replaceUnlessFollowed(text, nextSeasonLabel, AreaUnit)
}

func replaceUnlessFollowed(text string, re *regexp.Regexp, unit string) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[1]])
		if !hasUnit(text[m[1]:], unit) {
			b.WriteString(" " + unit)
		}
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func hasUnit(rest, unit string) bool {
	rest = strings.TrimLeft(rest, " \t")
	return len(rest) >= len(unit) && strings.EqualFold(rest[:len(unit)], unit)
}
