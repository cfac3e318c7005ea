// Package extractive answers from the retrieved records alone, without a
// language model, by summarizing a plain-language rendering of them.
package extractive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"plantprofit/internal/domain"
	"plantprofit/internal/llm"
)

var _ llm.Generator = (*Generator)(nil)

const noContext = "No catalog records matched the question. Ingest the crop catalog and try again."

// Generator replies in the same JSON contract as the chat model:
// {"answer": ..., "sources": [{"id": ...}]}.
type Generator struct {
	summarizer   domain.Summarizer
	maxSentences int
}

func New(summarizer domain.Summarizer, maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{summarizer: summarizer, maxSentences: maxSentences}
}

func (g *Generator) Name() string { return "extractive" }

func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type source struct {
		ID string `json:"id"`
	}
	reply := struct {
		Answer  string   `json:"answer"`
		Sources []source `json:"sources"`
	}{Answer: noContext, Sources: []source{}}

	if len(req.Documents) > 0 {
		var text strings.Builder
		for _, d := range req.Documents {
			text.WriteString(Describe(d))
			text.WriteByte(' ')
			reply.Sources = append(reply.Sources, source{ID: d.ID})
		}
		summary, err := g.summarizer.Summarize(text.String(), g.maxSentences)
		if err != nil {
			return "", fmt.Errorf("summarize context: %w", err)
		}
		reply.Answer = summary
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Describe renders a document as one or two plain sentences. Crop records
// get a sentence about yield, price and costs; other objects list their
// scalar fields; non-JSON text is returned as is.
func Describe(d domain.Document) string {
	dec := json.NewDecoder(strings.NewReader(d.Text))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return sentence(d.Text)
	}

	if name, ok := obj["name"].(string); ok && obj["avgYield"] != nil {
		s := fmt.Sprintf("%s averages a yield of %v per acre at a price of $%v with costs of $%v per acre.",
			name, obj["avgYield"], obj["avgPrice"], obj["costs"])
		if cost, ok := obj["establishmentCost"]; ok {
			s += fmt.Sprintf(" %s needs $%v per acre to establish and %v years to produce.", name, cost, obj["yearsToProduction"])
		}
		if desc, ok := obj["description"].(string); ok && desc != "" {
			s += " " + name + ": " + sentence(desc)
		}
		return s
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string, json.Number, bool:
			parts = append(parts, fmt.Sprintf("%s %v", k, v))
		}
	}
	label := d.Metadata.Key
	if label == "" {
		label = d.ID
	}
	if len(parts) == 0 {
		return sentence(label)
	}
	return sentence(label + ": " + strings.Join(parts, ", "))
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
