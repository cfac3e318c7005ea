package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"plantprofit/internal/domain"
	"plantprofit/internal/llm"
	"plantprofit/internal/optimizer"
)

const explainTemperature = 0.7

// Explain asks the generator why plan maximizes expected profit for model.
// The reply is unwrapped from JSON when possible and stripped of JSON
// punctuation.
func (a *Answerer) Explain(ctx context.Context, model any, plan optimizer.Plan) (string, error) {
	modelJSON, err := json.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("encode model: %v: %w", err, domain.ErrInvalidInput)
	}
	planJSON, err := json.Marshal(plan.Allocations)
	if err != nil {
		return "", fmt.Errorf("encode allocation: %v: %w", err, domain.ErrInvalidInput)
	}
	prompt := fmt.Sprintf("Given the farm model: %s and optimization allocation: %s, explain in plain language why this allocation maximizes expected profit and mention any key risks.", modelJSON, planJSON)

	raw, err := a.generator.Generate(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Documents:   planDocuments(plan),
		Temperature: explainTemperature,
	})
	if err != nil {
		return "", &StageError{Stage: StageGenerate, Err: err}
	}

	text := raw
	if obj, ok := TryParseJSON(raw); ok {
		if s, ok := obj["answer"].(string); ok {
			text = s
		}
	}
	return StripPunctuation(text), nil
}

func planDocuments(plan optimizer.Plan) []domain.Document {
	docs := make([]domain.Document, 0, len(plan.Allocations)+1)
	for _, al := range plan.Allocations {
		if al.Acres == 0 {
			continue
		}
		docs = append(docs, domain.Document{
			ID: "allocation_" + al.Key,
			Text: fmt.Sprintf("Allocate %s acres to %s at $%s profit per acre.",
				formatNumber(al.Acres), al.Key, formatNumber(al.ProfitPerAcre)),
		})
	}
	docs = append(docs, domain.Document{
		ID:   "allocation_total",
		Text: fmt.Sprintf("The plan is expected to earn $%s in total.", formatNumber(plan.TotalProfit)),
	})
	return docs
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
