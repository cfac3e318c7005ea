package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"plantprofit/internal/carbon"
	"plantprofit/internal/domain"
	"plantprofit/internal/farmmodel"
	"plantprofit/internal/logging"
	"plantprofit/internal/optimizer"
	"plantprofit/internal/usda"
	"plantprofit/internal/weather"
)

// FarmModel estimates every catalog crop for the farm.
func (s *Service) FarmModel(p farmmodel.Params) []farmmodel.Entry {
	return s.builder.Build(p)
}

// Project ranks crops under a scenario.
func (s *Service) Project(sc farmmodel.Scenario) []farmmodel.Projection {
	return s.builder.Project(sc)
}

// OptimizeRequest carries a farm model as the client sent it.
type OptimizeRequest struct {
	Model  json.RawMessage
	Acres  float64
	Budget float64
}

// OptimizeResult is an allocation plus a plain-language explanation.
type OptimizeResult struct {
	Allocation  []optimizer.Allocation `json:"allocation"`
	TotalProfit float64                `json:"totalProfit"`
	Optimal     bool                   `json:"optimal"`
	Explanation string                 `json:"explanation"`
}

// Optimize solves the allocation for the given model and asks the generator
// to explain it. A failed explanation does not fail the request.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResult, error) {
	var candidates []optimizer.Candidate
	if len(req.Model) > 0 {
		if err := json.Unmarshal(req.Model, &candidates); err != nil {
			return OptimizeResult{}, fmt.Errorf("decode model: %v: %w", err, domain.ErrInvalidModel)
		}
	}
	if len(candidates) == 0 {
		return OptimizeResult{}, fmt.Errorf("missing model: %w", domain.ErrInvalidModel)
	}

	plan, err := optimizer.Optimize(candidates, req.Acres, req.Budget, s.optimizer)
	if err != nil {
		return OptimizeResult{}, err
	}
	res := OptimizeResult{Allocation: plan.Allocations, TotalProfit: plan.TotalProfit, Optimal: plan.Optimal}

	explanation, err := s.answerer.Explain(ctx, req.Model, plan)
	if err != nil {
		logging.Warnf("optimize", "explanation failed: %v", err)
		explanation = "Could not fetch AI explanation: " + err.Error()
	}
	res.Explanation = explanation
	return res, nil
}

// OptimizeFarm builds the farm model and optimizes it in one step.
func (s *Service) OptimizeFarm(ctx context.Context, p farmmodel.Params) ([]farmmodel.Entry, OptimizeResult, error) {
	entries := s.builder.Build(p)
	model, err := json.Marshal(entries)
	if err != nil {
		return nil, OptimizeResult{}, fmt.Errorf("encode model: %w", err)
	}
	res, err := s.Optimize(ctx, OptimizeRequest{Model: model, Acres: p.Acres, Budget: p.Budget})
	return entries, res, err
}

// Weather summarizes rainfall around lat/lon, or the configured location.
func (s *Service) Weather(ctx context.Context, lat, lon *float64) (weather.Summary, error) {
	if s.weather == nil {
		return weather.Summary{}, fmt.Errorf("weather is not configured: %w", domain.ErrServiceUnavailable)
	}
	return s.weather.Summary(ctx, lat, lon)
}

// USDA forwards a QuickStats query.
func (s *Service) USDA(ctx context.Context, query url.Values) (usda.Result, error) {
	if s.usda == nil {
		return usda.Result{}, fmt.Errorf("usda proxy is not configured: %w", domain.ErrServiceUnavailable)
	}
	return s.usda.Get(ctx, query)
}

// CarbonCredits estimates credit income for a practice.
func (s *Service) CarbonCredits(practice string, acres float64) (carbon.Estimate, error) {
	return carbon.Calculate(practice, acres)
}
