package farmmodel

import (
	"sort"

	"plantprofit/internal/domain"
)

// Scenario shifts catalog averages. Scenario values are percentages:
// PriceScenario 10 means prices 10% above average. RainfallAnomaly is the
// observed departure from normal rainfall, also in percent.
type Scenario struct {
	Mode             domain.CropType `json:"mode,omitempty"`
	PriceScenario    float64         `json:"priceScenario"`
	CostScenario     float64         `json:"costScenario"`
	RainfallScenario float64         `json:"rainfallScenario"`
	RainfallAnomaly  float64         `json:"rainfallAnomaly"`
}

// Projection is one crop's outcome under a scenario. ROI and BreakEvenYears
// are set for perennial crops only.
type Projection struct {
	Key            string          `json:"key"`
	Name           string          `json:"name"`
	Type           domain.CropType `json:"type"`
	Yield          float64         `json:"yield"`
	Price          float64         `json:"price"`
	Costs          float64         `json:"costs"`
	Revenue        float64         `json:"revenue"`
	Profit         float64         `json:"profit"`
	RiskScore      float64         `json:"riskScore"`
	ROI            *float64        `json:"roi"`
	BreakEvenYears *float64        `json:"breakEven"`
}

// Project ranks catalog crops by profit per acre under s, most profitable
// first. A Mode of annual or perennial restricts the crops considered.
func (b *Builder) Project(s Scenario) []Projection {
	rainfallFactor := 1 + s.RainfallScenario/100*rainfallSensitivity
	weatherFactor := 1 + s.RainfallAnomaly/100*anomalySensitivity

	var out []Projection
	for _, c := range b.catalog.Crops() {
		if s.Mode != "" && c.Type != s.Mode {
			continue
		}
		yield := c.AvgYield * rainfallFactor * weatherFactor
		price := c.AvgPrice * (1 + s.PriceScenario/100)
		costs := c.Costs * (1 + s.CostScenario/100)
		revenue := yield * price
		profit := revenue - costs

		p := Projection{
			Key:       c.Key,
			Name:      c.DisplayName(),
			Type:      c.Type,
			Yield:     round(yield, 0),
			Price:     round(price, 2),
			Costs:     round(costs, 0),
			Revenue:   round(revenue, 0),
			Profit:    round(profit, 0),
			RiskScore: round(RiskScore(b.risk, profit, c.PriceVolatility, s.RainfallScenario), 0),
		}
		if c.Type == domain.Perennial && c.Establishment != nil && c.Establishment.Cost > 0 {
			roi := round(profit/c.Establishment.Cost*100, 1)
			p.ROI = &roi
			if profit > 0 {
				breakEven := round(c.Establishment.Cost/profit, 1)
				p.BreakEvenYears = &breakEven
			}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}
