// Package farmmodel turns catalog crops into per-acre profit estimates for a
// specific farm and projects them under price, cost and rainfall scenarios.
package farmmodel

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"plantprofit/internal/catalog"
	"plantprofit/internal/config"
	"plantprofit/internal/domain"
	"plantprofit/internal/optimizer"
)

const (
	irrigationBonus     = 0.1
	budgetPerAcreCeil   = 5000.0
	rainfallSensitivity = 0.3
	anomalySensitivity  = 0.2
)

// Params describes the farm.
type Params struct {
	Acres     float64 `json:"acres"`
	Irrigated float64 `json:"irrigated"`
	Budget    float64 `json:"budget"`
}

// Entry is one crop's estimate for a farm.
type Entry struct {
	Key                     string          `json:"key"`
	Label                   string          `json:"label"`
	Type                    domain.CropType `json:"type"`
	EstimatedYield          float64         `json:"estimatedYield"`
	EstPrice                float64         `json:"estPrice"`
	EstCosts                float64         `json:"estCosts"`
	RevenuePerAcre          float64         `json:"revenuePerAcre"`
	ProfitPerAcre           float64         `json:"profitPerAcre"`
	RevenuePerAcreFormatted string          `json:"revenuePerAcreFormatted"`
	ProfitPerAcreFormatted  string          `json:"profitPerAcreFormatted"`
	Profitable              bool            `json:"profitable"`
	Description             string          `json:"description,omitempty"`
	RiskScore               float64         `json:"riskScore"`
}

// Candidate is the entry as the optimizer sees it.
func (e Entry) Candidate() optimizer.Candidate {
	return optimizer.Candidate{Key: e.Key, EstPrice: e.EstPrice, EstimatedYield: e.EstimatedYield, EstCosts: e.EstCosts}
}

// Candidates converts a whole model.
func Candidates(entries []Entry) []optimizer.Candidate {
	out := make([]optimizer.Candidate, len(entries))
	for i, e := range entries {
		out[i] = e.Candidate()
	}
	return out
}

// Builder computes farm models over a fixed catalog.
type Builder struct {
	catalog *catalog.Catalog
	risk    config.RiskConfig
}

func NewBuilder(c *catalog.Catalog, risk config.RiskConfig) *Builder {
	return &Builder{catalog: c, risk: risk}
}

// Build estimates every crop for the farm, annual crops first.
func (b *Builder) Build(p Params) []Entry {
	fraction, perAcreBudget := 0.0, 0.0
	if p.Acres > 0 {
		fraction = p.Irrigated / p.Acres
		perAcreBudget = p.Budget / p.Acres
	}
	water := math.Min(1, fraction+irrigationBonus)
	budgetFactor := 1 + math.Min(1, perAcreBudget/budgetPerAcreCeil)

	crops := ordered(b.catalog.Crops())
	entries := make([]Entry, 0, len(crops))
	for _, c := range crops {
		yield := c.AvgYield * water * budgetFactor
		revenue := yield * c.AvgPrice
		profit := revenue - c.Costs
		entries = append(entries, Entry{
			Key:                     c.Key,
			Label:                   c.DisplayName(),
			Type:                    c.Type,
			EstimatedYield:          round(yield, 1),
			EstPrice:                c.AvgPrice,
			EstCosts:                c.Costs,
			RevenuePerAcre:          round(revenue, 2),
			ProfitPerAcre:           round(profit, 2),
			RevenuePerAcreFormatted: Dollars(revenue),
			ProfitPerAcreFormatted:  Dollars(profit),
			Profitable:              profit > 0,
			Description:             c.Description,
			RiskScore:               round(RiskScore(b.risk, profit, c.PriceVolatility, 0), 0),
		})
	}
	return entries
}

// ordered puts annual crops before perennial ones, keeping catalog order
// within each group.
func ordered(crops []domain.Crop) []domain.Crop {
	out := append([]domain.Crop(nil), crops...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type == domain.Annual && out[j].Type != domain.Annual
	})
	return out
}

// RiskScore rates a crop from the floor to 100. Losing crops score highest,
// thin margins next, and healthy margins grow with price volatility and the
// size of the rainfall swing.
func RiskScore(cfg config.RiskConfig, profit, volatility, rainfallScenario float64) float64 {
	var score float64
	switch {
	case profit < 0:
		score = math.Min(cfg.LossCap, cfg.LossBase+math.Abs(profit)*cfg.LossPerDollar+volatility*cfg.LossVolatility)
	case profit < cfg.ThinMarginThreshold:
		score = math.Min(cfg.ThinCap, cfg.ThinBase+(cfg.ThinMarginThreshold-profit)*cfg.ThinPerDollar+volatility*cfg.ThinVolatility)
	default:
		score = math.Min(cfg.HealthyCap, cfg.HealthyBase+volatility*cfg.HealthyVolatility+math.Abs(rainfallScenario)*cfg.HealthyScenarioWeight)
	}
	return math.Min(100, math.Max(cfg.Floor, score))
}

// Dollars formats v rounded to whole dollars with thousands separators,
// for example "$12,345" or "$-1,234". Halves round up.
func Dollars(v float64) string {
	n := int64(math.Floor(v + 0.5))
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	b.WriteByte('$')
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
