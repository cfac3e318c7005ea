// Package carbon estimates carbon-credit income for regenerative practices.
package carbon

import (
	"fmt"
	"math"

	"plantprofit/internal/domain"
)

// Practice is a regenerative practice and the credit it earns per acre, in USD.
type Practice struct {
	Value         string  `json:"value"`
	Label         string  `json:"label"`
	CreditPerAcre float64 `json:"creditPerAcre"`
	Description   string  `json:"description"`
}

var practices = []Practice{
	{Value: "cover_crops", Label: "Plant cover crops", CreditPerAcre: 150, Description: "Increase soil carbon and earn credits by planting cover crops."},
	{Value: "no_till", Label: "No-till farming", CreditPerAcre: 120, Description: "Reduce soil disturbance and sequester more carbon."},
	{Value: "rotational_grazing", Label: "Rotational grazing", CreditPerAcre: 100, Description: "Improve pasture health and carbon storage."},
}

// Practices lists the supported practices.
func Practices() []Practice {
	return append([]Practice(nil), practices...)
}

// Estimate is the credit income for one practice on a given acreage.
type Estimate struct {
	Credits     float64 `json:"credits"`
	Practice    string  `json:"practice"`
	Description string  `json:"description"`
	Acres       float64 `json:"acres"`
}

// Calculate multiplies acres by the practice's per-acre credit.
func Calculate(practice string, acres float64) (Estimate, error) {
	if math.IsNaN(acres) || math.IsInf(acres, 0) || acres <= 0 {
		return Estimate{}, fmt.Errorf("acres must be positive, got %v: %w", acres, domain.ErrInvalidInput)
	}
	for _, p := range practices {
		if p.Value == practice {
			return Estimate{
				Credits:     acres * p.CreditPerAcre,
				Practice:    p.Label,
				Description: p.Description,
				Acres:       acres,
			}, nil
		}
	}
	return Estimate{}, fmt.Errorf("unknown practice %q: %w", practice, domain.ErrInvalidInput)
}
