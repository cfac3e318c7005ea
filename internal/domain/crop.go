package domain

import (
	"encoding/json"
	"fmt"
)

// CropType distinguishes annual field crops from perennial orchards and vineyards.
type CropType string

const (
	Annual    CropType = "annual"
	Perennial CropType = "perennial"
)

// Crop is a static crop parameter record. Perennial crops carry
// establishment terms; annual crops leave Establishment nil.
type Crop struct {
	Key             string
	Name            string
	Type            CropType
	AvgYield        float64
	AvgPrice        float64
	Costs           float64
	PriceVolatility float64
	YieldHistory    []float64
	PriceHistory    []float64
	Description     string
	Establishment   *Establishment
}

// Establishment holds the one-time investment a perennial crop needs before it produces.
type Establishment struct {
	Cost              float64
	YearsToProduction int
}

type cropJSON struct {
	Name              string    `json:"name"`
	Type              CropType  `json:"type"`
	AvgYield          float64   `json:"avgYield"`
	AvgPrice          float64   `json:"avgPrice"`
	Costs             float64   `json:"costs"`
	PriceVolatility   float64   `json:"priceVolatility"`
	EstablishmentCost *float64  `json:"establishmentCost,omitempty"`
	YearsToProduction *int      `json:"yearsToProduction,omitempty"`
	YieldHistory      []float64 `json:"yieldHistory,omitempty"`
	PriceHistory      []float64 `json:"priceHistory,omitempty"`
	Description       string    `json:"description,omitempty"`
}

// UnmarshalJSON reads the flat catalog record shape.
func (c *Crop) UnmarshalJSON(data []byte) error {
	var raw cropJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Crop{
		Key:             c.Key,
		Name:            raw.Name,
		Type:            raw.Type,
		AvgYield:        raw.AvgYield,
		AvgPrice:        raw.AvgPrice,
		Costs:           raw.Costs,
		PriceVolatility: raw.PriceVolatility,
		YieldHistory:    raw.YieldHistory,
		PriceHistory:    raw.PriceHistory,
		Description:     raw.Description,
	}
	if raw.Type == Perennial {
		if raw.EstablishmentCost == nil || raw.YearsToProduction == nil {
			return fmt.Errorf("perennial crop %q needs establishmentCost and yearsToProduction: %w", raw.Name, ErrInvalidInput)
		}
		c.Establishment = &Establishment{Cost: *raw.EstablishmentCost, YearsToProduction: *raw.YearsToProduction}
	}
	return nil
}

// MarshalJSON writes the flat catalog record shape.
func (c Crop) MarshalJSON() ([]byte, error) {
	raw := cropJSON{
		Name:            c.Name,
		Type:            c.Type,
		AvgYield:        c.AvgYield,
		AvgPrice:        c.AvgPrice,
		Costs:           c.Costs,
		PriceVolatility: c.PriceVolatility,
		YieldHistory:    c.YieldHistory,
		PriceHistory:    c.PriceHistory,
		Description:     c.Description,
	}
	if c.Establishment != nil {
		cost := c.Establishment.Cost
		years := c.Establishment.YearsToProduction
		raw.EstablishmentCost = &cost
		raw.YearsToProduction = &years
	}
	return json.Marshal(raw)
}

// DisplayName falls back to the key when the record has no name.
func (c Crop) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}
