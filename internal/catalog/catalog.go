// Package catalog loads the static crop catalog and flattens it into retrievable documents.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"plantprofit/internal/domain"
)

//go:embed crops.json
var defaultCatalog []byte

//go:embed crop.schema.json
var cropSchema []byte

var schema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(cropSchema))
	if err != nil {
		panic(fmt.Sprintf("catalog: compile crop schema: %v", err))
	}
	schema = s
}

// Catalog is an immutable, parsed crop catalog. Sections other than
// "annual" and "perennial" are kept for retrieval but yield no crops.
type Catalog struct {
	raw   []byte
	docs  []domain.Document
	crops []domain.Crop
	byKey map[string]int
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) { return Parse(defaultCatalog) }

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse flattens raw and validates every crop record against the crop schema.
func Parse(raw []byte) (*Catalog, error) {
	docs, err := Flatten(raw)
	if err != nil {
		return nil, err
	}
	c := &Catalog{raw: raw, docs: docs, byKey: make(map[string]int)}
	for _, doc := range docs {
		section := domain.CropType(doc.Metadata.Section)
		if section != domain.Annual && section != domain.Perennial {
			continue
		}
		crop, err := parseCrop(doc, section)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byKey[crop.Key]; dup {
			return nil, fmt.Errorf("crop %q listed in more than one section: %w", crop.Key, domain.ErrInvalidInput)
		}
		c.byKey[crop.Key] = len(c.crops)
		c.crops = append(c.crops, crop)
	}
	return c, nil
}

func parseCrop(doc domain.Document, section domain.CropType) (domain.Crop, error) {
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc.Text))
	if err != nil {
		return domain.Crop{}, fmt.Errorf("validate %s: %v: %w", doc.ID, err, domain.ErrInvalidInput)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return domain.Crop{}, fmt.Errorf("crop %s failed validation: %s: %w", doc.ID, strings.Join(details, "; "), domain.ErrInvalidInput)
	}

	crop := domain.Crop{Key: doc.Metadata.Key}
	if err := json.Unmarshal([]byte(doc.Text), &crop); err != nil {
		return domain.Crop{}, fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if crop.Type == "" {
		crop.Type = section
	}
	if crop.Type == domain.Perennial && crop.Establishment == nil {
		return domain.Crop{}, fmt.Errorf("perennial crop %s needs establishmentCost and yearsToProduction: %w", doc.ID, domain.ErrInvalidInput)
	}
	return crop, nil
}

// Raw returns the catalog bytes as loaded.
func (c *Catalog) Raw() []byte { return c.raw }

// Documents returns the flattened records in file order.
func (c *Catalog) Documents() []domain.Document {
	return append([]domain.Document(nil), c.docs...)
}

// Crops returns the crop records in file order.
func (c *Catalog) Crops() []domain.Crop {
	return append([]domain.Crop(nil), c.crops...)
}

// Lookup finds a crop by key.
func (c *Catalog) Lookup(key string) (domain.Crop, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return domain.Crop{}, false
	}
	return c.crops[i], true
}

// Len reports the number of crops.
func (c *Catalog) Len() int { return len(c.crops) }
