package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/domain"
)

func TestFlattenKeepsFileOrder(t *testing.T) {
	raw := []byte(`{
		"perennial": {"zeta": {"b": 2, "a": 1.50}},
		"annual": {"corn": {"name": "Corn", "avgYield": 180}, "beans": {"x": [1, 2]}}
	}`)
	docs, err := Flatten(raw)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "perennial_zeta", docs[0].ID)
	assert.Equal(t, `{"a":1.50,"b":2}`, docs[0].Text)
	assert.Equal(t, domain.Metadata{Section: "perennial", Key: "zeta"}, docs[0].Metadata)
	assert.Equal(t, "annual_corn", docs[1].ID)
	assert.Equal(t, `{"avgYield":180,"name":"Corn"}`, docs[1].Text)
	assert.Equal(t, "annual_beans", docs[2].ID)
}

func TestFlattenEdgeCases(t *testing.T) {
	docs, err := Flatten([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = Flatten([]byte(`{"annual": {}}`))
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = Flatten([]byte(`{"s": {"k": 1, "k": 2}}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2", docs[0].Text)

	docs, err = Flatten([]byte(`{"s": {"k": 1}, "t": {"x": 0}, "s": {"k": 3}}`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "3", docs[0].Text)

	for _, bad := range []string{``, `{`, `[]`, `{"s": [1]}`, `{"s": {"k": }}`, `{} {}`} {
		_, err := Flatten([]byte(bad))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}

func TestFlattenRejectsIDCollisions(t *testing.T) {
	_, err := Flatten([]byte(`{"a_b": {"c": 1}, "a": {"b_c": 2}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), `"a_b_c"`)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, 6, c.Len())

	keys := make([]string, 0, c.Len())
	for _, crop := range c.Crops() {
		keys = append(keys, crop.Key)
	}
	assert.Equal(t, []string{"tomatoes", "cotton", "corn", "almonds", "grapes", "pistachios"}, keys)

	almonds, ok := c.Lookup("almonds")
	require.True(t, ok)
	assert.Equal(t, domain.Perennial, almonds.Type)
	require.NotNil(t, almonds.Establishment)
	assert.Equal(t, 12000.0, almonds.Establishment.Cost)
	assert.Equal(t, 3, almonds.Establishment.YearsToProduction)

	corn, ok := c.Lookup("corn")
	require.True(t, ok)
	assert.Nil(t, corn.Establishment)
	assert.Equal(t, 5.5, corn.AvgPrice)

	docs := c.Documents()
	require.Len(t, docs, 6)
	assert.Equal(t, "annual_tomatoes", docs[0].ID)
}

func TestParseRejectsInvalidCrops(t *testing.T) {
	tests := map[string]string{
		"missing price":        `{"annual": {"corn": {"name": "Corn", "avgYield": 1, "costs": 1}}}`,
		"negative costs":       `{"annual": {"corn": {"name": "Corn", "avgYield": 1, "avgPrice": 1, "costs": -1}}}`,
		"perennial no terms":   `{"perennial": {"figs": {"name": "Figs", "type": "perennial", "avgYield": 1, "avgPrice": 1, "costs": 1}}}`,
		"untyped perennial":    `{"perennial": {"figs": {"name": "Figs", "avgYield": 1, "avgPrice": 1, "costs": 1}}}`,
		"key in both sections": `{"annual": {"a": {"name": "A", "avgYield": 1, "avgPrice": 1, "costs": 1}}, "perennial": {"a": {"name": "A", "avgYield": 1, "avgPrice": 1, "costs": 1, "establishmentCost": 1, "yearsToProduction": 1}}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestParseKeepsExtraSectionsAsDocuments(t *testing.T) {
	c, err := Parse([]byte(`{"notes": {"water": {"tip": "drip irrigation"}}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Len(t, c.Documents(), 1)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, c.Len())

	path := filepath.Join(t.TempDir(), "crops.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Documents())

	_, err = Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
