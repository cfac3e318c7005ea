package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"the", "yield", "is", "180", "tons", "acre"}, Tokens("The yield is 180 tons/acre"))
	assert.Equal(t, []string{"price", "5.50"}, Tokens("price: 5.50"))
	assert.Equal(t, []string{"farmer's", "crop"}, Tokens("Farmer's crop"))
	assert.Empty(t, Tokens("  ?! "))
}

func TestContentDropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"yield", "180", "tons", "acre"}, Content("The yield is 180 tons/acre"))
	assert.Nil(t, Content("the and of"))
}

func TestTokenSet(t *testing.T) {
	assert.Equal(t, map[string]struct{}{"corn": {}, "grows": {}}, TokenSet("Corn grows corn"))
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"terminal punctuation", "Corn is cheap. Almonds take years! Why?", []string{"Corn is cheap.", "Almonds take years!", "Why?"}},
		{"decimal point", "Corn sells at $5.50 per bushel. Cotton too.", []string{"Corn sells at $5.50 per bushel.", "Cotton too."}},
		{"no punctuation", "  just words  ", []string{"just words"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sentences(tt.in))
		})
	}
}
