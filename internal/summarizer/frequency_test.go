package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	text := "Almonds need water. Corn grows on corn land with corn seed. Cotton is cheap. Corn corn corn prices hold at $5.50 per bushel."
	s := NewFrequencySummarizer()

	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Corn grows on corn land with corn seed. Corn corn corn prices hold at $5.50 per bushel.", out)
}

func TestSummarizeTieGoesToEarlierSentence(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("Corn. Cotton. Almonds.", 1)
	require.NoError(t, err)
	assert.Equal(t, "Corn.", out)
}

func TestSummarizeShortInput(t *testing.T) {
	s := NewFrequencySummarizer()

	out, err := s.Summarize("  no terminal punctuation  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "no terminal punctuation", out)

	out, err = s.Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = s.Summarize("One. Two.", 0)
	require.NoError(t, err)
	assert.Equal(t, "One. Two.", out)
}

func TestSummarizeStopwordOnlySentencesRankLast(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("It is what it is. Pistachios pay well. Pistachios need heat.", 2)
	require.NoError(t, err)
	assert.Equal(t, "Pistachios pay well. Pistachios need heat.", out)
}
