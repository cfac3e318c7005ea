// Package summarizer picks the most representative sentences of a text.
package summarizer

import (
	"math"
	"slices"
	"sort"
	"strings"

	"plantprofit/internal/textproc"
)

const defaultMaxSentences = 5

// FrequencySummarizer scores each sentence by how often its content words
// occur across the whole text and keeps the best ones in reading order.
type FrequencySummarizer struct{}

func NewFrequencySummarizer() *FrequencySummarizer { return &FrequencySummarizer{} }

type scored struct {
	pos   int
	score float64
}

// Summarize returns at most maxSentences sentences of text. Ties go to the
// earlier sentence. Text without sentence structure is returned trimmed.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	sentences := textproc.Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	content := make([][]string, len(sentences))
	for i, sent := range sentences {
		content[i] = textproc.Content(sent)
	}
	weights := termWeights(content)

	ranked := make([]scored, len(sentences))
	for i, toks := range content {
		ranked[i] = scored{pos: i, score: sentenceScore(toks, weights)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	keep := make([]int, maxSentences)
	for i := range keep {
		keep[i] = ranked[i].pos
	}
	slices.Sort(keep)

	out := make([]string, len(keep))
	for i, pos := range keep {
		out[i] = sentences[pos]
	}
	return strings.Join(out, " "), nil
}

// termWeights is each term's frequency relative to the most frequent term.
func termWeights(content [][]string) map[string]float64 {
	counts := make(map[string]float64)
	top := 0.0
	for _, toks := range content {
		for _, t := range toks {
			counts[t]++
			top = math.Max(top, counts[t])
		}
	}
	for t, c := range counts {
		counts[t] = c / top
	}
	return counts
}

// sentenceScore damps long sentences by the square root of their length.
func sentenceScore(toks []string, weights map[string]float64) float64 {
	if len(toks) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range toks {
		sum += weights[t]
	}
	return sum / math.Sqrt(float64(len(toks)))
}
