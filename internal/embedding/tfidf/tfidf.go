// Package tfidf is the offline embedder: sparse TF-IDF weights over the
// vocabulary of the ingested catalog, densified and L2-normalized.
package tfidf

import (
	"context"
	"math"
	"slices"

	"plantprofit/internal/embedding"
	"plantprofit/internal/textproc"
)

var _ embedding.Fitter = (*Embedder)(nil)

type term struct {
	pos int
	idf float64
}

// Embedder maps text onto a vocabulary fixed by Fit. A fitted Embedder is
// immutable and safe for concurrent use.
type Embedder struct {
	terms map[string]term
}

// NewEmbedder returns an unfitted embedder; it embeds everything to the
// zero-length vector.
func NewEmbedder() *Embedder { return &Embedder{terms: map[string]term{}} }

func (e *Embedder) Name() string { return "tfidf" }

func (e *Embedder) Dimension() int { return len(e.terms) }

// Fit returns a new embedder whose vocabulary is the content words of
// corpus. The receiver is left untouched.
func (e *Embedder) Fit(corpus []string) (embedding.Embedder, error) {
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		for t := range distinct(textproc.Content(doc)) {
			docFreq[t]++
		}
	}
	vocab := make([]string, 0, len(docFreq))
	for t := range docFreq {
		vocab = append(vocab, t)
	}
	slices.Sort(vocab)

	n := float64(len(corpus))
	terms := make(map[string]term, len(vocab))
	for i, t := range vocab {
		terms[t] = term{pos: i, idf: 1 + math.Log((1+n)/(1+float64(docFreq[t])))}
	}
	return &Embedder{terms: terms}, nil
}

// Embed weights each known term by its share of the known tokens of text
// times its idf. Text without known terms embeds to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, len(e.terms))
	known := 0
	for _, tok := range textproc.Content(text) {
		if tm, ok := e.terms[tok]; ok {
			vec[tm.pos] += tm.idf
			known++
		}
	}
	if known == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] /= float64(known)
	}
	normalize(vec)
	return vec, nil
}

func distinct(toks []string) map[string]struct{} {
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

func normalize(vec []float64) {
	var sq float64
	for _, v := range vec {
		sq += v * v
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i := range vec {
		vec[i] /= norm
	}
}
