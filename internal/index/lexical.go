package index

import (
	"math"

	"plantprofit/internal/domain"
	"plantprofit/internal/textproc"
	"plantprofit/internal/vectorstore"
)

// lexicalSearch ranks docs by Ochiai token overlap with query. Documents
// sharing no token with the query are left out.
func lexicalSearch(docs []domain.Document, query string, k int) []domain.SearchResult {
	qset := textproc.TokenSet(query)
	results := make([]domain.SearchResult, 0, len(docs))
	for _, d := range docs {
		if score := overlapOchiai(qset, d.Text); score > 0 {
			results = append(results, domain.SearchResult{Document: d, Score: score})
		}
	}
	return vectorstore.TopK(results, k)
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := textproc.TokenSet(text)
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
