package domain

// Document is one flattened catalog record, the unit of retrieval.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Metadata locates a document inside the catalog it was flattened from.
type Metadata struct {
	Section string `json:"section"`
	Key     string `json:"key"`
}

// ScoredID is a retrieval hit reduced to what callers see on the wire.
type ScoredID struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// IDs returns the ids of the results in order.
func IDs(results []SearchResult) []ScoredID {
	out := make([]ScoredID, len(results))
	for i, r := range results {
		out[i] = ScoredID{ID: r.Document.ID, Score: r.Score}
	}
	return out
}
