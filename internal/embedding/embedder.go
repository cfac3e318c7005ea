package embedding

import (
	"context"
	"fmt"

	"plantprofit/internal/domain"
	"plantprofit/internal/units"
)

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fitter is implemented by embedders that learn a vocabulary from the corpus.
// Fit returns a new embedder and leaves the receiver untouched, so a failed
// ingest keeps serving with the previous vocabulary.
type Fitter interface {
	Fit(corpus []string) (Embedder, error)
}

// Annotated applies unit annotation to every text before handing it to the
// wrapped embedder.
type Annotated struct {
	Inner Embedder
}

// Annotate wraps e unless it is already annotated.
func Annotate(e Embedder) Embedder {
	if _, ok := e.(Annotated); ok {
		return e
	}
	return Annotated{Inner: e}
}

func (a Annotated) Name() string   { return a.Inner.Name() }
func (a Annotated) Dimension() int { return a.Inner.Dimension() }

func (a Annotated) Embed(ctx context.Context, text string) ([]float64, error) {
	return a.Inner.Embed(ctx, units.AnnotateRecord(text))
}

// Fit annotates the corpus, fits the inner embedder when it can be fitted,
// and re-wraps the result.
func (a Annotated) Fit(corpus []string) (Embedder, error) {
	f, ok := a.Inner.(Fitter)
	if !ok {
		return a, nil
	}
	annotated := make([]string, len(corpus))
	for i, text := range corpus {
		annotated[i] = units.AnnotateRecord(text)
	}
	fitted, err := f.Fit(annotated)
	if err != nil {
		return nil, err
	}
	return Annotated{Inner: fitted}, nil
}

// Unavailable stands in for a remote embedder that could not be configured,
// e.g. because its API key is missing. Every call fails with
// domain.ErrServiceUnavailable.
type Unavailable struct {
	Backend string
	Reason  string
}

func (u Unavailable) Name() string   { return u.Backend }
func (u Unavailable) Dimension() int { return 0 }

func (u Unavailable) Embed(context.Context, string) ([]float64, error) {
	return nil, fmt.Errorf("%s embedder: %s: %w", u.Backend, u.Reason, domain.ErrServiceUnavailable)
}
