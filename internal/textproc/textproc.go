// Package textproc splits catalog text into sentences and tokens for the
// lexical parts of the advisor: TF-IDF, the extractive summarizer, the
// overlap fallback of the index and the chat highlighter.
package textproc

import (
	"regexp"
	"strings"
)

var (
	tokenRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+(?:\.\p{N}+)?`)
	sentenceRe = regexp.MustCompile(`(?s).+?(?:[.!?]+(?:\s+|$)|$)`)
)

var stopwords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(`
		a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from
		up down over under again further than so such into about between
		through during before after above below out off own same too very
		can will just don should now`) {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens returns the lowercase words and decimal numbers of s.
func Tokens(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

// Content returns Tokens without stopwords.
func Content(s string) []string {
	toks := Tokens(s)
	out := toks[:0]
	for _, t := range toks {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TokenSet returns the distinct tokens of s.
func TokenSet(s string) map[string]struct{} {
	toks := Tokens(s)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// IsStopword reports whether the lowercase token t carries no topic.
func IsStopword(t string) bool {
	_, ok := stopwords[t]
	return ok
}

// Sentences splits text at terminal punctuation followed by whitespace or
// the end of input. A decimal point is not a boundary. Returned sentences
// are trimmed and never empty.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
