// Package rerank orders retrieved documents by relevance to the query.
package rerank

import (
	"context"
	"strings"
	"unicode"
)

// Reranker scores documents against a query. Scores are comparable within a
// single call only; higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Tokenize lowercases text and splits it into tokens: each CJK character is
// its own token, runs of letters/digits form word tokens. Punctuation and
// whitespace are dropped. Character-level CJK tokens keep overlap meaningful
// for unsegmented Chinese.
func Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// TokenSet is Tokenize with duplicates removed.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard computes |a ∩ b| / |a ∪ b| over token sets. Empty-union pairs score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// LexicalReranker scores by Jaccard similarity of token sets. It needs no
// model and never fails, which makes it the fallback when no cross-encoder
// endpoint is configured.
type LexicalReranker struct{}

var _ Reranker = LexicalReranker{}

func NewLexicalReranker() LexicalReranker {
	return LexicalReranker{}
}

func (LexicalReranker) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	queryTokens := TokenSet(query)
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		scores[i] = Jaccard(queryTokens, TokenSet(doc))
	}
	return scores, nil
}
