package triage

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityMethod selects how two titles are compared.
type SimilarityMethod string

const (
	// SimilarityJaccard compares lowercase word-token sets.
	SimilarityJaccard SimilarityMethod = "jaccard"
	// SimilarityEdit is 1 - levenshtein/longest over the normalized titles.
	SimilarityEdit SimilarityMethod = "edit"
	// SimilarityHybrid takes the larger of the two, catching both reordered
	// titles and single-word substitutions. Titles whose numeric tokens differ
	// ("GPT-4" vs "GPT-5") are scored on tokens alone.
	SimilarityHybrid SimilarityMethod = "hybrid"
)

// SimilarityFunc scores two titles in [0,1].
type SimilarityFunc func(a, b string) float64

// SimilarityFor resolves a configured method name; empty means hybrid.
func SimilarityFor(method SimilarityMethod) (SimilarityFunc, error) {
	switch method {
	case SimilarityJaccard:
		return TokenJaccard, nil
	case SimilarityEdit:
		return EditSimilarity, nil
	case SimilarityHybrid, "":
		return HybridSimilarity, nil
	default:
		return nil, fmt.Errorf("%w: unknown similarity method %q", ErrInvalidConfig, method)
	}
}

// TokenJaccard is |A∩B| / |A∪B| over lowercase word tokens.
func TokenJaccard(a, b string) float64 {
	left := tokenSet(a)
	right := tokenSet(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	shared := 0
	for token := range left {
		if _, ok := right[token]; ok {
			shared++
		}
	}
	union := len(left) + len(right) - shared
	return float64(shared) / float64(union)
}

// EditSimilarity is the normalized Levenshtein similarity of two titles.
func EditSimilarity(a, b string) float64 {
	left := canonicalTitle(a)
	right := canonicalTitle(b)
	if left == "" || right == "" {
		return 0
	}

	longest := max(utf8.RuneCountInString(left), utf8.RuneCountInString(right))
	distance := levenshtein.ComputeDistance(left, right)
	return 1 - float64(distance)/float64(longest)
}

// HybridSimilarity is max(TokenJaccard, EditSimilarity), or TokenJaccard alone
// when the titles carry different numbers.
func HybridSimilarity(a, b string) float64 {
	jaccard := TokenJaccard(a, b)
	if !sameNumbers(a, b) {
		return jaccard
	}
	return max(jaccard, EditSimilarity(a, b))
}

// sameNumbers reports whether both titles have the same set of tokens containing digits.
func sameNumbers(a, b string) bool {
	left := numericTokens(a)
	right := numericTokens(b)
	if len(left) != len(right) {
		return false
	}
	for tok := range left {
		if _, ok := right[tok]; !ok {
			return false
		}
	}
	return true
}

func numericTokens(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range tokens(s) {
		if strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			set[tok] = struct{}{}
		}
	}
	return set
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

func canonicalTitle(s string) string {
	return strings.Join(tokens(s), " ")
}
