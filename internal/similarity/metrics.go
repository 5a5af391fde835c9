package similarity

import (
	"math"
	"strings"
	"unicode"
)

// levenshteinSimilarity converts edit distance into a 0–100 score. Two empty
// strings are identical (100).
func levenshteinSimilarity(a, b string) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// levenshtein computes edit distance with the two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// jaccardWordSimilarity is the word-set overlap of two strings as a
// percentage, counting words longer than two characters only.
func jaccardWordSimilarity(a, b string) int {
	setA, setB := wordSet(a), wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 100
	}
	return jaccard(setA, setB)
}

// structuralPatternSimilarity compares punctuation and casing shape: every
// alphanumeric run character is collapsed into a single marker before the
// word-set comparison.
func structuralPatternSimilarity(a, b string) int {
	return jaccardWordSimilarity(structuralPattern(a), structuralPattern(b))
}

func structuralPattern(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			sb.WriteRune('x')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// keyphraseSimilarity is the Jaccard overlap of 2- and 3-word shingle sets.
func keyphraseSimilarity(a, b string) int {
	setA, setB := shingleSet(a), shingleSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 100
	}
	return jaccard(setA, setB)
}

// lengthRatioSimilarity scores how close the two lengths are, 100 for equal.
func lengthRatioSimilarity(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 100
	}
	longer := la
	shorter := lb
	if lb > la {
		longer, shorter = lb, la
	}
	return int(math.Round(float64(shorter) / float64(longer) * 100))
}

func jaccard(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return int(math.Round(float64(inter) / float64(union) * 100))
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range tokenize(s) {
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

// shingleSet returns the 2- and 3-word shingles of s.
func shingleSet(s string) map[string]struct{} {
	words := tokenize(s)
	set := map[string]struct{}{}
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(words); i++ {
			set[strings.Join(words[i:i+n], " ")] = struct{}{}
		}
	}
	return set
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
