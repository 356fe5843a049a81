package utils

import (
	"math"
	"strings"
	"unicode"
)

// Tokenize lowercases and splits text into word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// BagOfWordsCosine scores the similarity of two texts by cosine over their
// term-frequency vectors. Used as the retrieval fallback when vector search
// is unavailable.
func BagOfWordsCosine(a, b string) float64 {
	freqA := termFrequencies(a)
	freqB := termFrequencies(b)
	if len(freqA) == 0 || len(freqB) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, countA := range freqA {
		normA += countA * countA
		if countB, ok := freqB[term]; ok {
			dot += countA * countB
		}
	}
	for _, countB := range freqB {
		normB += countB * countB
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFrequencies(text string) map[string]float64 {
	freq := map[string]float64{}
	for _, token := range Tokenize(text) {
		freq[token]++
	}
	return freq
}
