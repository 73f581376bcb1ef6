// Package vector turns text into small fixed-length term-frequency vectors
// that are cheap enough to compare against every chunk of a corpus.
package vector

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Dim is the length of every vector produced by Vectorize.
const Dim = 100

var nonWord = regexp.MustCompile(`[^\w가-힣]`)

// Clean lower-cases a word and strips everything that is not an ASCII word
// character or a Hangul syllable.
func Clean(word string) string {
	return nonWord.ReplaceAllString(strings.ToLower(word), "")
}

// Terms splits text on whitespace and returns the cleaned words longer than
// one character, in input order.
func Terms(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := Clean(f)
		if utf8.RuneCountInString(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

// Vectorize builds a Dim-length term-frequency vector. Each term is hashed
// into a bucket so the same word lands in the same dimension for any text.
func Vectorize(text string) []float32 {
	v := make([]float32, Dim)
	for _, t := range Terms(text) {
		v[bucket(t)]++
	}
	return v
}

func bucket(term string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int(h.Sum32() % Dim)
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is all zeros.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
