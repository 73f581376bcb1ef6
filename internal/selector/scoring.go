package selector

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/seanblong/contextselect/pkg/models"
)

var categoryWeights = map[models.Category]float64{
	models.CategoryDefinition: 1.2,
	models.CategoryProcedure:  1.1,
	models.CategoryRegulation: 1.3,
	models.CategoryComparison: 1.0,
	models.CategoryAnalysis:   1.1,
}

func categoryWeight(c models.Category) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return 1.0
}

// EstimateTokens approximates the token cost of text as a quarter of its
// character count, rounded up.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TotalTokens sums EstimateTokens over the chunk contents.
func TotalTokens(chunks []models.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Content)
	}
	return total
}

func terminators(content string) int {
	return strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?")
}

// chunkQuality rewards mid-sized chunks that read like statute text.
func chunkQuality(content string, length int) float64 {
	quality := 0.0

	switch {
	case length > 500 && length < 3000:
		quality += 5
	case length > 200 && length < 5000:
		quality += 3
	}

	if strings.Contains(content, "제") && strings.Contains(content, "조") {
		quality += 3
	}
	if strings.Contains(content, "규정") || strings.Contains(content, "지침") {
		quality += 2
	}

	quality += math.Min(2, float64(terminators(content)))
	return quality
}

// positionWeight falls linearly from 1.2 at the start of the corpus to 0.8
// at its end.
func positionWeight(chunkIndex, corpusLen int) float64 {
	if corpusLen == 0 {
		return 1.2
	}
	return 1.2 - 0.4*float64(chunkIndex)/float64(corpusLen)
}

func completeness(content string, length int) float64 {
	c := 0.0
	if length > 100 {
		c += 0.3
	}
	if length > 500 {
		c += 0.3
	}
	n := terminators(content)
	if n > 0 {
		c += 0.2
	}
	if n > 2 {
		c += 0.2
	}
	return math.Min(1, c)
}

// countHits reports how many of terms occur in lower, ignoring case. Empty
// terms never match.
func countHits(lower string, terms []string) int {
	hits := 0
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			hits++
		}
	}
	return hits
}

// wordOverlap is the share of whitespace separated question words found in
// the chunk. A question without words scores 0.
func wordOverlap(lower, question string) float64 {
	words := strings.Fields(strings.ToLower(question))
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

// RelevanceScore scores chunk against the analysis. corpusLen is the size of
// the corpus the chunk belongs to.
func RelevanceScore(chunk models.Chunk, qa models.QuestionAnalysis, corpusLen int) float64 {
	e := newEntry(chunk)
	return e.relevance(qa, corpusLen)
}

// entry caches the per-chunk values every stage needs.
type entry struct {
	chunk  models.Chunk
	lower  string
	length int
	vec    []float32
}

func newEntry(c models.Chunk) entry {
	return entry{
		chunk:  c,
		lower:  strings.ToLower(c.Content),
		length: utf8.RuneCountInString(c.Content),
	}
}

func (e *entry) relevance(qa models.QuestionAnalysis, corpusLen int) float64 {
	score := float64(countHits(e.lower, qa.Keywords)*10 + countHits(e.lower, qa.Entities)*15)
	score *= categoryWeight(qa.Category)
	score += chunkQuality(e.chunk.Content, e.length)
	score *= positionWeight(e.chunk.Metadata.ChunkIndex, corpusLen)
	return math.Max(0, score)
}
