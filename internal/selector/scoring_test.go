package selector

import (
	"strings"
	"testing"

	"github.com/seanblong/contextselect/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{"금연구역", 1},
		{"금연구역 지정", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), tt.text)
	}
}

func TestChunkQuality(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"short plain", "금연", 0},
		{"mid length", strings.Repeat("가", 300), 3},
		{"ideal length", strings.Repeat("가", 600), 5},
		{"too long", strings.Repeat("가", 6000), 0},
		{"statute", "제3조", 3},
		{"guideline", "운영 지침", 2},
		{"sentences capped", "a. b! c? d.", 2},
		{"everything", strings.Repeat("가", 600) + "제5조 규정. 끝.", 5 + 3 + 2 + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntry(models.Chunk{Content: tt.content})
			assert.Equal(t, tt.want, chunkQuality(e.chunk.Content, e.length))
		})
	}
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		content string
		want    float64
	}{
		{"짧다", 0},
		{"짧다.", 0.2},
		{strings.Repeat("가", 101), 0.3},
		{strings.Repeat("가", 501) + ". . .", 1},
	}
	for _, tt := range tests {
		e := newEntry(models.Chunk{Content: tt.content})
		assert.InDelta(t, tt.want, completeness(e.chunk.Content, e.length), 1e-9)
	}
}

func TestPositionWeight(t *testing.T) {
	assert.InDelta(t, 1.2, positionWeight(0, 10), 1e-9)
	assert.InDelta(t, 1.0, positionWeight(5, 10), 1e-9)
	assert.InDelta(t, 0.84, positionWeight(9, 10), 1e-9)
	assert.InDelta(t, 1.2, positionWeight(0, 0), 1e-9)
}

func TestRelevanceScore(t *testing.T) {
	chunk := models.Chunk{ID: "a", Content: "금연구역 지정"}
	qa := models.QuestionAnalysis{
		Keywords: []string{"금연구역", "지정", "절차"},
		Category: models.CategoryProcedure,
	}
	assert.InDelta(t, 26.4, RelevanceScore(chunk, qa, 1), 1e-9)

	qa.Entities = []string{"금연구역"}
	qa.Category = models.CategoryRegulation
	assert.InDelta(t, (20+15)*1.3*1.2, RelevanceScore(chunk, qa, 1), 1e-9)
}

func TestRelevanceIgnoresCaseAndEmptyTerms(t *testing.T) {
	chunk := models.Chunk{Content: "Smoke-free ZONE"}
	qa := models.QuestionAnalysis{Keywords: []string{"zone", ""}, Category: models.CategoryGeneral}
	assert.InDelta(t, 12.0, RelevanceScore(chunk, qa, 1), 1e-9)
}

func TestRelevanceMonotonicInKeywords(t *testing.T) {
	chunk := models.Chunk{Content: "금연구역 지정 절차 및 과태료 부과 기준에 관한 규정이다.", Metadata: models.ChunkMetadata{ChunkIndex: 3}}
	all := []string{"과태료", "지정", "없는말", "절차", "금연구역"}

	prev := -1.0
	for i := 0; i <= len(all); i++ {
		qa := models.QuestionAnalysis{Keywords: all[:i], Category: models.CategoryDefinition}
		score := RelevanceScore(chunk, qa, 10)
		assert.GreaterOrEqual(t, score, prev, "keywords %v", all[:i])
		prev = score
	}
}

func TestWordOverlap(t *testing.T) {
	lower := "금연구역 지정 절차"
	assert.InDelta(t, 0.5, wordOverlap(lower, "금연구역 어디"), 1e-9)
	assert.InDelta(t, 1.0, wordOverlap(lower, "  지정\t절차 "), 1e-9)
	assert.Zero(t, wordOverlap(lower, ""))
	assert.Zero(t, wordOverlap(lower, "   "))
}
