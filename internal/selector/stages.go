package selector

import (
	"sort"
	"strings"

	"github.com/seanblong/contextselect/internal/synonym"
	"github.com/seanblong/contextselect/internal/vector"
	"github.com/seanblong/contextselect/pkg/models"
)

// candidate is a corpus position with the score one stage gave it.
type candidate struct {
	idx   int
	score float64
}

const (
	exactWindow   = 200
	exactMin      = 0.1
	exactTop      = 20
	synonymWindow = 300
	synonymMin    = 0.05
	synonymTop    = 30
	semWindow     = 400
	semMin        = 0.3
	semTop        = 25
	sectionLimit  = 5
	generalTop    = 50
)

func window(n, limit int) int {
	if n < limit {
		return n
	}
	return limit
}

// topScored keeps candidates above min from the first limit chunks, best
// first. Ties keep corpus order.
func (s *Selector) topScored(limit, top int, min float64, score func(e *entry) float64) []candidate {
	var out []candidate
	for i := 0; i < window(len(s.entries), limit); i++ {
		if sc := score(&s.entries[i]); sc > min {
			out = append(out, candidate{idx: i, score: sc})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].score > out[b].score })
	if len(out) > top {
		out = out[:top]
	}
	return out
}

func (s *Selector) exactMatches(qa models.QuestionAnalysis) []candidate {
	n := len(s.entries)
	return s.topScored(exactWindow, exactTop, exactMin, func(e *entry) float64 {
		return e.relevance(qa, n)
	})
}

// expandKeywords appends the synonyms of the question words to the analysis
// keywords, dropping case-insensitive duplicates.
func expandKeywords(question string, keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{})
	for _, k := range append(append([]string{}, keywords...), synonym.Expand(question)...) {
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (s *Selector) synonymMatches(question string, qa models.QuestionAnalysis) []candidate {
	expanded := qa
	expanded.Keywords = expandKeywords(question, qa.Keywords)
	n := len(s.entries)
	return s.topScored(synonymWindow, synonymTop, synonymMin, func(e *entry) float64 {
		return e.relevance(expanded, n)
	})
}

// semanticMatches ranks by cosine similarity but records the relevance score
// so the merge step adds comparable numbers.
func (s *Selector) semanticMatches(question string, qa models.QuestionAnalysis) []candidate {
	qv := vector.Vectorize(question)
	sims := s.topScored(semWindow, semTop, semMin, func(e *entry) float64 {
		return vector.Cosine(qv, e.vec)
	})
	n := len(s.entries)
	for i := range sims {
		sims[i].score = s.entries[sims[i].idx].relevance(qa, n)
	}
	return sims
}

// expandRelated returns the seeds, their neighbours in the same document and
// a few other chunks of the same section, without repeats.
func (s *Selector) expandRelated(seeds []candidate, qa models.QuestionAnalysis) []candidate {
	n := len(s.entries)
	seen := make(map[int]struct{})
	var out []candidate
	add := func(idx int) {
		if _, ok := seen[idx]; ok {
			return
		}
		seen[idx] = struct{}{}
		out = append(out, candidate{idx: idx, score: s.entries[idx].relevance(qa, n)})
	}

	for _, c := range seeds {
		add(c.idx)
	}
	for _, c := range seeds {
		ch := s.entries[c.idx].chunk
		if ch.Metadata.ChunkIndex > 0 {
			if i, ok := s.byPos[posKey{ch.DocumentID, ch.Metadata.ChunkIndex - 1}]; ok {
				add(i)
			}
		}
		if i, ok := s.byPos[posKey{ch.DocumentID, ch.Metadata.ChunkIndex + 1}]; ok {
			add(i)
		}

		section := ch.Location.Section
		if section == "" {
			continue
		}
		found := 0
		for i := range s.entries {
			if found == sectionLimit {
				break
			}
			other := s.entries[i].chunk
			if other.Location.Section == section && other.ID != ch.ID {
				add(i)
				found++
			}
		}
	}
	return out
}

type categoryFilter struct {
	limit int
	match func(content string) bool
}

func containsAny(content string, cues ...string) bool {
	for _, c := range cues {
		if strings.Contains(content, c) {
			return true
		}
	}
	return false
}

var categoryFilters = map[models.Category]categoryFilter{
	models.CategoryDefinition: {15, func(c string) bool { return containsAny(c, "정의", "의미", "뜻은", "이란") }},
	models.CategoryProcedure:  {15, func(c string) bool { return containsAny(c, "절차", "방법", "과정", "단계") }},
	models.CategoryRegulation: {20, func(c string) bool {
		return containsAny(c, "규정", "법령", "지침") || (strings.Contains(c, "제") && strings.Contains(c, "조"))
	}},
	models.CategoryComparison: {10, func(c string) bool { return containsAny(c, "비교", "차이", "구분", "대비") }},
	models.CategoryAnalysis:   {15, func(c string) bool { return containsAny(c, "분석", "검토", "평가", "통계") }},
}

// categoryMatches applies the content filter of the question category, or
// takes the head of the corpus for general questions.
func (s *Selector) categoryMatches(qa models.QuestionAnalysis) []candidate {
	n := len(s.entries)
	f, ok := categoryFilters[qa.Category]
	var out []candidate
	for i := range s.entries {
		if ok {
			if len(out) == f.limit {
				break
			}
			if !f.match(s.entries[i].chunk.Content) {
				continue
			}
		} else if len(out) == generalTop {
			break
		}
		out = append(out, candidate{idx: i, score: s.entries[i].relevance(qa, n)})
	}
	return out
}
