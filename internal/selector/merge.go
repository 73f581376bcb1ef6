package selector

import (
	"sort"
	"strings"

	"github.com/seanblong/contextselect/pkg/models"
)

const (
	mergeTop         = 100
	minWordOverlap   = 0.05
	minCompleteness  = 0.3
	duplicatePrefix  = 50
	overflowFraction = 0.1
)

type merged struct {
	idx     int
	total   float64
	sources int
}

func (m merged) rank() float64 {
	return m.total * (1 + float64(m.sources)*0.1)
}

// mergeAndRank unions the stage lists by chunk id, summing scores and
// counting how many lists contained each chunk.
func (s *Selector) mergeAndRank(lists [][]candidate) []merged {
	pos := make(map[string]int)
	var out []merged
	for _, list := range lists {
		for _, c := range list {
			id := s.entries[c.idx].chunk.ID
			if i, ok := pos[id]; ok {
				out[i].total += c.score
				out[i].sources++
				continue
			}
			pos[id] = len(out)
			out = append(out, merged{idx: c.idx, total: c.score, sources: 1})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].rank() > out[b].rank() })
	if len(out) > mergeTop {
		out = out[:mergeTop]
	}
	return out
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// validate drops weakly related and fragmentary chunks, then near duplicates.
// Duplicates are checked from the lowest rank up so the better ranked copy
// survives.
func (s *Selector) validate(ranked []merged, question string) []merged {
	var kept []merged
	for _, m := range ranked {
		e := &s.entries[m.idx]
		if wordOverlap(e.lower, question) < minWordOverlap {
			continue
		}
		if completeness(e.chunk.Content, e.length) < minCompleteness {
			continue
		}
		kept = append(kept, m)
	}

	dropped := make([]bool, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		prefix := prefixRunes(s.entries[kept[i].idx].lower, duplicatePrefix)
		for j := range kept {
			if j == i || dropped[j] {
				continue
			}
			if strings.Contains(s.entries[kept[j].idx].lower, prefix) {
				dropped[i] = true
				break
			}
		}
	}

	out := kept[:0]
	for i, m := range kept {
		if !dropped[i] {
			out = append(out, m)
		}
	}
	return out
}

// fitBudget accepts chunks in rank order while they fit. The first chunk that
// does not fit is still taken when it is small, and selection stops there.
func (s *Selector) fitBudget(valid []merged, qa models.QuestionAnalysis) ([]models.Chunk, int) {
	n := len(s.entries)
	out := make([]models.Chunk, 0, len(valid))
	total := 0
	for _, m := range valid {
		e := &s.entries[m.idx]
		cost := EstimateTokens(e.chunk.Content)
		fits := total+cost <= s.budget
		if !fits && float64(cost) > float64(s.budget)*overflowFraction {
			break
		}

		c := e.chunk
		c.RelevanceScore = e.relevance(qa, n)
		out = append(out, c)
		total += cost

		if !fits {
			break
		}
	}
	return out, total
}
