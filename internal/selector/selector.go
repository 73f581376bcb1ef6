// Package selector picks the chunks of a corpus that best answer a question
// and fit inside a token budget.
package selector

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/vector"
	"github.com/seanblong/contextselect/pkg/models"
)

// DefaultTokenBudget is used when no budget option is given.
const DefaultTokenBudget = 100000

// Stats counts the candidates each stage produced in the last selection.
type Stats struct {
	Exact       int `json:"exact"`
	Synonym     int `json:"synonym"`
	Semantic    int `json:"semantic"`
	Expanded    int `json:"expanded"`
	Category    int `json:"category"`
	Merged      int `json:"merged"`
	Validated   int `json:"validated"`
	Selected    int `json:"selected"`
	TotalTokens int `json:"totalTokens"`
}

type posKey struct {
	documentID string
	chunkIndex int
}

// Selector holds a corpus and picks context for questions against it.
type Selector struct {
	entries []entry
	byPos   map[posKey]int
	budget  int
	last    atomic.Pointer[Stats]
}

// Option configures a Selector.
type Option func(*Selector)

// WithTokenBudget sets the token budget. Non-positive values are ignored.
func WithTokenBudget(tokens int) Option {
	return func(s *Selector) {
		if tokens > 0 {
			s.budget = tokens
		}
	}
}

// New returns an empty Selector with the default token budget.
func New(opts ...Option) *Selector {
	s := &Selector{budget: DefaultTokenBudget}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetChunks replaces the corpus. The slice order is the document order used
// by every stage. Chunk ids are made unique: a repeated id is replaced with
// the chunk's document position, and the chunk is dropped when that is taken
// too. It is not safe to call concurrently with a selection.
func (s *Selector) SetChunks(chunks []models.Chunk) {
	entries := make([]entry, 0, len(chunks))
	byPos := make(map[posKey]int, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			alt := fmt.Sprintf("%s#%d", c.DocumentID, c.Metadata.ChunkIndex)
			if _, taken := seen[alt]; taken {
				log.Warn().Str("id", c.ID).Str("document", c.DocumentID).Msg("dropping chunk with duplicate id")
				continue
			}
			log.Warn().Str("id", c.ID).Str("replacement", alt).Msg("duplicate chunk id replaced")
			c.ID = alt
		}
		seen[c.ID] = struct{}{}

		e := newEntry(c)
		if len(c.Vector) == vector.Dim {
			e.vec = c.Vector
		} else {
			e.vec = vector.Vectorize(c.Content)
		}

		k := posKey{c.DocumentID, c.Metadata.ChunkIndex}
		if _, ok := byPos[k]; !ok {
			byPos[k] = len(entries)
		}
		entries = append(entries, e)
	}
	s.entries = entries
	s.byPos = byPos
}

// Len reports the number of chunks in the corpus.
func (s *Selector) Len() int { return len(s.entries) }

// Budget reports the token budget of a selection.
func (s *Selector) Budget() int { return s.budget }

// Stats returns the stage counts of the most recent selection.
func (s *Selector) Stats() Stats {
	if st := s.last.Load(); st != nil {
		return *st
	}
	return Stats{}
}

// SelectRelevantContext runs every retrieval stage, merges and validates the
// candidates and returns them in rank order, trimmed to the token budget.
// Each returned chunk carries its relevance score for analysis.
func (s *Selector) SelectRelevantContext(question string, analysis models.QuestionAnalysis) []models.Chunk {
	out, _ := s.Select(question, analysis)
	return out
}

// Select is SelectRelevantContext that also returns the stage counts of
// this selection. Concurrent calls are safe as long as SetChunks is not
// called at the same time.
func (s *Selector) Select(question string, analysis models.QuestionAnalysis) ([]models.Chunk, Stats) {
	var st Stats
	if len(s.entries) == 0 {
		s.last.Store(&st)
		return []models.Chunk{}, st
	}

	exact := s.exactMatches(analysis)
	st.Exact = len(exact)

	syn := s.synonymMatches(question, analysis)
	st.Synonym = len(syn)

	sem := s.semanticMatches(question, analysis)
	st.Semantic = len(sem)

	expanded := s.expandRelated(exact, analysis)
	st.Expanded = len(expanded)

	typed := s.categoryMatches(analysis)
	st.Category = len(typed)

	merged := s.mergeAndRank([][]candidate{exact, syn, sem, expanded, typed})
	st.Merged = len(merged)

	valid := s.validate(merged, question)
	st.Validated = len(valid)

	out, total := s.fitBudget(valid, analysis)
	st.Selected = len(out)
	st.TotalTokens = total

	saved := st
	s.last.Store(&saved)

	log.Debug().
		Int("exact", st.Exact).
		Int("synonym", st.Synonym).
		Int("semantic", st.Semantic).
		Int("expanded", st.Expanded).
		Int("category", st.Category).
		Int("merged", st.Merged).
		Int("validated", st.Validated).
		Int("selected", st.Selected).
		Int("tokens", st.TotalTokens).
		Msg("context selection complete")

	return out, st
}
