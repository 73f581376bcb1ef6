package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/selector"
	"github.com/seanblong/contextselect/pkg/models"
)

var ErrNoStore = errors.New("no chunk store configured")

// QuestionAnalyzer turns a question into an analysis. It never fails.
type QuestionAnalyzer interface {
	Analyze(ctx context.Context, question string) models.QuestionAnalysis
}

// ChunkLister reads ordered corpora from persistent storage.
type ChunkLister interface {
	ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}

// Service answers questions with the chunks of the current corpus that fit
// the token budget. Corpus replacement is serialized against selections.
type Service struct {
	Analyzer QuestionAnalyzer
	Selector *selector.Selector
	Store    ChunkLister

	mu     sync.RWMutex
	corpus string
}

// NewService creates a new retrieval service. store may be nil when the
// corpus is always set directly.
func NewService(analyzer QuestionAnalyzer, sel *selector.Selector, store ChunkLister) *Service {
	return &Service{
		Analyzer: analyzer,
		Selector: sel,
		Store:    store,
	}
}

// SetChunks replaces the corpus.
func (s *Service) SetChunks(chunks []models.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Selector.SetChunks(chunks)
	s.corpus = ""
}

// LoadCorpus replaces the corpus with the chunks of documentID from the
// store, or with every stored chunk when documentID is empty. It returns the
// number of chunks loaded.
func (s *Service) LoadCorpus(ctx context.Context, documentID string) (int, error) {
	if s.Store == nil {
		return 0, ErrNoStore
	}
	chunks, err := s.Store.ListChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("load corpus %q: %w", documentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Selector.SetChunks(chunks)
	s.corpus = documentID

	log.Info().Str("document", documentID).Int("chunks", len(chunks)).Msg("corpus loaded")
	return len(chunks), nil
}

// Corpus reports the loaded document id and the corpus size.
func (s *Service) Corpus() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus, s.Selector.Len()
}

// Analyze runs the question analyzer.
func (s *Service) Analyze(ctx context.Context, question string) models.QuestionAnalysis {
	return s.Analyzer.Analyze(ctx, strings.TrimSpace(question))
}

// Select analyzes question unless an analysis is supplied and returns the
// selected chunks. Selections may run concurrently.
func (s *Service) Select(ctx context.Context, question string, analysis *models.QuestionAnalysis) (models.SelectionResult, selector.Stats) {
	question = strings.TrimSpace(question)

	var qa models.QuestionAnalysis
	if analysis != nil {
		qa = *analysis
	} else {
		qa = s.Analyzer.Analyze(ctx, question)
	}

	s.mu.RLock()
	chunks, stats := s.Selector.Select(question, qa)
	budget := s.Selector.Budget()
	s.mu.RUnlock()

	total := stats.TotalTokens
	log.Info().
		Str("category", string(qa.Category)).
		Int("chunks", len(chunks)).
		Int("tokens", total).
		Msg("final chunks selected")

	return models.SelectionResult{
		Question:     question,
		Analysis:     qa,
		Chunks:       chunks,
		TotalTokens:  total,
		BudgetTokens: budget,
	}, stats
}
