package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/seanblong/contextselect/internal/analyzer"
	"github.com/seanblong/contextselect/internal/selector"
	"github.com/seanblong/contextselect/pkg/models"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockAnalyzer implements QuestionAnalyzer for testing
type MockAnalyzer struct {
	mu          sync.Mutex
	AnalyzeFunc func(ctx context.Context, question string) models.QuestionAnalysis
	Questions   []string
}

func (m *MockAnalyzer) Analyze(ctx context.Context, question string) models.QuestionAnalysis {
	m.mu.Lock()
	m.Questions = append(m.Questions, question)
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, question)
	}
	return analyzer.Fallback(question)
}

// MockChunkLister implements ChunkLister for testing
type MockChunkLister struct {
	ListChunksFunc func(ctx context.Context, documentID string) ([]models.Chunk, error)
}

func (m *MockChunkLister) ListChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	if m.ListChunksFunc != nil {
		return m.ListChunksFunc(ctx, documentID)
	}
	return []models.Chunk{}, nil
}

func corpus(doc string, n int) []models.Chunk {
	out := make([]models.Chunk, n)
	for i := range out {
		out[i] = models.Chunk{
			ID:         fmt.Sprintf("%s-%d", doc, i),
			DocumentID: doc,
			Content:    strings.Repeat(fmt.Sprintf("제%d조 금연구역 지정 절차와 관리 기준을 정한다. ", i+1), 3),
			Metadata:   models.ChunkMetadata{ChunkIndex: i},
		}
	}
	return out
}

func TestService_Select(t *testing.T) {
	question := "  금연구역 지정 절차가 어떻게 되나요? "
	supplied := &models.QuestionAnalysis{
		Keywords:   []string{"금연구역"},
		Category:   models.CategoryRegulation,
		Complexity: models.ComplexitySimple,
	}

	tests := []struct {
		name          string
		analysis      *models.QuestionAnalysis
		chunks        []models.Chunk
		wantAnalyzed  bool
		wantCategory  models.Category
		wantNonEmpty  bool
	}{
		{
			name:         "analyzes when no analysis given",
			chunks:       corpus("guide", 5),
			wantAnalyzed: true,
			wantCategory: models.CategoryProcedure,
			wantNonEmpty: true,
		},
		{
			name:         "uses supplied analysis",
			analysis:     supplied,
			chunks:       corpus("guide", 5),
			wantCategory: models.CategoryRegulation,
			wantNonEmpty: true,
		},
		{
			name:         "empty corpus",
			analysis:     supplied,
			wantCategory: models.CategoryRegulation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &MockAnalyzer{}
			svc := NewService(a, selector.New(selector.WithTokenBudget(5000)), nil)
			svc.SetChunks(tt.chunks)

			res, stats := svc.Select(context.Background(), question, tt.analysis)

			if got := len(a.Questions) == 1; got != tt.wantAnalyzed {
				t.Errorf("Expected analyzed=%v, got questions %v", tt.wantAnalyzed, a.Questions)
			}
			if tt.wantAnalyzed && a.Questions[0] != strings.TrimSpace(question) {
				t.Errorf("Expected trimmed question, got %q", a.Questions[0])
			}
			if res.Question != strings.TrimSpace(question) {
				t.Errorf("Expected trimmed question in result, got %q", res.Question)
			}
			if res.Analysis.Category != tt.wantCategory {
				t.Errorf("Expected category %s, got %s", tt.wantCategory, res.Analysis.Category)
			}
			if (len(res.Chunks) > 0) != tt.wantNonEmpty {
				t.Errorf("Expected non-empty=%v, got %d chunks", tt.wantNonEmpty, len(res.Chunks))
			}
			if res.BudgetTokens != 5000 {
				t.Errorf("Expected budget 5000, got %d", res.BudgetTokens)
			}
			if res.TotalTokens != selector.TotalTokens(res.Chunks) {
				t.Errorf("Expected total %d, got %d", selector.TotalTokens(res.Chunks), res.TotalTokens)
			}
			if stats.Selected != len(res.Chunks) {
				t.Errorf("Expected stats to count %d selected, got %d", len(res.Chunks), stats.Selected)
			}
			if res.Chunks == nil {
				t.Error("Expected non-nil chunk slice")
			}
		})
	}
}

func TestService_LoadCorpus(t *testing.T) {
	tests := []struct {
		name        string
		store       ChunkLister
		documentID  string
		wantCount   int
		wantErr     error
		wantErrText string
	}{
		{
			name: "loads document",
			store: &MockChunkLister{ListChunksFunc: func(ctx context.Context, documentID string) ([]models.Chunk, error) {
				if documentID != "guide" {
					return nil, fmt.Errorf("unexpected document %s", documentID)
				}
				return corpus("guide", 4), nil
			}},
			documentID: "guide",
			wantCount:  4,
		},
		{
			name: "store error",
			store: &MockChunkLister{ListChunksFunc: func(ctx context.Context, documentID string) ([]models.Chunk, error) {
				return nil, errors.New("connection refused")
			}},
			documentID:  "guide",
			wantErrText: "connection refused",
		},
		{
			name:    "no store",
			wantErr: ErrNoStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&MockAnalyzer{}, selector.New(), tt.store)
			svc.SetChunks(corpus("old", 2))

			n, err := svc.LoadCorpus(context.Background(), tt.documentID)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantErrText != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErrText) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErrText, err)
				}
			default:
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			}

			doc, size := svc.Corpus()
			if tt.wantErr != nil || tt.wantErrText != "" {
				if size != 2 || doc != "" {
					t.Errorf("Expected old corpus kept, got %q/%d", doc, size)
				}
				return
			}
			if n != tt.wantCount || size != tt.wantCount || doc != tt.documentID {
				t.Errorf("Expected %s/%d, got %s/%d (n=%d)", tt.documentID, tt.wantCount, doc, size, n)
			}
		})
	}
}

func TestService_ConcurrentSelectAndReplace(t *testing.T) {
	svc := NewService(&MockAnalyzer{}, selector.New(), nil)
	svc.SetChunks(corpus("a", 20))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if i%4 == 0 {
					svc.SetChunks(corpus(fmt.Sprintf("doc%d", j), 10+j))
					continue
				}
				res, _ := svc.Select(context.Background(), "금연구역 지정 절차", nil)
				seen := map[string]bool{}
				for _, c := range res.Chunks {
					if seen[c.ID] {
						t.Errorf("duplicate id %s", c.ID)
					}
					seen[c.ID] = true
				}
			}
		}(i)
	}
	wg.Wait()
}
