package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestChunkJSON(t *testing.T) {
	tests := []struct {
		name    string
		chunk   Chunk
		want    []string
		notWant []string
	}{
		{
			name:    "zero score is still reported",
			chunk:   Chunk{ID: "c0", Content: "어떻게 하나"},
			want:    []string{`"relevanceScore":0`},
			notWant: []string{"createdAt", "0001-01-01"},
		},
		{
			name: "stored chunk carries its timestamp",
			chunk: func() Chunk {
				ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
				return Chunk{ID: "c1", RelevanceScore: 1.5, CreatedAt: &ts}
			}(),
			want: []string{`"relevanceScore":1.5`, `"createdAt":"2024-03-01T09:00:00Z"`},
		},
		{
			name:    "vector stays internal",
			chunk:   Chunk{ID: "c2", Vector: []float32{0.5}},
			notWant: []string{"vector", "Vector"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.chunk)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			got := string(b)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Expected %s in %s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("Did not expect %s in %s", w, got)
				}
			}
		})
	}
}

func TestCategoryAndComplexityValid(t *testing.T) {
	for _, c := range []Category{CategoryDefinition, CategoryProcedure, CategoryRegulation, CategoryComparison, CategoryAnalysis, CategoryGeneral} {
		if !c.Valid() {
			t.Errorf("Expected %q to be valid", c)
		}
	}
	if Category("howto").Valid() {
		t.Error("Expected unknown category to be invalid")
	}
	if !ComplexityMedium.Valid() || Complexity("extreme").Valid() {
		t.Error("Unexpected complexity validity")
	}
}
