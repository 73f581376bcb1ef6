package models

import "time"

// Category is the kind of question being asked.
type Category string

const (
	CategoryDefinition Category = "definition"
	CategoryProcedure  Category = "procedure"
	CategoryRegulation Category = "regulation"
	CategoryComparison Category = "comparison"
	CategoryAnalysis   Category = "analysis"
	CategoryGeneral    Category = "general"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDefinition, CategoryProcedure, CategoryRegulation,
		CategoryComparison, CategoryAnalysis, CategoryGeneral:
		return true
	}
	return false
}

// Complexity is a coarse estimate of how involved a question is.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Valid reports whether c is one of the known complexity levels.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

type ChunkMetadata struct {
	ChunkIndex    int    `json:"chunkIndex"`
	Source        string `json:"source,omitempty"`
	StartPosition int    `json:"startPosition,omitempty"`
	EndPosition   int    `json:"endPosition,omitempty"`
}

// ChunkLocation places a chunk inside its source document. An empty Section
// means the chunker could not attribute the chunk to a section.
type ChunkLocation struct {
	Section string `json:"section,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// Chunk is a piece of a pre-chunked document. Chunks are produced by the
// external PDF pipeline and treated as read-only here.
type Chunk struct {
	ID             string        `json:"id"`
	DocumentID     string        `json:"documentId,omitempty"`
	Content        string        `json:"content"`
	Metadata       ChunkMetadata `json:"metadata"`
	Location       ChunkLocation `json:"location"`
	RelevanceScore float64       `json:"relevanceScore"`
	// CreatedAt is set for chunks read from the store.
	CreatedAt *time.Time `json:"createdAt,omitempty"`

	// Vector is the precomputed term vector, if the store had one.
	Vector []float32 `json:"-"`
}

// QuestionAnalysis describes what a question is about.
type QuestionAnalysis struct {
	Intent     string     `json:"intent"`
	Keywords   []string   `json:"keywords"`
	Category   Category   `json:"category"`
	Complexity Complexity `json:"complexity"`
	Entities   []string   `json:"entities"`
	Context    string     `json:"context"`
}

// SelectionResult is the outcome of one retrieval request.
type SelectionResult struct {
	Question     string           `json:"question"`
	Analysis     QuestionAnalysis `json:"analysis"`
	Chunks       []Chunk          `json:"chunks"`
	TotalTokens  int              `json:"totalTokens"`
	BudgetTokens int              `json:"budgetTokens"`
}
