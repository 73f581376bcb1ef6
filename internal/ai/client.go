package ai

import (
	"context"
	"errors"
)

// Client generates text from a prompt. It backs the question analyzer.
type Client interface {
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
	Model() string
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderGemini   Provider = "gemini"
	ProviderVertexAI Provider = "vertexai"
	ProviderStub     Provider = "stub"
)

// ErrNoBackend is returned by clients that cannot generate text.
var ErrNoBackend = errors.New("no text generation backend configured")

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	APIKey    string
	Model     string
	ProjectID string
	Provider  Provider
	Location  string
	// BaseURL overrides the OpenAI endpoint; used for compatible servers.
	BaseURL string
}

// NewClient creates a new AI client based on configuration
func NewClient(ctx context.Context, config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config), nil
	case ProviderGemini, ProviderVertexAI:
		return NewGeminiClient(ctx, config)
	case ProviderStub:
		return NewStubClient(), nil
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}
}

// StubClient never reaches a model; callers fall back to their heuristics.
type StubClient struct{}

// NewStubClient creates a new StubClient
func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	return "", ErrNoBackend
}

func (s *StubClient) Model() string { return "stub" }
