package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockTransport implements http.RoundTripper for testing
type MockTransport struct {
	mu             sync.RWMutex
	responses      map[string]int
	responseBodies map[string]string
	requests       []*http.Request
	payloads       []map[string]any
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses:      make(map[string]int),
		responseBodies: make(map[string]string),
	}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if req.Body != nil {
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err == nil {
			m.payloads = append(m.payloads, payload)
		}
	}

	key := fmt.Sprintf("%s %s", req.Method, req.URL.String())
	if status, exists := m.responses[key]; exists {
		return &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Body:       io.NopCloser(strings.NewReader(m.responseBodies[key])),
			Header:     make(http.Header),
		}, nil
	}

	return &http.Response{
		StatusCode: 500,
		Status:     "500 Internal Server Error",
		Body:       io.NopCloser(strings.NewReader(`{"error": {"message": "Mock not configured"}}`)),
		Header:     make(http.Header),
	}, nil
}

func (m *MockTransport) AddResponse(method, url string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s %s", method, url)
	m.responses[key] = statusCode
	m.responseBodies[key] = body
}

func (m *MockTransport) GetRequests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requests := make([]*http.Request, len(m.requests))
	copy(requests, m.requests)
	return requests
}

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name          string
		config        *ClientConfig
		expectedModel string
		expectedURL   string
	}{
		{
			name:          "with model specified",
			config:        &ClientConfig{APIKey: "test-key", Model: "gpt-4.1"},
			expectedModel: "gpt-4.1",
			expectedURL:   defaultOpenAIBaseURL,
		},
		{
			name:          "with default model",
			config:        &ClientConfig{APIKey: "test-key"},
			expectedModel: "gpt-4o-mini",
			expectedURL:   defaultOpenAIBaseURL,
		},
		{
			name:          "with custom base URL",
			config:        &ClientConfig{APIKey: "test-key", BaseURL: "http://localhost:8081/v1"},
			expectedModel: "gpt-4o-mini",
			expectedURL:   "http://localhost:8081/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOpenAIClient(tt.config)

			if client.Model() != tt.expectedModel {
				t.Errorf("Expected model '%s', got '%s'", tt.expectedModel, client.Model())
			}
			if client.config.BaseURL != tt.expectedURL {
				t.Errorf("Expected base URL '%s', got '%s'", tt.expectedURL, client.config.BaseURL)
			}
			if client.http == nil {
				t.Fatal("Expected HTTP client to be initialized")
			}
			if client.http.Timeout != 20*time.Second {
				t.Errorf("Expected timeout 20s, got %v", client.http.Timeout)
			}
		})
	}
}

func TestOpenAIClient_Generate(t *testing.T) {
	const url = "https://api.openai.com/v1/chat/completions"

	tests := []struct {
		name         string
		apiKey       string
		statusCode   int
		responseBody string
		expectError  bool
		errorMsg     string
		expected     string
	}{
		{
			name:        "missing API key",
			apiKey:      "",
			expectError: true,
			errorMsg:    "PROVIDER_API_KEY unset",
		},
		{
			name:         "successful completion",
			apiKey:       "test-key",
			statusCode:   200,
			responseBody: `{"choices": [{"message": {"content": "  {\"category\": \"definition\"}\n"}}]}`,
			expected:     `{"category": "definition"}`,
		},
		{
			name:         "error message from body",
			apiKey:       "test-key",
			statusCode:   429,
			responseBody: `{"error": {"message": "Rate limit exceeded"}}`,
			expectError:  true,
			errorMsg:     "Rate limit exceeded",
		},
		{
			name:         "error without message",
			apiKey:       "test-key",
			statusCode:   502,
			responseBody: `upstream down`,
			expectError:  true,
			errorMsg:     "502",
		},
		{
			name:         "no choices",
			apiKey:       "test-key",
			statusCode:   200,
			responseBody: `{"choices": []}`,
			expectError:  true,
			errorMsg:     "no choices",
		},
		{
			name:         "invalid JSON response",
			apiKey:       "test-key",
			statusCode:   200,
			responseBody: `not json`,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := NewMockTransport()
			if tt.statusCode != 0 {
				transport.AddResponse("POST", url, tt.statusCode, tt.responseBody)
			}

			client := NewOpenAIClient(&ClientConfig{APIKey: tt.apiKey})
			client.http = &http.Client{Transport: transport}

			got, err := client.Generate(context.Background(), "system", "prompt")

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				if got != tt.expected {
					t.Errorf("Expected '%s', got '%s'", tt.expected, got)
				}
			}

			if tt.apiKey != "" {
				requests := transport.GetRequests()
				if len(requests) != 1 {
					t.Fatalf("Expected 1 request, got %d", len(requests))
				}
				req := requests[0]
				if req.Header.Get("Authorization") != "Bearer "+tt.apiKey {
					t.Errorf("Unexpected Authorization header '%s'", req.Header.Get("Authorization"))
				}
				if req.Header.Get("Content-Type") != "application/json" {
					t.Error("Expected Content-Type header to be application/json")
				}
			}
		})
	}
}

func TestOpenAIClient_GeneratePayload(t *testing.T) {
	transport := NewMockTransport()
	transport.AddResponse("POST", "https://api.openai.com/v1/chat/completions", 200,
		`{"choices": [{"message": {"content": "{}"}}]}`)

	client := NewOpenAIClient(&ClientConfig{APIKey: "k", Model: "gpt-4o-mini"})
	client.http = &http.Client{Transport: transport}

	if _, err := client.Generate(context.Background(), "be helpful", "analyze this"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(transport.payloads) != 1 {
		t.Fatalf("Expected 1 payload, got %d", len(transport.payloads))
	}
	payload := transport.payloads[0]
	if payload["model"] != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %v", payload["model"])
	}
	messages, ok := payload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %v", payload["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be helpful" {
		t.Errorf("Unexpected system message: %v", first)
	}
	second := messages[1].(map[string]any)
	if second["role"] != "user" || second["content"] != "analyze this" {
		t.Errorf("Unexpected user message: %v", second)
	}
}

func TestOpenAIClient_ProjectHeader(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		projectID string
		expected  string
	}{
		{"project key with project", "sk-proj-abc", "proj-1", "proj-1"},
		{"project key without project", "sk-proj-abc", "", ""},
		{"regular key with project", "sk-abc", "proj-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOpenAIClient(&ClientConfig{APIKey: tt.apiKey, ProjectID: tt.projectID})
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			client.setHeaders(req)
			if got := req.Header.Get("OpenAI-Project"); got != tt.expected {
				t.Errorf("Expected OpenAI-Project '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestOpenAIClient_BaseURLServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(&ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	got, err := client.Generate(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected 'ok', got '%s'", got)
	}
}
