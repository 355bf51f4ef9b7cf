package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ResearchPublisher/internal/ports"
)

const chatCompletionReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1731230000,
  "model": "sonar-pro",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "digest text"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func TestOpenAIGeneratorSendsSystemAndUser(t *testing.T) {
	t.Parallel()

	var body struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionReply))
	}))
	defer server.Close()

	gen, err := NewPerplexityGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("NewPerplexityGenerator: %v", err)
	}

	text, err := gen.Generate(context.Background(), "summarize", ports.GenerationParams{System: "be brief", Temperature: ports.Float(0.3), MaxTokens: 500})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "digest text" {
		t.Fatalf("text = %q", text)
	}

	if body.Model != "sonar-pro" || body.MaxTokens != 500 || body.Temperature != 0.3 {
		t.Fatalf("unexpected params: %+v", body)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "summarize" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestOpenAIGeneratorServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}

	_, err = gen.Generate(context.Background(), "x", ports.GenerationParams{})
	retry, status := IsRetryable(err)
	if !retry || status != http.StatusTooManyRequests {
		t.Fatalf("IsRetryable(%v) = %v, %d", err, retry, status)
	}
}

func TestOpenAIGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAIGenerator(OpenAIConfig{}, nil); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestOpenAIGeneratorSendsZeroTemperature(t *testing.T) {
	t.Parallel()

	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionReply))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}

	ctx := context.Background()
	if _, err := gen.Generate(ctx, "x", ports.GenerationParams{Temperature: ports.Float(0)}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := gen.Generate(ctx, "x", ports.GenerationParams{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if temp, ok := bodies[0]["temperature"]; !ok || temp != float64(0) {
		t.Fatalf("explicit zero temperature not sent: %v", bodies[0])
	}
	if _, ok := bodies[1]["temperature"]; ok {
		t.Fatalf("unset temperature must be omitted: %v", bodies[1])
	}
}
