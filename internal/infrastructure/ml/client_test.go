package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ResearchPublisher/internal/ports"
)

func TestClientGenerate(t *testing.T) {
	t.Parallel()

	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"text":"generated"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", "key", "local-7b", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	text, err := client.Generate(context.Background(), "hello", ports.GenerationParams{System: "sys", Temperature: ports.Float(0.2), MaxTokens: 64})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "generated" {
		t.Fatalf("text = %q", text)
	}

	want := generateRequest{Model: "local-7b", System: "sys", Prompt: "hello", Temperature: ports.Float(0.2), MaxTokens: 64}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestClientStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", "", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Generate(context.Background(), "x", ports.GenerationParams{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "overloaded" {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("", "", "", 0); err == nil {
		t.Fatalf("expected error")
	}
}
