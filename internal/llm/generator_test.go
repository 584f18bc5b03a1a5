package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/team"
)

func TestChatGenerator_Generate(t *testing.T) {
	server := chatServer(t, `{"description": "d", "team": []}`, nil)
	defer server.Close()

	gen := NewChatGenerator(New("key", server.URL, "model", 0, 100))
	text, err := gen.Generate(context.Background(), "build a team")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(text, `"team"`) {
		t.Errorf("Unexpected text: %s", text)
	}
}

func TestChatGenerator_PropagatesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewChatGenerator(New("key", server.URL, "model", 0, 100)).Generate(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Errorf("Expected status 503 error, got %v", err)
	}
}

func TestUnavailableGenerator(t *testing.T) {
	_, err := UnavailableGenerator{}.Generate(context.Background(), "x")
	if !errors.Is(err, ErrGeneratorUnavailable) {
		t.Errorf("Expected ErrGeneratorUnavailable, got %v", err)
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	if _, err := NewGeminiGenerator(context.Background(), GeminiConfig{}, nil); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"description\": \"rain\", \"team\": []}"}]}}]}`))
	}))
	defer server.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, nil)
	if err != nil {
		t.Fatalf("NewGeminiGenerator failed: %v", err)
	}
	if gen.model != DefaultGeminiModel {
		t.Errorf("Expected default model, got %s", gen.model)
	}

	text, err := gen.Generate(context.Background(), "rain team")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != `{"description": "rain", "team": []}` {
		t.Errorf("Unexpected text: %s", text)
	}
	if !strings.Contains(gotPath, DefaultGeminiModel+":generateContent") {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
}

func TestGeminiGenerator_EmptyResponseIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": ""}]}, "finishReason": "SAFETY"}]}`))
	}))
	defer server.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, nil)
	if err != nil {
		t.Fatalf("NewGeminiGenerator failed: %v", err)
	}

	text, err := gen.Generate(context.Background(), "rain team")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}

	catalog := pokeapitest.New(t)
	synth := team.NewSynthesizer(gen, pokemon.NewFetcher(catalog.Client()))
	_, err = synth.Synthesize(context.Background(), "rain team")
	if !pokemon.IsGenerationParse(err) {
		t.Errorf("Expected generation parse error, got %v", err)
	}
	if pokemon.IsUpstream(err) {
		t.Errorf("Empty output must not be reported as an upstream failure: %v", err)
	}
}
