package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hession/pokemate/internal/metrics"
)

const (
	DefaultGeminiModel     = "gemini-2.0-flash-001"
	defaultGenerateTimeout = 60 * time.Second
)

// ErrGeneratorUnavailable no generation backend is configured
var ErrGeneratorUnavailable = errors.New("no generation backend configured: set GOOGLE_API_KEY or GROQ_API_KEY")

// GeminiConfig Gemini generator configuration
type GeminiConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	BaseURL    string // overrides the API endpoint, used by tests
	HTTPClient *http.Client
}

// GeminiGenerator produces free-form text with the Gemini API
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewGeminiGenerator creates a Gemini backed generator
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGenerateTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// Generate sends one prompt and returns the response text
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		metrics.GenerationRequests.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text = resp.Text()
	g.log.Debug("gemini generation",
		zap.String("model", g.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)),
		zap.Duration("latency", time.Since(start)))

	// blocked candidates yield empty text; the caller's parser classifies it
	return text, nil
}

// ChatGenerator adapts the chat client to single prompt generation
type ChatGenerator struct {
	client *Client
}

// NewChatGenerator creates a generator over an OpenAI-compatible chat client
func NewChatGenerator(client *Client) *ChatGenerator {
	return &ChatGenerator{client: client}
}

// Generate sends prompt as a single user message
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		metrics.GenerationRequests.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	resp, err := g.client.Chat(ctx, []Message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// UnavailableGenerator fails every request with ErrGeneratorUnavailable
type UnavailableGenerator struct{}

// Generate always fails
func (UnavailableGenerator) Generate(context.Context, string) (string, error) {
	return "", ErrGeneratorUnavailable
}
