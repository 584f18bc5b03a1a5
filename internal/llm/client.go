package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultChatTimeout = 120 * time.Second

// Client OpenAI-compatible chat completion client
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	log         *zap.Logger
}

// Message message structure
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall tool call structure
type ToolCall struct {
	Index    int          `json:"index,omitempty"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall function call details
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse chat response
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// StreamHandler stream response handler
type StreamHandler func(content string)

// Tool tool definition (for Function Calling)
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction tool function definition
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

// ClientOption client configuration option
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientLogger sets the client logger
func WithClientLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a new chat client
func New(apiKey, baseURL, model string, temperature float64, maxTokens int, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: defaultChatTimeout},
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Chat sends a chat request
func (c *Client) Chat(ctx context.Context, messages []Message, tools []Tool) (*ChatResponse, error) {
	return c.chat(ctx, messages, tools, false, nil)
}

// ChatStream sends a streaming chat request
func (c *Client) ChatStream(ctx context.Context, messages []Message, tools []Tool, handler StreamHandler) (*ChatResponse, error) {
	return c.chat(ctx, messages, tools, true, handler)
}

func (c *Client) chat(ctx context.Context, messages []Message, tools []Tool, stream bool, handler StreamHandler) (*ChatResponse, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
		zap.Bool("stream", stream),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned error (status %d): %s", resp.StatusCode, string(body))
	}

	if stream {
		return c.handleStreamResponse(resp.Body, handler)
	}
	return c.handleResponse(resp.Body)
}

func (c *Client) handleResponse(body io.Reader) (*ChatResponse, error) {
	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API returned empty response")
	}

	first := resp.Choices[0]
	return &ChatResponse{
		Content:   first.Message.Content,
		ToolCalls: first.Message.ToolCalls,
	}, nil
}

// handleStreamResponse reads SSE chunks. Tool call fragments are merged by their index.
func (c *Client) handleStreamResponse(body io.Reader, handler StreamHandler) (*ChatResponse, error) {
	reader := bufio.NewReader(body)
	var fullContent strings.Builder
	merged := make(map[int]*ToolCall)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read streaming response: %w", err)
		}

		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			if data == "[DONE]" {
				break
			}
			c.applyChunk(data, &fullContent, merged, handler)
		}

		if err == io.EOF {
			break
		}
	}

	indexes := make([]int, 0, len(merged))
	for idx := range merged {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	var toolCalls []ToolCall
	for _, idx := range indexes {
		toolCalls = append(toolCalls, *merged[idx])
	}

	return &ChatResponse{
		Content:   fullContent.String(),
		ToolCalls: toolCalls,
	}, nil
}

func (c *Client) applyChunk(data string, content *strings.Builder, merged map[int]*ToolCall, handler StreamHandler) {
	var resp chatResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.log.Debug("skipping malformed stream chunk", zap.Error(err))
		return
	}
	if len(resp.Choices) == 0 {
		return
	}

	delta := resp.Choices[0].Delta
	if delta.Content != "" {
		content.WriteString(delta.Content)
		if handler != nil {
			handler(delta.Content)
		}
	}

	for _, tc := range delta.ToolCalls {
		if existing, ok := merged[tc.Index]; ok {
			existing.Function.Arguments += tc.Function.Arguments
			if existing.ID == "" {
				existing.ID = tc.ID
			}
			if existing.Function.Name == "" {
				existing.Function.Name = tc.Function.Name
			}
			continue
		}
		call := tc
		if call.Type == "" {
			call.Type = "function"
		}
		merged[tc.Index] = &call
	}
}
