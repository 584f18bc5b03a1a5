// Package agent runs the tool-calling chat loop behind the interactive CLI.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/config"
	"github.com/hession/pokemate/internal/llm"
	"github.com/hession/pokemate/internal/memory"
	"github.com/hession/pokemate/internal/tools"
)

const (
	// MaxToolIterations default maximum number of model round trips per user message
	MaxToolIterations = 10
	// defaultContextMessages default number of history messages sent to the model
	defaultContextMessages = 20
)

// ErrToolLoopExhausted the model kept calling tools without answering
var ErrToolLoopExhausted = errors.New("no final answer after the maximum number of tool iterations")

// ChatModel is the chat completion backend
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error)
	ChatStream(ctx context.Context, messages []llm.Message, tools []llm.Tool, handler llm.StreamHandler) (*llm.ChatResponse, error)
}

// Agent chat agent driving the tool registry
type Agent struct {
	model           ChatModel
	memory          memory.Store
	registry        *tools.Registry
	prompts         *config.PromptConfig
	log             *zap.Logger
	sessionID       string
	maxContextMsgs  int
	maxIterations   int
	streamHandler   func(content string)
	toolCallHandler func(name string, args map[string]any, result string, err error)
}

// Option agent configuration option
type Option func(*Agent)

// WithStreamHandler sets the stream output handler
func WithStreamHandler(handler func(content string)) Option {
	return func(a *Agent) {
		a.streamHandler = handler
	}
}

// WithToolCallHandler sets the tool call handler
func WithToolCallHandler(handler func(name string, args map[string]any, result string, err error)) Option {
	return func(a *Agent) {
		a.toolCallHandler = handler
	}
}

// WithMaxContextMessages limits the history sent with each request
func WithMaxContextMessages(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxContextMsgs = n
		}
	}
}

// WithMaxToolIterations limits model round trips per user message
func WithMaxToolIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an agent and resumes the latest session, creating one if needed.
// A nil prompts uses the default prompt configuration.
func New(ctx context.Context, model ChatModel, mem memory.Store, reg *tools.Registry, prompts *config.PromptConfig, opts ...Option) (*Agent, error) {
	if prompts == nil {
		prompts = config.DefaultPromptConfig()
	}

	agent := &Agent{
		model:          model,
		memory:         mem,
		registry:       reg,
		prompts:        prompts,
		log:            zap.NewNop(),
		maxContextMsgs: defaultContextMessages,
		maxIterations:  MaxToolIterations,
	}

	for _, opt := range opts {
		opt(agent)
	}

	if err := agent.initSession(ctx); err != nil {
		return nil, err
	}
	return agent, nil
}

func (a *Agent) initSession(ctx context.Context) error {
	session, err := a.memory.GetLatestSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session != nil {
		a.sessionID = session.ID
		a.log.Info("resumed session", zap.String("session_id", session.ID), zap.Int("messages", session.MessageCount))
		return nil
	}
	return a.NewSession(ctx)
}

// NewSession starts a new session
func (a *Agent) NewSession(ctx context.Context) error {
	sessionID, err := a.memory.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	a.sessionID = sessionID
	a.log.Info("new session", zap.String("session_id", sessionID))
	return nil
}

// ClearSession clears the current session and starts a new one
func (a *Agent) ClearSession(ctx context.Context) error {
	if err := a.memory.ClearSession(ctx, a.sessionID); err != nil {
		return err
	}
	return a.NewSession(ctx)
}

// Chat processes user message and returns response
func (a *Agent) Chat(ctx context.Context, userMessage string) (string, error) {
	messages, err := a.buildMessages(ctx, userMessage)
	if err != nil {
		return "", fmt.Errorf("failed to build messages: %w", err)
	}

	if err := a.save(ctx, &memory.Message{Role: "user", Content: userMessage}); err != nil {
		return "", fmt.Errorf("failed to save user message: %w", err)
	}

	llmTools := a.toolDefinitions()

	for i := 0; i < a.maxIterations; i++ {
		var resp *llm.ChatResponse
		if a.streamHandler != nil {
			resp, err = a.model.ChatStream(ctx, messages, llmTools, a.streamHandler)
		} else {
			resp, err = a.model.Chat(ctx, messages, llmTools)
		}
		if err != nil {
			return "", fmt.Errorf("failed to call LLM: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				if err := a.save(ctx, &memory.Message{Role: "assistant", Content: resp.Content}); err != nil {
					return "", fmt.Errorf("failed to save assistant message: %w", err)
				}
			}
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		toolCallsJSON, _ := json.Marshal(resp.ToolCalls)
		if err := a.save(ctx, &memory.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: string(toolCallsJSON),
		}); err != nil {
			return "", fmt.Errorf("failed to save assistant tool call message: %w", err)
		}

		for _, toolCall := range resp.ToolCalls {
			content := a.runTool(ctx, toolCall)

			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: toolCall.ID,
			})
			if err := a.save(ctx, &memory.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: toolCall.ID,
			}); err != nil {
				return "", fmt.Errorf("failed to save tool message: %w", err)
			}
		}
	}

	a.log.Warn("tool loop exhausted", zap.String("session_id", a.sessionID), zap.Int("iterations", a.maxIterations))
	return "", ErrToolLoopExhausted
}

func (a *Agent) save(ctx context.Context, msg *memory.Message) error {
	return a.memory.SaveMessage(ctx, a.sessionID, msg)
}

func (a *Agent) toolDefinitions() []llm.Tool {
	schemas := a.registry.GetSchemas()
	llmTools := make([]llm.Tool, len(schemas))
	for i, schema := range schemas {
		llmTools[i] = llm.Tool{
			Type: schema.Type,
			Function: llm.ToolFunction{
				Name:        schema.Function.Name,
				Description: schema.Function.Description,
				Parameters:  schema.Function.Parameters,
			},
		}
	}
	return llmTools
}

// runTool executes one tool call and returns the content reported back to the model
func (a *Agent) runTool(ctx context.Context, toolCall llm.ToolCall) string {
	name := toolCall.Function.Name

	var (
		args   map[string]any
		result string
		err    error
	)
	if toolCall.Function.Arguments != "" {
		err = json.Unmarshal([]byte(toolCall.Function.Arguments), &args)
		if err != nil {
			err = fmt.Errorf("failed to parse tool arguments: %w", err)
		}
	}
	if err == nil {
		result, err = a.registry.Execute(ctx, name, args)
	}

	if a.toolCallHandler != nil {
		a.toolCallHandler(name, args, result, err)
	}

	if err != nil {
		a.log.Info("tool call failed", zap.String("tool", name), zap.Error(err))
		if result == "" {
			return fmt.Sprintf("%s: %v", a.prompts.GetErrorPrefix(), err)
		}
	}
	return result
}

// buildMessages assembles system prompt, recent history and the new user message
func (a *Agent) buildMessages(ctx context.Context, userMessage string) ([]llm.Message, error) {
	messages := []llm.Message{
		{Role: "system", Content: a.prompts.GetSystemPrompt()},
	}

	history, err := a.memory.GetMessages(ctx, a.sessionID, a.maxContextMsgs)
	if err != nil {
		return nil, fmt.Errorf("failed to get history messages: %w", err)
	}

	for _, msg := range trimHistory(history) {
		llmMsg := llm.Message{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if msg.ToolCalls != "" {
			var toolCalls []llm.ToolCall
			if err := json.Unmarshal([]byte(msg.ToolCalls), &toolCalls); err == nil {
				llmMsg.ToolCalls = toolCalls
			}
		}
		messages = append(messages, llmMsg)
	}

	return append(messages, llm.Message{Role: "user", Content: userMessage}), nil
}

// trimHistory drops leading messages until the first user message, so a
// window cut never starts with tool results whose call was cut off
func trimHistory(history []*memory.Message) []*memory.Message {
	for i, msg := range history {
		if msg.Role == "user" {
			return history[i:]
		}
	}
	return nil
}

// SessionID returns the current session ID
func (a *Agent) SessionID() string {
	return a.sessionID
}
