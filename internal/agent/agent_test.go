package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hession/pokemate/internal/llm"
	"github.com/hession/pokemate/internal/memory"
	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
	"github.com/hession/pokemate/internal/team"
	"github.com/hession/pokemate/internal/tools"
)

// scriptedModel replays canned responses and records every request
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	requests  [][]llm.Message
	toolCount int
	err       error
}

func (m *scriptedModel) Chat(_ context.Context, messages []llm.Message, tools []llm.Tool) (*llm.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, append([]llm.Message(nil), messages...))
	m.toolCount = len(tools)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &llm.ChatResponse{Content: "done"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *scriptedModel) ChatStream(ctx context.Context, messages []llm.Message, tools []llm.Tool, handler llm.StreamHandler) (*llm.ChatResponse, error) {
	resp, err := m.Chat(ctx, messages, tools)
	if err == nil && resp.Content != "" {
		handler(resp.Content)
	}
	return resp, err
}

type noGenerator struct{}

func (noGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("no generator in tests")
}

func toolCall(id, name string, args map[string]any) llm.ToolCall {
	raw, _ := json.Marshal(args)
	return llm.ToolCall{ID: id, Type: "function", Function: llm.FunctionCall{Name: name, Arguments: string(raw)}}
}

func newTestAgent(t *testing.T, model ChatModel, opts ...Option) (*Agent, memory.Store) {
	t.Helper()

	store, err := memory.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := pokeapitest.New(t)
	log := zaptest.NewLogger(t)
	fetcher := pokemon.NewFetcher(catalog.Client(), pokemon.WithLogger(log))
	registry := tools.NewDefaultRegistry(service.New(fetcher, team.NewSynthesizer(noGenerator{}, fetcher), log))

	a, err := New(context.Background(), model, store, registry, nil, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	return a, store
}

func TestChat_PlainAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatResponse{{Content: "Pikachu is an Electric type."}}}
	a, store := newTestAgent(t, model)

	answer, err := a.Chat(context.Background(), "What type is Pikachu?")
	require.NoError(t, err)
	assert.Equal(t, "Pikachu is an Electric type.", answer)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "system", req[0].Role)
	assert.Equal(t, llm.Message{Role: "user", Content: "What type is Pikachu?"}, req[len(req)-1])
	assert.Equal(t, 9, model.toolCount)

	history, err := store.GetMessages(context.Background(), a.SessionID(), 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestChat_ToolLoop(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{
			toolCall("call_1", "get_pokemon_counters", map[string]any{"name": "gengar"}),
			toolCall("call_2", "get_pokemon_info", map[string]any{"name": "missingno"}),
		}},
		{Content: "Use Tyranitar."},
	}}

	var calls []string
	a, store := newTestAgent(t, model, WithToolCallHandler(func(name string, _ map[string]any, _ string, err error) {
		if err != nil {
			name += " (failed)"
		}
		calls = append(calls, name)
	}))

	answer, err := a.Chat(context.Background(), "How do I beat Gengar?")
	require.NoError(t, err)
	assert.Equal(t, "Use Tyranitar.", answer)
	assert.Equal(t, []string{"get_pokemon_counters", "get_pokemon_info (failed)"}, calls)

	require.Len(t, model.requests, 2)
	second := model.requests[1]
	require.Len(t, second, 5) // system, user, assistant tool calls, two tool results

	counters := second[3]
	assert.Equal(t, "tool", counters.Role)
	assert.Equal(t, "call_1", counters.ToolCallID)
	assert.Contains(t, counters.Content, `"success":true`)
	assert.Contains(t, counters.Content, "tyranitar")

	failed := second[4]
	assert.Equal(t, "call_2", failed.ToolCallID)
	assert.Contains(t, failed.Content, `"success":false`)
	assert.Contains(t, failed.Content, "not found")

	history, err := store.GetMessages(context.Background(), a.SessionID(), 20)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.NotEmpty(t, history[1].ToolCalls)
}

func TestChat_BadToolArguments(t *testing.T) {
	model := &scriptedModel{responses: []*llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "c", Type: "function", Function: llm.FunctionCall{Name: "get_pokemon_info", Arguments: "{not json"}}}},
		{Content: "Sorry."},
	}}
	a, _ := newTestAgent(t, model)

	_, err := a.Chat(context.Background(), "info")
	require.NoError(t, err)
	toolMsg := model.requests[1][3]
	assert.Contains(t, toolMsg.Content, "Error: failed to parse tool arguments")
}

func TestChat_HistoryIsReplayed(t *testing.T) {
	model := &scriptedModel{}
	a, _ := newTestAgent(t, model)

	_, err := a.Chat(context.Background(), "first")
	require.NoError(t, err)
	_, err = a.Chat(context.Background(), "second")
	require.NoError(t, err)

	req := model.requests[1]
	require.Len(t, req, 4)
	assert.Equal(t, "first", req[1].Content)
	assert.Equal(t, "done", req[2].Content)
	assert.Equal(t, "second", req[3].Content)
}

func TestChat_LoopExhausted(t *testing.T) {
	responses := make([]*llm.ChatResponse, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, &llm.ChatResponse{ToolCalls: []llm.ToolCall{
			toolCall("c", "get_pokemon_info", map[string]any{"name": "pikachu"}),
		}})
	}
	a, _ := newTestAgent(t, &scriptedModel{responses: responses}, WithMaxToolIterations(3))

	_, err := a.Chat(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrToolLoopExhausted)
}

func TestChat_ModelError(t *testing.T) {
	a, _ := newTestAgent(t, &scriptedModel{err: errors.New("rate limited")})

	_, err := a.Chat(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChat_Streams(t *testing.T) {
	var streamed string
	model := &scriptedModel{responses: []*llm.ChatResponse{{Content: "streamed answer"}}}
	a, _ := newTestAgent(t, model, WithStreamHandler(func(s string) { streamed += s }))

	_, err := a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "streamed answer", streamed)
}

func TestSessions(t *testing.T) {
	a, store := newTestAgent(t, &scriptedModel{})
	ctx := context.Background()
	first := a.SessionID()

	_, err := a.Chat(ctx, "hello")
	require.NoError(t, err)

	require.NoError(t, a.ClearSession(ctx))
	assert.NotEqual(t, first, a.SessionID())
	msgs, err := store.GetMessages(ctx, first, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, a.NewSession(ctx))
	latest := a.SessionID()

	// a new agent resumes the latest session
	resumed, err := New(ctx, &scriptedModel{}, store, tools.NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, latest, resumed.SessionID())
}

func TestTrimHistory(t *testing.T) {
	history := []*memory.Message{
		{Role: "tool", Content: "orphan"},
		{Role: "assistant", Content: "partial"},
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	}
	got := trimHistory(history)
	require.Len(t, got, 2)
	assert.Equal(t, "q", got[0].Content)

	assert.Empty(t, trimHistory([]*memory.Message{{Role: "tool"}}))
}
