package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
	"github.com/hession/pokemate/internal/team"
	"github.com/hession/pokemate/internal/tools"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()

	catalog := pokeapitest.New(t)
	log := zaptest.NewLogger(t)
	gen := generatorFunc(func(context.Context, string) (string, error) {
		return `{"team": [{"name": "Gengar", "role": "Sweeper"}]}`, nil
	})
	fetcher := pokemon.NewFetcher(catalog.Client(), pokemon.WithLogger(log))
	synth := team.NewSynthesizer(gen, fetcher, team.WithLogger(log))
	return tools.NewDefaultRegistry(service.New(fetcher, synth, log))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestDefinition(t *testing.T) {
	registry := newRegistry(t)

	tool, ok := registry.Get("get_team_analysis")
	require.True(t, ok)

	def := Definition(tool)
	assert.Equal(t, "get_team_analysis", def.Name)
	assert.Equal(t, tool.Description(), def.Description)
	assert.Equal(t, []string{"team_members"}, def.InputSchema.Required)

	prop, ok := def.InputSchema.Properties["team_members"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", prop["type"])
	assert.Equal(t, map[string]any{"type": "string"}, prop["items"])

	matchup, _ := registry.Get("analyze_pokemon_matchup")
	def = Definition(matchup)
	assert.ElementsMatch(t, []string{"pokemon1", "pokemon2"}, def.InputSchema.Required)
	assert.Contains(t, def.InputSchema.Properties, "battle_format")
}

func TestHandler_Success(t *testing.T) {
	registry := newRegistry(t)
	handle := Handler(registry, "get_pokemon_counters", zaptest.NewLogger(t))

	res, err := handle(context.Background(), callRequest("get_pokemon_counters", map[string]any{"name": "pikachu"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var env struct {
		Result  pokemon.CounterResult `json:"result"`
		Success bool                  `json:"success"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &env))
	assert.True(t, env.Success)
	assert.Equal(t, []string{"garchomp", "excadrill"}, env.Result.RecommendedCounters)
}

func TestHandler_FailureIsToolError(t *testing.T) {
	registry := newRegistry(t)
	handle := Handler(registry, "compare_pokemon", zaptest.NewLogger(t))

	res, err := handle(context.Background(), callRequest("compare_pokemon", map[string]any{"pokemon1": "pikachu"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error": "Both 'pokemon1' and 'pokemon2' are required.", "success": false}`, resultText(t, res))
}

func TestHandler_UnknownTool(t *testing.T) {
	handle := Handler(tools.NewRegistry(), "nope", zaptest.NewLogger(t))

	res, err := handle(context.Background(), callRequest("nope", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "tool not found")
}

func TestNew_ListsEveryTool(t *testing.T) {
	registry := newRegistry(t)
	s := New(registry, "test", zaptest.NewLogger(t))

	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.Len(t, names, len(registry.List()))
	assert.Contains(t, names, "health_check")
	assert.Contains(t, names, "get_competitive_analysis")
}
