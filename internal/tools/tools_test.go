package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
	"github.com/hession/pokemate/internal/team"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func newTestRegistry(t *testing.T) (*Registry, *pokeapitest.Server) {
	t.Helper()

	catalog := pokeapitest.New(t)
	gen := generatorFunc(func(context.Context, string) (string, error) {
		return `{"description": "Storm.", "team": [{"name": "Pikachu", "role": "Lead"}]}`, nil
	})
	log := zaptest.NewLogger(t)
	fetcher := pokemon.NewFetcher(catalog.Client(), pokemon.WithLogger(log))
	synth := team.NewSynthesizer(gen, fetcher, team.WithLogger(log))
	return NewDefaultRegistry(service.New(fetcher, synth, log)), catalog
}

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func decode(t *testing.T, raw string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

type stubTool struct{ name string }

func (s stubTool) Name() string               { return s.name }
func (s stubTool) Description() string        { return "stub" }
func (s stubTool) Parameters() []ParameterDef { return nil }
func (s stubTool) Execute(context.Context, map[string]any) (string, error) {
	return "{}", nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(stubTool{name: "b"}))
	require.NoError(t, registry.Register(stubTool{name: "a"}))
	assert.Error(t, registry.Register(stubTool{name: "a"}), "duplicate registration")

	got, ok := registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name())

	_, err := registry.Execute(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestDefaultRegistry_Schemas(t *testing.T) {
	registry, _ := newTestRegistry(t)

	names := make([]string, 0)
	for _, schema := range registry.GetSchemas() {
		assert.Equal(t, "function", schema.Type)
		names = append(names, schema.Function.Name)
	}
	assert.Equal(t, []string{
		"analyze_pokemon_matchup",
		"bulk_pokemon_lookup",
		"compare_pokemon",
		"generate_pokemon_team",
		"get_competitive_analysis",
		"get_pokemon_counters",
		"get_pokemon_info",
		"get_team_analysis",
		"health_check",
	}, names)
}

func TestBuildParameterSchema(t *testing.T) {
	schema := BuildParameterSchema([]ParameterDef{
		{Name: "names", Type: "array", Description: "list", Required: true},
		{Name: "format", Type: "string", Description: "optional"},
	})

	props := schema["properties"].(map[string]any)
	names := props["names"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, names["items"])
	assert.NotContains(t, props["format"], "items")
	assert.Equal(t, []string{"names"}, schema["required"])

	empty := BuildParameterSchema(nil)
	assert.NotContains(t, empty, "required")
}

func TestPokemonInfoTool(t *testing.T) {
	registry, _ := newTestRegistry(t)

	raw, err := registry.Execute(context.Background(), "get_pokemon_info", map[string]any{"name": "Pikachu"})
	require.NoError(t, err)

	env := decode(t, raw)
	assert.True(t, env.Success)
	var entity pokemon.Entity
	require.NoError(t, json.Unmarshal(env.Result, &entity))
	assert.Equal(t, "pikachu", entity.Name)
	assert.Equal(t, 25, entity.ID)
}

func TestPokemonInfoTool_MissingName(t *testing.T) {
	registry, catalog := newTestRegistry(t)

	raw, err := registry.Execute(context.Background(), "get_pokemon_info", nil)
	require.Error(t, err)
	assert.True(t, pokemon.IsInvalidInput(err))

	env := decode(t, raw)
	assert.False(t, env.Success)
	assert.Equal(t, "Missing 'name'", env.Error)
	assert.Empty(t, env.Result)
	assert.Equal(t, 0, catalog.RequestCount("/"))
}

func TestComparePokemonTool(t *testing.T) {
	registry, _ := newTestRegistry(t)

	raw, err := registry.Execute(context.Background(), "compare_pokemon", map[string]any{
		"pokemon1": "pikachu",
		"pokemon2": "charizard",
	})
	require.NoError(t, err)

	var cmp map[string]any
	require.NoError(t, json.Unmarshal(decode(t, raw).Result, &cmp))
	assert.Equal(t, "pikachu", cmp["pokemon_1"])
	assert.Equal(t, "charizard", cmp["pokemon_2"])
}

func TestBulkLookupTool_AcceptsDecodedArrays(t *testing.T) {
	registry, _ := newTestRegistry(t)

	raw, err := registry.Execute(context.Background(), "bulk_pokemon_lookup", map[string]any{
		"names": []any{"pikachu", "missingno"},
	})
	require.NoError(t, err)

	var entries []service.BulkEntry
	require.NoError(t, json.Unmarshal(decode(t, raw).Result, &entries))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Success)
	assert.False(t, entries[1].Success)
}

func TestTeamAnalysisTool_RejectsNonStrings(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Execute(context.Background(), "get_team_analysis", map[string]any{
		"team_members": []any{"pikachu", 7},
	})
	assert.True(t, pokemon.IsInvalidInput(err))
}

func TestHealthCheckTool_KeepsReportOnFailure(t *testing.T) {
	registry, catalog := newTestRegistry(t)
	catalog.Fail("/pokemon/pikachu", http.StatusInternalServerError)

	raw, err := registry.Execute(context.Background(), "health_check", nil)
	require.Error(t, err)

	env := decode(t, raw)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
	assert.JSONEq(t, `{"status": "unhealthy"}`, string(env.Result))
}

func TestStringSliceArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{"missing", nil, nil, false},
		{"strings", []string{"a", "b"}, []string{"a", "b"}, false},
		{"decoded", []any{"a", "b"}, []string{"a", "b"}, false},
		{"comma separated", "a, b,,c", []string{"a", "b", "c"}, false},
		{"mixed", []any{"a", 1}, nil, true},
		{"number", 3.0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stringSliceArg(map[string]any{"v": tt.value}, "v")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceTool_UnexpectedError(t *testing.T) {
	tool := &ServiceTool{
		name: "boom",
		run: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	}

	raw, err := tool.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.JSONEq(t, `{"error": "boom", "success": false}`, raw)
}
