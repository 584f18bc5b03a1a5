package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
	"github.com/hession/pokemate/internal/team"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type harness struct {
	catalog *pokeapitest.Server
	server  *Server
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, gen generatorFunc) *harness {
	t.Helper()

	if gen == nil {
		gen = func(context.Context, string) (string, error) {
			return "```json\n{\"description\": \"Balanced.\", \"team\": [{\"name\": \"Charizard\", \"role\": \"Wallbreaker\"}]}\n```", nil
		}
	}

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	catalog := pokeapitest.New(t)
	fetcher := pokemon.NewFetcher(catalog.Client(), pokemon.WithLogger(zaptest.NewLogger(t)))
	synth := team.NewSynthesizer(gen, fetcher)

	return &harness{
		catalog: catalog,
		server:  New(service.New(fetcher, synth, log), Config{}, log),
		logs:    logs,
	}
}

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func (h *harness) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestPokemonInfo(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/pokemon-info/", `{"name": "Pikachu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var entity pokemon.Entity
	require.NoError(t, json.Unmarshal(env.Result, &entity))
	assert.Equal(t, 25, entity.ID)
	assert.Equal(t, []string{"electric"}, entity.Types)
	assert.Len(t, entity.EvolutionChain, 3)
	assert.LessOrEqual(t, len(entity.Moves), 5)
}

func TestPokemonInfo_WithoutTrailingSlash(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/pokemon-info", `{"name": "gengar"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		message string
	}{
		{"missing name", "/agent/pokemon-info/", `{}`, http.StatusBadRequest, "Missing 'name'"},
		{"empty body", "/agent/strategy/", ``, http.StatusBadRequest, "Missing 'name'"},
		{"missing pair", "/agent/compare/", `{"pokemon1": "pikachu"}`, http.StatusBadRequest, "Both 'pokemon1' and 'pokemon2' are required."},
		{"missing description", "/agent/team/", `{"description": ""}`, http.StatusBadRequest, "Missing 'description' in request."},
		{"unknown pokemon", "/agent/pokemon-info/", `{"name": "missingno"}`, http.StatusNotFound, ""},
		{"bad json", "/agent/compare/", `{"pokemon1": `, http.StatusBadRequest, ""},
		{"oversized team", "/agent/team-analysis/", `{"team_members": ["a","b","c","d","e","f","g"]}`, http.StatusBadRequest, "Team cannot have more than 6 Pokemon."},
		{"empty bulk", "/agent/bulk/", `{"names": []}`, http.StatusBadRequest, "Pokemon names list cannot be empty."},
		{"long name", "/agent/strategy/", `{"name": "` + strings.Repeat("x", 65) + `"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)

			rec, env := h.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, env.Result)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Error)
			}
		})
	}
}

func TestValidationMessageUsesJSONName(t *testing.T) {
	h := newHarness(t, nil)

	_, env := h.do(t, http.MethodPost, "/agent/competitive/", `{"pokemon_name": "gengar", "format": "`+strings.Repeat("O", 40)+`"}`)
	assert.Contains(t, env.Error, "'format'")
	assert.Equal(t, 0, h.catalog.RequestCount("/"))
}

func TestUpstreamFailureIs502(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.Fail("/pokemon/pikachu", http.StatusInternalServerError)

	rec, env := h.do(t, http.MethodPost, "/agent/strategy/", `{"name": "pikachu"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, env.Success)
}

func TestCompare(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/compare/", `{"pokemon1": "pikachu", "pokemon2": "pikachu"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cmp struct {
		StatsComparison map[string]map[string]any `json:"stats_comparison"`
		TypeAdvantage   any                       `json:"type_advantage"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &cmp))
	for stat, row := range cmp.StatsComparison {
		assert.Equal(t, pokemon.Tie, row["winner"], stat)
	}
	assert.Equal(t, pokemon.SameTypes, cmp.TypeAdvantage)
}

func TestTeam(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/team/", `{"description": "sun team"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var plan team.Plan
	require.NoError(t, json.Unmarshal(env.Result, &plan))
	require.Len(t, plan.Team, 1)
	require.NotNil(t, plan.Team[0].ImageURL)
	assert.Equal(t, pokeapitest.SpriteURL("charizard"), *plan.Team[0].ImageURL)
}

func TestTeam_GenerationParseFailureIs500(t *testing.T) {
	h := newHarness(t, func(context.Context, string) (string, error) {
		return "no json here", nil
	})

	rec, env := h.do(t, http.MethodPost, "/agent/team/", `{"description": "sun team"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, env.Error, "Raw response: no json here")
}

func TestTeam_GeneratorFailureIs502(t *testing.T) {
	h := newHarness(t, func(context.Context, string) (string, error) {
		return "", errors.New("quota")
	})

	rec, _ := h.do(t, http.MethodPost, "/agent/team/", `{"description": "sun team"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBulk(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/bulk/", `{"names": ["pikachu", "missingno"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []service.BulkEntry
	require.NoError(t, json.Unmarshal(env.Result, &entries))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Success)
	assert.False(t, entries[1].Success)
}

func TestMatchupAndCompetitive(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/matchup/", `{"pokemon1": "pikachu", "pokemon2": "gengar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var m map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &m))
	assert.Equal(t, service.DefaultFormat, m["battle_format"])

	rec, env = h.do(t, http.MethodPost, "/agent/competitive/", `{"pokemon_name": "gengar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &m))
	assert.Equal(t, service.DefaultCompetitiveFormat, m["format"])
}

func TestTeamAnalysis(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodPost, "/agent/team-analysis/", `{"team_members": ["pikachu", "charizard"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis map[string]any
	require.NoError(t, json.Unmarshal(env.Result, &analysis))
	assert.Contains(t, analysis, "type_coverage")
	assert.Contains(t, analysis, "ai_suggestions")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(t, http.MethodGet, "/agent/pokemon-info/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report service.HealthReport
	require.NoError(t, json.Unmarshal(env.Result, &report))
	assert.Equal(t, "healthy", report.Status)

	h.catalog.Fail("/pokemon/charizard", http.StatusBadGateway)
	rec, env = h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Result, &report))
	assert.Equal(t, "unhealthy", report.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/agent/strategy/", `{"name": "pikachu"}`)

	rec, _ := h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pokemate_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="strategy"`)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(t, http.MethodPost, "/agent/strategy/", `{"name": "pikachu"}`,
		"X-Forwarded-For", "203.0.113.7, 10.0.0.1",
		RequestIDHeader, "req-42",
	)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	entries := h.logs.FilterMessage("api request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "203.0.113.7", fields["client_ip"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "/agent/strategy/", fields["path"])
	assert.Equal(t, `{"name": "pikachu"}`, fields["payload"])

	rec, _ = h.do(t, http.MethodPost, "/agent/strategy/", `{"name": "pikachu"}`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestAccessLog_PayloadIsCapped(t *testing.T) {
	h := newHarness(t, nil)

	description := strings.Repeat("rain ", 200)
	h.do(t, http.MethodPost, "/agent/team/", `{"description": "`+description+`"}`)

	entries := h.logs.FilterMessage("api request").All()
	require.Len(t, entries, 1)
	payload, ok := entries[0].ContextMap()["payload"].(string)
	require.True(t, ok)
	assert.Len(t, payload, maxLoggedPayload)
	assert.True(t, strings.HasPrefix(payload, `{"description": "rain rain`))

	h.do(t, http.MethodGet, "/health", "")
	entries = h.logs.FilterMessage("api request").All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[1].ContextMap(), "payload")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 198.51.100.2 ")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	h := newHarness(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+ln.Addr().String()+"/agent/strategy/", "application/json", strings.NewReader(`{"name": "gengar"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
