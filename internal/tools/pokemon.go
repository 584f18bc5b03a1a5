package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
)

// runFunc performs one service operation from tool arguments
type runFunc func(ctx context.Context, args map[string]any) (any, error)

// ServiceTool exposes one service operation as a tool. Execute always returns
// the response envelope; a failed operation also returns its error.
type ServiceTool struct {
	name        string
	description string
	params      []ParameterDef
	run         runFunc
	// keepResult reports the result alongside a failure
	keepResult bool
}

func (t *ServiceTool) Name() string {
	return t.name
}

func (t *ServiceTool) Description() string {
	return t.description
}

func (t *ServiceTool) Parameters() []ParameterDef {
	return t.params
}

func (t *ServiceTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	result, err := t.run(ctx, args)
	env := service.Wrap(result, err)
	if err != nil && t.keepResult {
		env.Result = result
	}
	return encodeEnvelope(env), err
}

func encodeEnvelope(env service.Envelope) string {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Sprintf(`{"error": %q, "success": false}`, err.Error())
	}
	return string(data)
}

// NewPokemonInfoTool get_pokemon_info
func NewPokemonInfoTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "get_pokemon_info",
		description: "Get detailed information about a Pokémon including stats, types, abilities, flavor text, evolution chain and a few moves.",
		params: []ParameterDef{
			{Name: "name", Type: "string", Description: "The name of the Pokémon to look up", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.PokemonInfo(ctx, stringArg(args, "name"))
		},
	}
}

// NewComparePokemonTool compare_pokemon
func NewComparePokemonTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "compare_pokemon",
		description: "Compare two Pokémon stat by stat and report type and ability differences.",
		params: []ParameterDef{
			{Name: "pokemon1", Type: "string", Description: "Name of the first Pokémon", Required: true},
			{Name: "pokemon2", Type: "string", Description: "Name of the second Pokémon", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Compare(ctx, stringArg(args, "pokemon1"), stringArg(args, "pokemon2"))
		},
	}
}

// NewCountersTool get_pokemon_counters
func NewCountersTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "get_pokemon_counters",
		description: "Get type weaknesses and recommended counters for a Pokémon.",
		params: []ParameterDef{
			{Name: "name", Type: "string", Description: "The name of the Pokémon to find counters for", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.Counters(ctx, stringArg(args, "name"))
		},
	}
}

// NewGenerateTeamTool generate_pokemon_team
func NewGenerateTeamTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "generate_pokemon_team",
		description: "Generate a team of up to six Pokémon with roles from a natural language description.",
		params: []ParameterDef{
			{Name: "description", Type: "string", Description: "Description of the desired team composition or strategy", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.GenerateTeam(ctx, stringArg(args, "description"))
		},
	}
}

// NewMatchupTool analyze_pokemon_matchup
func NewMatchupTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "analyze_pokemon_matchup",
		description: "Analyze the matchup between two Pokémon: stat comparison plus counters for both sides.",
		params: []ParameterDef{
			{Name: "pokemon1", Type: "string", Description: "Name of the first Pokémon", Required: true},
			{Name: "pokemon2", Type: "string", Description: "Name of the second Pokémon", Required: true},
			{Name: "battle_format", Type: "string", Description: "Battle format context (singles, doubles). Defaults to singles"},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.AnalyzeMatchup(ctx, stringArg(args, "pokemon1"), stringArg(args, "pokemon2"), stringArg(args, "battle_format"))
		},
	}
}

// NewTeamAnalysisTool get_team_analysis
func NewTeamAnalysisTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "get_team_analysis",
		description: "Analyze a team of up to six Pokémon for type coverage, shared weaknesses and suggested improvements.",
		params: []ParameterDef{
			{Name: "team_members", Type: "array", Items: "string", Description: "Names of the Pokémon in the team (1 to 6)", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			members, err := stringSliceArg(args, "team_members")
			if err != nil {
				return nil, pokemon.InvalidInputf("%s", err.Error())
			}
			return svc.TeamAnalysis(ctx, members)
		},
	}
}

// NewBulkLookupTool bulk_pokemon_lookup
func NewBulkLookupTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "bulk_pokemon_lookup",
		description: "Look up several Pokémon at once. Each name gets its own result entry.",
		params: []ParameterDef{
			{Name: "names", Type: "array", Items: "string", Description: "Pokémon names to look up (1 to 20)", Required: true},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			names, err := stringSliceArg(args, "names")
			if err != nil {
				return nil, pokemon.InvalidInputf("%s", err.Error())
			}
			return svc.BulkLookup(ctx, names)
		},
	}
}

// NewCompetitiveAnalysisTool get_competitive_analysis
func NewCompetitiveAnalysisTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "get_competitive_analysis",
		description: "Competitive analysis of a Pokémon: full info, counters and a suggested team built around it.",
		params: []ParameterDef{
			{Name: "pokemon_name", Type: "string", Description: "Name of the Pokémon to analyze", Required: true},
			{Name: "format", Type: "string", Description: "Competitive format (OU, UU, Doubles). Defaults to OU"},
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			return svc.CompetitiveAnalysis(ctx, stringArg(args, "pokemon_name"), stringArg(args, "format"))
		},
	}
}

// NewHealthCheckTool health_check
func NewHealthCheckTool(svc *service.Service) *ServiceTool {
	return &ServiceTool{
		name:        "health_check",
		description: "Check that the catalog is reachable by running a live lookup and comparison.",
		params:      []ParameterDef{},
		keepResult:  true,
		run: func(ctx context.Context, _ map[string]any) (any, error) {
			return svc.HealthCheck(ctx)
		},
	}
}
