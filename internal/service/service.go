// Package service maps one external request onto the aggregation pipelines.
//
// Every operation is a fixed sequential composition of pipeline calls. Batch
// operations record per-item failures instead of aborting.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/team"
)

const (
	MaxTeamMembers           = team.MaxMembers
	MaxBulkNames             = 20
	DefaultFormat            = "singles"
	DefaultCompetitiveFormat = "OU"
)

// Service dispatches requests to the pipelines
type Service struct {
	fetcher    *pokemon.Fetcher
	comparator *pokemon.Comparator
	counters   *pokemon.CounterRecommender
	teams      *team.Synthesizer
	log        *zap.Logger
}

// New creates a service over a fetcher and a team synthesizer
func New(fetcher *pokemon.Fetcher, teams *team.Synthesizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		fetcher:    fetcher,
		comparator: pokemon.NewComparator(fetcher),
		counters:   pokemon.NewCounterRecommender(fetcher),
		teams:      teams,
		log:        log,
	}
}

// PokemonInfo returns the full entity; a narrative failure fails the call
func (s *Service) PokemonInfo(ctx context.Context, name string) (*pokemon.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pokemon.InvalidInputf("Missing 'name'")
	}
	return s.fetcher.FetchEntity(ctx, name)
}

// Compare compares two entities head to head
func (s *Service) Compare(ctx context.Context, nameA, nameB string) (*pokemon.Comparison, error) {
	if strings.TrimSpace(nameA) == "" || strings.TrimSpace(nameB) == "" {
		return nil, pokemon.InvalidInputf("Both 'pokemon1' and 'pokemon2' are required.")
	}
	return s.comparator.Compare(ctx, nameA, nameB)
}

// Counters recommends counters for one entity
func (s *Service) Counters(ctx context.Context, name string) (*pokemon.CounterResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pokemon.InvalidInputf("Missing 'name'")
	}
	return s.counters.RecommendCounters(ctx, name)
}

// GenerateTeam synthesizes a team plan from a description
func (s *Service) GenerateTeam(ctx context.Context, description string) (*team.Plan, error) {
	if strings.TrimSpace(description) == "" {
		return nil, pokemon.InvalidInputf("Missing 'description' in request.")
	}
	return s.teams.Synthesize(ctx, description)
}

// Matchup is a comparison plus both sides' counters
type Matchup struct {
	Comparison       *pokemon.Comparison    `json:"comparison"`
	Pokemon1Counters *pokemon.CounterResult `json:"pokemon1_counters"`
	Pokemon2Counters *pokemon.CounterResult `json:"pokemon2_counters"`
	BattleFormat     string                 `json:"battle_format"`
}

// AnalyzeMatchup compares two entities and recommends counters for each
func (s *Service) AnalyzeMatchup(ctx context.Context, nameA, nameB, format string) (*Matchup, error) {
	if strings.TrimSpace(nameA) == "" || strings.TrimSpace(nameB) == "" {
		return nil, pokemon.InvalidInputf("Both Pokemon names are required for matchup analysis.")
	}
	if strings.TrimSpace(format) == "" {
		format = DefaultFormat
	}

	comparison, err := s.comparator.Compare(ctx, nameA, nameB)
	if err != nil {
		return nil, err
	}
	countersA, err := s.counters.RecommendCounters(ctx, nameA)
	if err != nil {
		return nil, err
	}
	countersB, err := s.counters.RecommendCounters(ctx, nameB)
	if err != nil {
		return nil, err
	}

	return &Matchup{
		Comparison:       comparison,
		Pokemon1Counters: countersA,
		Pokemon2Counters: countersB,
		BattleFormat:     format,
	}, nil
}

// MemberInfo is one team analysis entry
type MemberInfo struct {
	Name  string          `json:"name"`
	Info  *pokemon.Entity `json:"info,omitempty"`
	Error string          `json:"error,omitempty"`
}

// TeamAnalysis describes a fixed team
type TeamAnalysis struct {
	TeamMembers      []MemberInfo   `json:"team_members"`
	TypeCoverage     map[string]int `json:"type_coverage"`
	CommonWeaknesses []string       `json:"common_weaknesses"`
	AISuggestions    any            `json:"ai_suggestions"`
}

// TeamAnalysis looks up every member and asks the generator for improvements
func (s *Service) TeamAnalysis(ctx context.Context, members []string) (*TeamAnalysis, error) {
	if len(members) == 0 {
		return nil, pokemon.InvalidInputf("Team members list cannot be empty.")
	}
	if len(members) > MaxTeamMembers {
		return nil, pokemon.InvalidInputf("Team cannot have more than %d Pokemon.", MaxTeamMembers)
	}

	analysis := &TeamAnalysis{
		TeamMembers:      make([]MemberInfo, 0, len(members)),
		TypeCoverage:     map[string]int{},
		CommonWeaknesses: []string{},
	}

	weakCount := map[string]int{}
	for _, name := range members {
		entity, narrativeErr, err := s.fetcher.Fetch(ctx, name)
		if err != nil {
			s.log.Warn("team member lookup failed", zap.String("pokemon", name), zap.Error(err))
			analysis.TeamMembers = append(analysis.TeamMembers, MemberInfo{Name: name, Error: err.Error()})
			continue
		}

		info := MemberInfo{Name: name, Info: entity}
		if narrativeErr != nil {
			info.Error = narrativeErr.Error()
		}
		analysis.TeamMembers = append(analysis.TeamMembers, info)

		for _, t := range entity.Types {
			analysis.TypeCoverage[t]++
		}
		for attacking, m := range pokemon.DefensiveProfile(entity.Types) {
			if m > 1 {
				weakCount[attacking]++
			}
		}
	}

	for t, n := range weakCount {
		if n >= 2 {
			analysis.CommonWeaknesses = append(analysis.CommonWeaknesses, t)
		}
	}
	sort.Strings(analysis.CommonWeaknesses)

	prompt := "Analyze and improve this team: A team consisting of: " + strings.Join(members, ", ")
	plan, err := s.teams.Synthesize(ctx, prompt)
	if err != nil {
		s.log.Warn("team suggestions unavailable", zap.Error(err))
		analysis.AISuggestions = map[string]string{"error": err.Error()}
	} else {
		analysis.AISuggestions = plan
	}

	return analysis, nil
}

// BulkEntry is one bulk lookup result
type BulkEntry struct {
	Name    string          `json:"name"`
	Info    *pokemon.Entity `json:"info,omitempty"`
	Error   string          `json:"error,omitempty"`
	Success bool            `json:"success"`
}

// BulkLookup looks up every name in order, one entry per name
func (s *Service) BulkLookup(ctx context.Context, names []string) ([]BulkEntry, error) {
	if len(names) == 0 {
		return nil, pokemon.InvalidInputf("Pokemon names list cannot be empty.")
	}
	if len(names) > MaxBulkNames {
		return nil, pokemon.InvalidInputf("Cannot lookup more than %d Pokemon at once.", MaxBulkNames)
	}

	entries := make([]BulkEntry, 0, len(names))
	for _, name := range names {
		entity, narrativeErr, err := s.fetcher.Fetch(ctx, name)
		switch {
		case err != nil:
			s.log.Warn("bulk lookup failed", zap.String("pokemon", name), zap.Error(err))
			entries = append(entries, BulkEntry{Name: name, Error: err.Error()})
		case narrativeErr != nil:
			entries = append(entries, BulkEntry{Name: name, Info: entity, Error: narrativeErr.Error()})
		default:
			entries = append(entries, BulkEntry{Name: name, Info: entity, Success: true})
		}
	}
	return entries, nil
}

// CompetitiveAnalysis is an entity with counters and a suggested team
type CompetitiveAnalysis struct {
	PokemonInfo     *pokemon.Entity        `json:"pokemon_info"`
	Counters        *pokemon.CounterResult `json:"counters"`
	TeamSuggestions *team.Plan             `json:"team_suggestions"`
	Format          string                 `json:"format"`
}

// CompetitiveAnalysis builds a competitive report around one entity
func (s *Service) CompetitiveAnalysis(ctx context.Context, name, format string) (*CompetitiveAnalysis, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pokemon.InvalidInputf("Pokemon name is required.")
	}
	if strings.TrimSpace(format) == "" {
		format = DefaultCompetitiveFormat
	}

	entity, err := s.fetcher.FetchEntity(ctx, name)
	if err != nil {
		return nil, err
	}

	plan, err := s.teams.Synthesize(ctx, fmt.Sprintf("Create a competitive %s team centered around %s", format, name))
	if err != nil {
		return nil, err
	}

	return &CompetitiveAnalysis{
		PokemonInfo:     entity,
		Counters:        pokemon.CountersFor(entity),
		TeamSuggestions: plan,
		Format:          format,
	}, nil
}

// HealthReport is the result of a live self test
type HealthReport struct {
	Status      string            `json:"status"`
	Components  map[string]string `json:"components,omitempty"`
	TestResults map[string]string `json:"test_results,omitempty"`
}

// HealthCheck runs a live lookup and comparison against the catalog
func (s *Service) HealthCheck(ctx context.Context) (*HealthReport, error) {
	if _, err := s.fetcher.FetchCore(ctx, "pikachu"); err != nil {
		return &HealthReport{Status: "unhealthy"}, err
	}
	if _, err := s.comparator.Compare(ctx, "pikachu", "charizard"); err != nil {
		return &HealthReport{Status: "unhealthy"}, err
	}

	return &HealthReport{
		Status: "healthy",
		Components: map[string]string{
			"pokemon_info":       "operational",
			"pokemon_comparison": "operational",
			"counter_analysis":   "operational",
			"team_generation":    "operational",
		},
		TestResults: map[string]string{
			"basic_lookup": "passed",
			"comparison":   "passed",
		},
	}, nil
}
