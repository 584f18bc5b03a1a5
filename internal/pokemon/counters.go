package pokemon

import (
	"context"
	"sort"
)

const (
	maxCounters         = 6
	countersPerWeakness = 2
)

// counterRoster maps an attacking type to well known users of it
var counterRoster = map[string][]string{
	"normal":   {"snorlax", "blissey", "porygon2"},
	"fire":     {"charizard", "arcanine", "volcarona"},
	"water":    {"gyarados", "swampert", "vaporeon"},
	"electric": {"raichu", "jolteon", "magnezone"},
	"grass":    {"venusaur", "sceptile", "ferrothorn"},
	"ice":      {"mamoswine", "weavile", "lapras"},
	"fighting": {"machamp", "lucario", "conkeldurr"},
	"poison":   {"toxapex", "nidoking", "crobat"},
	"ground":   {"garchomp", "excadrill", "landorus"},
	"flying":   {"talonflame", "staraptor", "dragonite"},
	"psychic":  {"alakazam", "espeon", "metagross"},
	"bug":      {"scizor", "heracross", "volcarona"},
	"rock":     {"tyranitar", "rhyperior", "aerodactyl"},
	"ghost":    {"gengar", "chandelure", "dragapult"},
	"dragon":   {"garchomp", "dragonite", "salamence"},
	"dark":     {"tyranitar", "weavile", "hydreigon"},
	"steel":    {"metagross", "scizor", "excadrill"},
	"fairy":    {"togekiss", "gardevoir", "clefable"},
}

// CounterResult lists type weaknesses and suggested counters for one entity
type CounterResult struct {
	Pokemon             string             `json:"pokemon"`
	Types               []string           `json:"types"`
	TopWeaknesses       map[string]float64 `json:"top_weaknesses"`
	Resistances         map[string]float64 `json:"resistances"`
	Immunities          []string           `json:"immunities"`
	RecommendedCounters []string           `json:"recommended_counters"`
}

// CounterRecommender derives counters from a static type chart
type CounterRecommender struct {
	fetcher *Fetcher
}

// NewCounterRecommender creates a counter recommender
func NewCounterRecommender(fetcher *Fetcher) *CounterRecommender {
	return &CounterRecommender{fetcher: fetcher}
}

// RecommendCounters fetches the entity core record and derives counters
func (r *CounterRecommender) RecommendCounters(ctx context.Context, name string) (*CounterResult, error) {
	entity, err := r.fetcher.FetchCore(ctx, name)
	if err != nil {
		return nil, err
	}
	return CountersFor(entity), nil
}

// CountersFor derives counters for an already fetched entity
func CountersFor(e *Entity) *CounterResult {
	profile := DefensiveProfile(e.Types)

	result := &CounterResult{
		Pokemon:             e.Name,
		Types:               e.Types,
		TopWeaknesses:       map[string]float64{},
		Resistances:         map[string]float64{},
		Immunities:          []string{},
		RecommendedCounters: []string{},
	}

	var weak []string
	for _, t := range AllTypes {
		m := profile[t]
		switch {
		case m > 1:
			result.TopWeaknesses[t] = m
			weak = append(weak, t)
		case m == 0:
			result.Immunities = append(result.Immunities, t)
		case m < 1:
			result.Resistances[t] = m
		}
	}

	sort.SliceStable(weak, func(i, j int) bool {
		if profile[weak[i]] != profile[weak[j]] {
			return profile[weak[i]] > profile[weak[j]]
		}
		return weak[i] < weak[j]
	})

	seen := map[string]bool{e.Name: true}
	for _, t := range weak {
		taken := 0
		for _, candidate := range counterRoster[t] {
			if len(result.RecommendedCounters) == maxCounters {
				return result
			}
			if taken == countersPerWeakness {
				break
			}
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			result.RecommendedCounters = append(result.RecommendedCounters, candidate)
			taken++
		}
	}
	return result
}
