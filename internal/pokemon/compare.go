package pokemon

import (
	"context"
	"encoding/json"
	"sort"
)

// Tie is the winner value for equal stats
const Tie = "Tie"

// SameTypes is the type relation sentinel for equal type sets
const SameTypes = "Same Types"

// Comparison is a head-to-head breakdown of two entities
type Comparison struct {
	Pokemon1        string                    `json:"pokemon_1"`
	Pokemon2        string                    `json:"pokemon_2"`
	StatsComparison map[string]StatComparison `json:"stats_comparison"`
	TypeAdvantage   TypeRelation              `json:"type_advantage"`
	SharedAbilities []string                  `json:"shared_abilities"`
	UniqueAbilities map[string][]string       `json:"unique_abilities"`
}

// StatComparison holds both values of one stat keyed by entity name
type StatComparison struct {
	Values map[string]int
	Winner string
}

// MarshalJSON renders {name1: v1, name2: v2, "winner": w}
func (s StatComparison) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Values)+1)
	for name, v := range s.Values {
		out[name] = v
	}
	out["winner"] = s.Winner
	return json.Marshal(out)
}

// TypeRelation is either the SameTypes sentinel or both ordered type lists
type TypeRelation struct {
	Same  bool
	Types map[string][]string
}

// MarshalJSON renders "Same Types" or {name1: types1, name2: types2}
func (t TypeRelation) MarshalJSON() ([]byte, error) {
	if t.Same {
		return json.Marshal(SameTypes)
	}
	return json.Marshal(t.Types)
}

// Comparator compares two entities fetched from the catalog
type Comparator struct {
	fetcher *Fetcher
}

// NewComparator creates a comparator
func NewComparator(fetcher *Fetcher) *Comparator {
	return &Comparator{fetcher: fetcher}
}

// Compare fetches both core records in order and compares them
func (c *Comparator) Compare(ctx context.Context, nameA, nameB string) (*Comparison, error) {
	a, err := c.fetcher.FetchCore(ctx, nameA)
	if err != nil {
		return nil, err
	}
	b, err := c.fetcher.FetchCore(ctx, nameB)
	if err != nil {
		return nil, err
	}
	return CompareEntities(a, b), nil
}

// CompareEntities computes the comparison of two already fetched entities.
// Stats are iterated over a's keys; a key missing from b reads as zero.
func CompareEntities(a, b *Entity) *Comparison {
	result := &Comparison{
		Pokemon1:        a.Name,
		Pokemon2:        b.Name,
		StatsComparison: make(map[string]StatComparison, len(a.Stats)),
		TypeAdvantage:   compareTypes(a, b),
		SharedAbilities: intersect(a.Abilities, b.Abilities),
		UniqueAbilities: map[string][]string{
			a.Name: difference(a.Abilities, b.Abilities),
			b.Name: difference(b.Abilities, a.Abilities),
		},
	}

	for stat, va := range a.Stats {
		vb := b.Stats[stat]
		winner := Tie
		switch {
		case va > vb:
			winner = a.Name
		case va < vb:
			winner = b.Name
		}
		result.StatsComparison[stat] = StatComparison{
			Values: map[string]int{a.Name: va, b.Name: vb},
			Winner: winner,
		}
	}
	return result
}

func compareTypes(a, b *Entity) TypeRelation {
	if sameSet(a.Types, b.Types) {
		return TypeRelation{Same: true}
	}
	return TypeRelation{Types: map[string][]string{
		a.Name: a.Types,
		b.Name: b.Types,
	}}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func sameSet(a, b []string) bool {
	sa, sb := toSet(a), toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if _, ok := sb[k]; !ok {
			return false
		}
	}
	return true
}

func intersect(a, b []string) []string {
	sb := toSet(b)
	out := []string{}
	for k := range toSet(a) {
		if _, ok := sb[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func difference(a, b []string) []string {
	sb := toSet(b)
	out := []string{}
	for k := range toSet(a) {
		if _, ok := sb[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
