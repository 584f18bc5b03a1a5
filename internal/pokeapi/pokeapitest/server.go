// Package pokeapitest serves a small in-memory catalog over HTTP for tests.
package pokeapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hession/pokemate/internal/pokeapi"
)

// StatKeys is the stat order used by NewPokemon
var StatKeys = []string{"hp", "attack", "defense", "special-attack", "special-defense", "speed"}

// Server is a fake catalog
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	pokemon   map[string]pokeapi.Pokemon
	species   map[string]pokeapi.Species
	chains    map[string]pokeapi.EvolutionChain
	failPaths map[string]int
	requests  []string
}

// NewPokemon builds a core record; stats follow StatKeys order
func NewPokemon(id int, name string, types, abilities []string, stats [6]int, moves ...string) pokeapi.Pokemon {
	p := pokeapi.Pokemon{ID: id, Name: name, Height: id % 20, Weight: id * 3}
	for i, t := range types {
		p.Types = append(p.Types, pokeapi.TypeSlot{Slot: i + 1, Type: pokeapi.NamedResource{Name: t}})
	}
	for i, a := range abilities {
		p.Abilities = append(p.Abilities, pokeapi.AbilitySlot{Slot: i + 1, Ability: pokeapi.NamedResource{Name: a}})
	}
	for i, key := range StatKeys {
		p.Stats = append(p.Stats, pokeapi.StatValue{BaseStat: stats[i], Stat: pokeapi.NamedResource{Name: key}})
	}
	for _, m := range moves {
		p.Moves = append(p.Moves, pokeapi.MoveEntry{Move: pokeapi.NamedResource{Name: m}})
	}
	sprite := SpriteURL(name)
	p.Sprites.FrontDefault = &sprite
	return p
}

// SpriteURL is the sprite NewPokemon assigns to name
func SpriteURL(name string) string {
	return "https://img.example/" + name + ".png"
}

// Link builds an evolution chain node
func Link(name string, next ...pokeapi.ChainLink) pokeapi.ChainLink {
	return pokeapi.ChainLink{Species: pokeapi.NamedResource{Name: name}, EvolvesTo: next}
}

// New starts a catalog seeded with pikachu, raichu, charizard, gengar, eevee
// and ditto. Ditto has no species resource.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		pokemon:   map[string]pokeapi.Pokemon{},
		species:   map[string]pokeapi.Species{},
		chains:    map[string]pokeapi.EvolutionChain{},
		failPaths: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pokemon["pikachu"] = NewPokemon(25, "pikachu",
		[]string{"electric"}, []string{"static", "lightning-rod"},
		[6]int{35, 55, 40, 50, 50, 90},
		"mega-punch", "pay-day", "thunder-punch", "slam", "double-kick", "mega-kick", "headbutt")
	s.pokemon["raichu"] = NewPokemon(26, "raichu",
		[]string{"electric"}, []string{"static", "lightning-rod"},
		[6]int{60, 90, 55, 90, 80, 110}, "thunderbolt")
	s.pokemon["charizard"] = NewPokemon(6, "charizard",
		[]string{"fire", "flying"}, []string{"blaze", "solar-power"},
		[6]int{78, 84, 78, 109, 85, 100}, "flamethrower", "air-slash")
	s.pokemon["gengar"] = NewPokemon(94, "gengar",
		[]string{"ghost", "poison"}, []string{"cursed-body"},
		[6]int{60, 65, 60, 130, 75, 110}, "shadow-ball")
	s.pokemon["eevee"] = NewPokemon(133, "eevee",
		[]string{"normal"}, []string{"run-away", "adaptability", "anticipation"},
		[6]int{55, 55, 50, 45, 65, 55}, "tackle")
	s.pokemon["ditto"] = NewPokemon(132, "ditto",
		[]string{"normal"}, []string{"limber", "imposter"},
		[6]int{48, 48, 48, 48, 48, 48}, "transform")

	pikachuChain := s.URL + "/evolution-chain/10/"
	s.chains["/evolution-chain/10/"] = pokeapi.EvolutionChain{ID: 10,
		Chain: Link("pichu", Link("pikachu", Link("raichu")))}
	s.species["pikachu"] = pokeapi.Species{ID: 25, Name: "pikachu",
		FlavorTextEntries: []pokeapi.FlavorTextEntry{
			{FlavorText: "ほっぺたの りょうがわに", Language: pokeapi.NamedResource{Name: "ja"}},
			{FlavorText: "When several of\nthese POKéMON gather,\ftheir electricity\rcould build.", Language: pokeapi.NamedResource{Name: "en"}},
			{FlavorText: "Second english entry.", Language: pokeapi.NamedResource{Name: "en"}},
		},
		EvolutionChain: &pokeapi.APIResource{URL: pikachuChain},
	}
	s.species["raichu"] = pokeapi.Species{ID: 26, Name: "raichu",
		EvolutionChain: &pokeapi.APIResource{URL: pikachuChain}}

	s.chains["/evolution-chain/67/"] = pokeapi.EvolutionChain{ID: 67,
		Chain: Link("eevee", Link("vaporeon"), Link("jolteon"), Link("flareon"))}
	s.species["eevee"] = pokeapi.Species{ID: 133, Name: "eevee",
		EvolutionChain: &pokeapi.APIResource{URL: s.URL + "/evolution-chain/67/"}}

	s.chains["/evolution-chain/52/"] = pokeapi.EvolutionChain{ID: 52,
		Chain: Link("charmander", Link("charmeleon", Link("charizard")))}
	s.species["charizard"] = pokeapi.Species{ID: 6, Name: "charizard",
		EvolutionChain: &pokeapi.APIResource{URL: s.URL + "/evolution-chain/52/"}}

	s.chains["/evolution-chain/40/"] = pokeapi.EvolutionChain{ID: 40,
		Chain: Link("gastly", Link("haunter", Link("gengar")))}
	s.species["gengar"] = pokeapi.Species{ID: 94, Name: "gengar",
		FlavorTextEntries: []pokeapi.FlavorTextEntry{
			{FlavorText: "Under a full moon,\nthis POKéMON likes to mimic\fthe shadows of people.", Language: pokeapi.NamedResource{Name: "en"}},
		},
		EvolutionChain: &pokeapi.APIResource{URL: s.URL + "/evolution-chain/40/"}}

	return s
}

// Client returns a catalog client pointed at the fake
func (s *Server) Client() *pokeapi.Client {
	return pokeapi.New(s.URL)
}

// Pokemon returns a seeded core record
func (s *Server) Pokemon(name string) pokeapi.Pokemon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pokemon[name]
}

// AddPokemon adds or replaces a core record
func (s *Server) AddPokemon(p pokeapi.Pokemon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pokemon[p.Name] = p
}

// AddSpecies adds or replaces a species record
func (s *Server) AddSpecies(sp pokeapi.Species) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.species[sp.Name] = sp
}

// Fail makes path answer with status
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[path] = status
}

// RequestCount counts served requests whose path starts with prefix
func (s *Server) RequestCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.URL.Path)
	if status, failing := s.failPaths[r.URL.Path]; failing {
		http.Error(w, "boom", status)
		return
	}

	var (
		payload any
		ok      bool
	)
	switch {
	case strings.HasPrefix(r.URL.Path, "/pokemon-species/"):
		payload, ok = s.species[strings.TrimPrefix(r.URL.Path, "/pokemon-species/")]
	case strings.HasPrefix(r.URL.Path, "/pokemon/"):
		payload, ok = s.pokemon[strings.TrimPrefix(r.URL.Path, "/pokemon/")]
	case strings.HasPrefix(r.URL.Path, "/evolution-chain/"):
		payload, ok = s.chains[r.URL.Path]
	}
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
