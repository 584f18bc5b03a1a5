// Package pokemon aggregates catalog resources into a canonical entity and
// derives comparisons and counter recommendations from it.
package pokemon

// Stat keys of every entity's Stats map
const (
	StatHP             = "hp"
	StatAttack         = "attack"
	StatDefense        = "defense"
	StatSpecialAttack  = "special-attack"
	StatSpecialDefense = "special-defense"
	StatSpeed          = "speed"
)

// StatKeys is the fixed stat order used for display
var StatKeys = []string{StatHP, StatAttack, StatDefense, StatSpecialAttack, StatSpecialDefense, StatSpeed}

const maxMoves = 5

// Entity is the canonical record built from the core, species and evolution resources
type Entity struct {
	Name           string         `json:"name"`
	ID             int            `json:"id"`
	Types          []string       `json:"types"`
	Abilities      []string       `json:"abilities"`
	Height         int            `json:"height"`
	Weight         int            `json:"weight"`
	Stats          map[string]int `json:"stats"`
	Sprite         *string        `json:"sprite"`
	FlavorText     *string        `json:"flavor_text"`
	EvolutionChain []string       `json:"evolution_chain"`
	Moves          []string       `json:"moves"`
}
