package pokeapi

// NamedResource is the {name, url} reference the catalog uses everywhere
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Pokemon is the subset of GET /pokemon/{name} the service reads
type Pokemon struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Height    int           `json:"height"`
	Weight    int           `json:"weight"`
	Types     []TypeSlot    `json:"types"`
	Abilities []AbilitySlot `json:"abilities"`
	Stats     []StatValue   `json:"stats"`
	Moves     []MoveEntry   `json:"moves"`
	Sprites   Sprites       `json:"sprites"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
	Slot     int           `json:"slot"`
}

type StatValue struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

type MoveEntry struct {
	Move NamedResource `json:"move"`
}

type Sprites struct {
	FrontDefault *string `json:"front_default"`
	BackDefault  *string `json:"back_default"`
}

// Species is the subset of GET /pokemon-species/{name} the service reads
type Species struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	FlavorTextEntries []FlavorTextEntry `json:"flavor_text_entries"`
	EvolutionChain    *APIResource      `json:"evolution_chain"`
}

type FlavorTextEntry struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
	Version    NamedResource `json:"version"`
}

// APIResource is an unnamed {url} reference
type APIResource struct {
	URL string `json:"url"`
}

// EvolutionChain is GET /evolution-chain/{id}
type EvolutionChain struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// ChainLink is one node of the linked evolution structure
type ChainLink struct {
	Species   NamedResource `json:"species"`
	EvolvesTo []ChainLink   `json:"evolves_to"`
}
