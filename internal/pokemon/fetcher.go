package pokemon

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/pokeapi"
)

// DefaultLocale is the flavor text language
const DefaultLocale = "en"

// Catalog is the subset of the catalog client the fetcher needs
type Catalog interface {
	Pokemon(ctx context.Context, name string) (*pokeapi.Pokemon, error)
	Species(ctx context.Context, name string) (*pokeapi.Species, error)
	EvolutionChain(ctx context.Context, chainURL string) (*pokeapi.EvolutionChain, error)
}

// Fetcher builds canonical entities from the catalog
type Fetcher struct {
	catalog Catalog
	locale  string
	log     *zap.Logger
}

// FetcherOption fetcher configuration option
type FetcherOption func(*Fetcher)

// WithLocale sets the flavor text language
func WithLocale(locale string) FetcherOption {
	return func(f *Fetcher) {
		if strings.TrimSpace(locale) != "" {
			f.locale = locale
		}
	}
}

// WithLogger sets the fetcher logger
func WithLogger(log *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFetcher creates a fetcher over catalog
func NewFetcher(catalog Catalog, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		catalog: catalog,
		locale:  DefaultLocale,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NormalizeName trims and lowercases a lookup key
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FetchEntity runs both stages and fails on the first error
func (f *Fetcher) FetchEntity(ctx context.Context, name string) (*Entity, error) {
	entity, narrativeErr, err := f.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if narrativeErr != nil {
		return nil, narrativeErr
	}
	return entity, nil
}

// Fetch runs both stages. A non-nil err means the core stage failed and
// entity is nil. A non-nil narrativeErr means entity holds core fields only.
func (f *Fetcher) Fetch(ctx context.Context, name string) (entity *Entity, narrativeErr error, err error) {
	entity, err = f.FetchCore(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	if narrativeErr = f.fillNarrative(ctx, entity); narrativeErr != nil {
		f.log.Warn("narrative stage failed",
			zap.String("pokemon", entity.Name),
			zap.Error(narrativeErr))
	}
	return entity, narrativeErr, nil
}

// FetchCore runs the core stage only
func (f *Fetcher) FetchCore(ctx context.Context, name string) (*Entity, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, InvalidInputf("pokémon name is required")
	}

	raw, err := f.catalog.Pokemon(ctx, key)
	if err != nil {
		return nil, classifyCore(key, err)
	}

	return newEntity(key, raw), nil
}

func classifyCore(name string, err error) error {
	var statusErr *pokeapi.StatusError
	if errors.As(err, &statusErr) && statusErr.NotFound() {
		return NotFoundf("pokémon %q not found", name)
	}
	return Upstreamf(err, "failed to fetch pokémon %q", name)
}

func newEntity(name string, raw *pokeapi.Pokemon) *Entity {
	e := &Entity{
		Name:      name,
		ID:        raw.ID,
		Height:    raw.Height,
		Weight:    raw.Weight,
		Types:     make([]string, 0, len(raw.Types)),
		Abilities: make([]string, 0, len(raw.Abilities)),
		Stats:     make(map[string]int, len(raw.Stats)),
		Moves:     make([]string, 0, maxMoves),
		Sprite:    raw.Sprites.FrontDefault,
	}

	for _, t := range raw.Types {
		e.Types = append(e.Types, t.Type.Name)
	}
	for _, a := range raw.Abilities {
		e.Abilities = append(e.Abilities, a.Ability.Name)
	}
	for _, s := range raw.Stats {
		e.Stats[s.Stat.Name] = s.BaseStat
	}
	for _, m := range raw.Moves {
		if len(e.Moves) == maxMoves {
			break
		}
		e.Moves = append(e.Moves, m.Move.Name)
	}
	return e
}

// fillNarrative sets flavor text and evolution chain only if the whole stage succeeds
func (f *Fetcher) fillNarrative(ctx context.Context, e *Entity) error {
	species, err := f.catalog.Species(ctx, e.Name)
	if err != nil {
		return Upstreamf(err, "failed to fetch species for %q", e.Name)
	}

	flavor := firstFlavorText(species.FlavorTextEntries, f.locale)

	if species.EvolutionChain == nil || species.EvolutionChain.URL == "" {
		return errors.Mark(errors.Newf("species %q has no evolution chain reference", e.Name), ErrUpstream)
	}

	chain, err := f.catalog.EvolutionChain(ctx, species.EvolutionChain.URL)
	if err != nil {
		return Upstreamf(err, "failed to fetch evolution chain for %q", e.Name)
	}

	e.FlavorText = flavor
	e.EvolutionChain = walkFirstBranch(chain.Chain)
	return nil
}

var flavorReplacer = strings.NewReplacer("\n", " ", "\f", " ", "\r", " ")

func firstFlavorText(entries []pokeapi.FlavorTextEntry, locale string) *string {
	for _, entry := range entries {
		if entry.Language.Name == locale {
			text := flavorReplacer.Replace(entry.FlavorText)
			return &text
		}
	}
	return nil
}

// walkFirstBranch follows evolves_to[0] from the root until a leaf
func walkFirstBranch(root pokeapi.ChainLink) []string {
	var names []string
	node := &root
	for node != nil {
		names = append(names, node.Species.Name)
		if len(node.EvolvesTo) == 0 {
			break
		}
		node = &node.EvolvesTo[0]
	}
	return names
}
