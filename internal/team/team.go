// Package team synthesizes a team plan from a free-form description using a
// generative text service, then resolves each member's image.
package team

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/metrics"
	"github.com/hession/pokemate/internal/pokemon"
)

// MaxMembers is the largest team a plan may hold
const MaxMembers = 6

// DescriptionPlaceholder is replaced verbatim by the caller's description
const DescriptionPlaceholder = "{{description}}"

// DefaultPromptTemplate asks for a strict JSON payload
const DefaultPromptTemplate = `
You are a Pokémon team builder.

Given this description:
"""{{description}}"""

Please respond ONLY in valid JSON format with two keys:
- 'description': a natural language description explaining the team strategy
- 'team': a list of six Pokémon objects, each with 'name' and 'role' fields

Example:

{
    "description": "This is a balanced team featuring strong defense and a fire-type attacker.",
    "team": [
        {"name": "Charizard", "role": "Fire Attacker"},
        {"name": "Snorlax", "role": "Tank"}
    ]
}
`

// Plan is a generated team with its strategy description
type Plan struct {
	Description string   `json:"description"`
	Team        []Member `json:"team"`
}

// Member is one team slot
type Member struct {
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	ImageURL *string `json:"image_url"`
}

// Generator produces free-form text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CoreFetcher resolves the core record of a member
type CoreFetcher interface {
	FetchCore(ctx context.Context, name string) (*pokemon.Entity, error)
}

// Synthesizer runs generate, parse and enrich in sequence
type Synthesizer struct {
	generator Generator
	fetcher   CoreFetcher
	template  string
	log       *zap.Logger
}

// Option synthesizer configuration option
type Option func(*Synthesizer)

// WithTemplate overrides the prompt template. Empty keeps the default.
func WithTemplate(template string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(template) != "" {
			s.template = template
		}
	}
}

// WithLogger sets the synthesizer logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Synthesizer) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSynthesizer creates a team synthesizer
func NewSynthesizer(generator Generator, fetcher CoreFetcher, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		generator: generator,
		fetcher:   fetcher,
		template:  DefaultPromptTemplate,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPrompt interpolates description into template without escaping
func BuildPrompt(template, description string) string {
	return strings.ReplaceAll(template, DescriptionPlaceholder, description)
}

// Synthesize generates, parses and enriches a team plan
func (s *Synthesizer) Synthesize(ctx context.Context, description string) (*Plan, error) {
	if strings.TrimSpace(description) == "" {
		return nil, pokemon.InvalidInputf("team description is required")
	}

	raw, err := s.generator.Generate(ctx, BuildPrompt(s.template, description))
	if err != nil {
		if errors.Is(err, pokemon.ErrUpstream) {
			return nil, err
		}
		return nil, pokemon.Upstreamf(err, "team generation failed")
	}

	plan, mode, err := ParsePayload(raw)
	if err != nil {
		metrics.TeamParses.WithLabelValues("failed").Inc()
		s.log.Warn("generated team payload could not be parsed", zap.Int("raw_len", len(raw)))
		return nil, err
	}
	metrics.TeamParses.WithLabelValues(string(mode)).Inc()
	s.log.Debug("generated team parsed",
		zap.String("mode", string(mode)),
		zap.Int("members", len(plan.Team)))

	s.enrich(ctx, plan)
	return plan, nil
}

// enrich resolves image urls one member at a time; a failure only clears that member's image
func (s *Synthesizer) enrich(ctx context.Context, plan *Plan) {
	for i := range plan.Team {
		member := &plan.Team[i]
		member.ImageURL = nil

		entity, err := s.fetcher.FetchCore(ctx, strings.ToLower(member.Name))
		if err != nil {
			s.log.Warn("team member image lookup failed",
				zap.String("pokemon", member.Name),
				zap.Error(err))
			continue
		}
		member.ImageURL = entity.Sprite
	}
}
