package team

import (
	"encoding/json"
	"strings"

	"github.com/hession/pokemate/internal/pokemon"
)

// ParseMode records which attempt recovered the payload
type ParseMode string

const (
	ParseStrict   ParseMode = "strict"
	ParseFragment ParseMode = "fragment"
)

// ParsePayload recovers a plan from generated text. The whole text is parsed
// first; on failure the first top-level {...} fragment is parsed on its own.
func ParsePayload(raw string) (*Plan, ParseMode, error) {
	if plan, ok := decodePlan(strings.TrimSpace(raw)); ok {
		return plan, ParseStrict, nil
	}

	if fragment, found := firstObject(raw); found {
		if plan, ok := decodePlan(fragment); ok {
			return plan, ParseFragment, nil
		}
	}

	return nil, "", &pokemon.GenerationParseError{Raw: raw}
}

func decodePlan(text string) (*Plan, bool) {
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, false
	}
	// null, {} and objects with neither key carry nothing usable
	if plan.Description == "" && plan.Team == nil {
		return nil, false
	}
	if len(plan.Team) > MaxMembers {
		plan.Team = plan.Team[:MaxMembers]
	}
	if plan.Team == nil {
		plan.Team = []Member{}
	}
	return &plan, true
}

// firstObject returns the first balanced {...} span. Depth counts every
// brace, including braces inside string literals.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
