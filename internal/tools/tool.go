package tools

import "context"

// Tool tool interface
type Tool interface {
	Name() string                                                     // Tool name
	Description() string                                              // Tool description (for LLM)
	Parameters() []ParameterDef                                       // Parameter definitions
	Execute(ctx context.Context, args map[string]any) (string, error) // Execute, returns the response envelope as JSON
}

// ParameterDef parameter definition
type ParameterDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`            // "string" | "number" | "boolean" | "array"
	Items       string `json:"items,omitempty"` // element type when Type is "array"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}
