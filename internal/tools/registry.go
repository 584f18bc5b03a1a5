package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hession/pokemate/internal/metrics"
	"github.com/hession/pokemate/internal/service"
)

// Registry tool registry
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register registers a tool
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already exists", name)
	}

	r.tools[name] = tool
	return nil
}

// Get gets a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List lists all tools sorted by name
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}

// Execute executes a tool by name
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, exists := r.Get(name)
	if !exists {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	result, err := tool.Execute(ctx, args)
	metrics.ToolCalls.WithLabelValues(name, metrics.Outcome(err)).Inc()
	return result, err
}

// ToolSchema tool schema (for Function Calling)
type ToolSchema struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// FunctionSchema function schema
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// GetSchemas gets all tool schemas for Function Calling
func (r *Registry) GetSchemas() []ToolSchema {
	tools := r.List()
	schemas := make([]ToolSchema, 0, len(tools))
	for _, tool := range tools {
		schemas = append(schemas, ToolSchema{
			Type: "function",
			Function: FunctionSchema{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  BuildParameterSchema(tool.Parameters()),
			},
		})
	}
	return schemas
}

// BuildParameterSchema builds a JSON schema object for params
func BuildParameterSchema(params []ParameterDef) map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, param := range params {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Type == "array" {
			items := param.Items
			if items == "" {
				items = "string"
			}
			prop["items"] = map[string]any{"type": items}
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// NewDefaultRegistry creates and registers every service tool
func NewDefaultRegistry(svc *service.Service) *Registry {
	registry := NewRegistry()

	tools := []Tool{
		NewPokemonInfoTool(svc),
		NewComparePokemonTool(svc),
		NewCountersTool(svc),
		NewGenerateTeamTool(svc),
		NewMatchupTool(svc),
		NewTeamAnalysisTool(svc),
		NewBulkLookupTool(svc),
		NewCompetitiveAnalysisTool(svc),
		NewHealthCheckTool(svc),
	}

	for _, tool := range tools {
		_ = registry.Register(tool) // names are fixed and distinct
	}
	return registry
}
