// Package mcpserver exposes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/tools"
)

const serverName = "pokemate"

// New creates the MCP server with every registry tool registered
func New(registry *tools.Registry, version string, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, tool := range registry.List() {
		s.AddTool(Definition(tool), Handler(registry, tool.Name(), log))
	}
	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
// Nothing else may write to stdout while it runs.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// Definition converts a registry tool into an MCP tool definition
func Definition(tool tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(tool.Description())}

	for _, param := range tool.Parameters() {
		propOpts := []mcp.PropertyOption{mcp.Description(param.Description)}
		if param.Required {
			propOpts = append(propOpts, mcp.Required())
		}

		switch param.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(param.Name, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(param.Name, propOpts...))
		case "array":
			items := param.Items
			if items == "" {
				items = "string"
			}
			propOpts = append(propOpts, mcp.Items(map[string]any{"type": items}))
			opts = append(opts, mcp.WithArray(param.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(param.Name, propOpts...))
		}
	}

	return mcp.NewTool(tool.Name(), opts...)
}

// Handler dispatches an MCP tool call to the registry. Operation failures are
// reported as error results carrying the envelope, never as protocol errors.
func Handler(registry *tools.Registry, name string, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := registry.Execute(ctx, name, req.GetArguments())
		if err != nil {
			log.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
			if result == "" {
				result = err.Error()
			}
			return mcp.NewToolResultError(result), nil
		}
		log.Debug("tool call", zap.String("tool", name), zap.Int("bytes", len(result)))
		return mcp.NewToolResultText(result), nil
	}
}

const instructions = `Pokemate answers questions about Pokémon using live catalog data.
Use get_pokemon_info for a single Pokémon, bulk_pokemon_lookup for several,
compare_pokemon and analyze_pokemon_matchup for head-to-head questions,
get_pokemon_counters for weaknesses, and generate_pokemon_team,
get_team_analysis or get_competitive_analysis for team building.
Every tool returns a JSON envelope with "success", "result" and "error".`
