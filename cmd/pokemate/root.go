package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hession/pokemate/internal/cli"
	"github.com/hession/pokemate/internal/config"
	"github.com/hession/pokemate/internal/httpapi"
	"github.com/hession/pokemate/internal/mcpserver"
)

func newRootCmd() *cobra.Command {
	var configDir string

	load := func(console bool) (*app, error) {
		return loadApp(configDir, console)
	}

	rootCmd := &cobra.Command{
		Use:   "pokemate",
		Short: "Pokemate - Pokémon data, matchups and team building",
		Long: `Pokemate aggregates Pokémon data from PokeAPI and generative models.

It can:
  • Chat with you and look things up with tools (default command)
  • Serve the JSON HTTP API
  • Serve the tools over MCP on stdio
  • Answer one-shot lookups from the command line`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, load)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start the interactive chat agent",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(cmd, load)
			},
		},
		newServeCmd(load),
		newMCPCmd(load),
		newToolCmd("info <name>", "Show a Pokémon's details", "get_pokemon_info", cobra.ExactArgs(1), load,
			func(args []string) map[string]any { return map[string]any{"name": args[0]} }),
		newToolCmd("compare <pokemon1> <pokemon2>", "Compare two Pokémon", "compare_pokemon", cobra.ExactArgs(2), load,
			func(args []string) map[string]any { return map[string]any{"pokemon1": args[0], "pokemon2": args[1]} }),
		newToolCmd("counters <name>", "Show weaknesses and recommended counters", "get_pokemon_counters", cobra.ExactArgs(1), load,
			func(args []string) map[string]any { return map[string]any{"name": args[0]} }),
		newToolCmd("team <description...>", "Generate a team from a description", "generate_pokemon_team", cobra.MinimumNArgs(1), load,
			func(args []string) map[string]any { return map[string]any{"description": strings.Join(args, " ")} }),
		newToolCmd("bulk <name...>", "Look up several Pokémon", "bulk_pokemon_lookup", cobra.MinimumNArgs(1), load,
			func(args []string) map[string]any { return map[string]any{"names": args} }),
		newToolCmd("health", "Run a live self test against the catalog", "health_check", cobra.NoArgs, load,
			func([]string) map[string]any { return nil }),
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Pokemate v%s\n", version)
			},
		},
	)

	return rootCmd
}

type loader func(console bool) (*app, error)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, load loader) error {
	a, err := load(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return cli.Run(ctx, a.cfg, a.registry(ctx), version, a.log)
}

func newServeCmd(load loader) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(true)
			if err != nil {
				return err
			}
			defer a.close()

			if address != "" {
				a.cfg.Server.Address = address
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			srv := httpapi.New(a.service(ctx), httpapi.Config{
				Address:      a.cfg.Server.Address,
				ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(a.cfg.Server.WriteTimeoutSeconds) * time.Second,
			}, a.log)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&address, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func newMCPCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext(cmd)
			defer cancel()
			return mcpserver.Serve(mcpserver.New(a.registry(ctx), version, a.log))
		},
	}
}

// newToolCmd runs one registry tool and prints its envelope
func newToolCmd(use, short, tool string, args cobra.PositionalArgs, load loader, toArgs func([]string) map[string]any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, positional []string) error {
			a, err := load(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			result, execErr := a.registry(ctx).Execute(ctx, tool, toArgs(positional))
			if result != "" {
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, []byte(result), "", "  "); err == nil {
					result = pretty.String()
				}
				fmt.Fprintln(cmd.OutOrStdout(), result)
			}
			return execErr
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config-dir"); dir != "" {
				config.SetConfigDir(dir)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file path: %s\n", path)
			return nil
		},
	}
}
