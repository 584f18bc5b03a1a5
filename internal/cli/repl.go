// Package cli implements the interactive chat REPL.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/agent"
	"github.com/hession/pokemate/internal/config"
	"github.com/hession/pokemate/internal/llm"
	"github.com/hession/pokemate/internal/memory"
	"github.com/hession/pokemate/internal/tools"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// Chatter is the part of the agent the REPL drives
type Chatter interface {
	Chat(ctx context.Context, userMessage string) (string, error)
	ClearSession(ctx context.Context) error
	NewSession(ctx context.Context) error
	SessionID() string
}

// Run builds the chat agent from cfg and starts the REPL
func Run(ctx context.Context, cfg *config.Config, registry *tools.Registry, version string, log *zap.Logger) error {
	out := os.Stdout
	printWelcome(out, version)

	if !cfg.IsChatConfigured() {
		if err := promptAPIKey(out, cfg); err != nil {
			return err
		}
	}

	client := llm.New(
		cfg.Chat.APIKey,
		cfg.Chat.BaseURL,
		cfg.Chat.Model,
		cfg.Chat.Temperature,
		cfg.Chat.MaxTokens,
		llm.WithClientLogger(log),
	)

	memStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize memory store: %w", err)
	}
	defer memStore.Close()

	prompts, err := config.LoadPromptConfig()
	if err != nil {
		return fmt.Errorf("failed to load prompt config: %w", err)
	}

	ag, err := agent.New(ctx, client, memStore, registry, prompts,
		agent.WithLogger(log),
		agent.WithMaxContextMessages(cfg.Memory.MaxContextMessages),
		agent.WithMaxToolIterations(cfg.Chat.MaxToolIterations),
		agent.WithStreamHandler(func(content string) { fmt.Fprint(out, content) }),
		agent.WithToolCallHandler(toolCallOutput(out)),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	return NewREPL(ag, out).Run(ctx)
}

func printWelcome(out io.Writer, version string) {
	fmt.Fprintf(out, "\n%s⚡ Pokemate v%s%s - Pokémon battle and team assistant\n", colorCyan, version, colorReset)
	fmt.Fprintf(out, "%sType /help for help, exit to quit%s\n\n", colorGray, colorReset)
}

// promptAPIKey asks for the chat model key and saves it to the config file
func promptAPIKey(out io.Writer, cfg *config.Config) error {
	fmt.Fprintf(out, "%s⚠️  Chat API key not configured (set %s or enter it now)%s\n\n", colorYellow, config.GroqAPIKey, colorReset)

	apiKey := strings.TrimSpace(prompt.Input("API Key: ", noCompletion))
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	cfg.Chat.APIKey = apiKey
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "\n%s✅ API key saved%s\n\n", colorGreen, colorReset)
	return nil
}

// REPL reads user lines and forwards them to the agent
type REPL struct {
	agent   Chatter
	out     io.Writer
	history []string
	read    func(history []string) string
}

// NewREPL creates a REPL reading from the terminal
func NewREPL(ag Chatter, out io.Writer) *REPL {
	return &REPL{
		agent: ag,
		out:   out,
		read:  readTerminal,
	}
}

// readTerminal reads one line with go-prompt
func readTerminal(history []string) string {
	return prompt.Input("You: ", complete,
		prompt.OptionTitle("pokemate"),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionHistory(history),
	)
}

// Run loops until exit or ctx cancellation
func (r *REPL) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if !r.Handle(ctx, r.read(r.history)) {
			return nil
		}
	}
	return nil
}

// Handle processes one input line and reports whether to keep reading
func (r *REPL) Handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}
	r.history = append(r.history, input)

	switch strings.ToLower(input) {
	case "exit", "quit", "/exit", "/quit", "/q":
		r.goodbye()
		return false

	case "clear", "/clear":
		if err := r.agent.ClearSession(ctx); err != nil {
			fmt.Fprintf(r.out, "%s❌ Failed to clear session: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Fprintf(r.out, "%s✅ Session cleared%s\n", colorGreen, colorReset)
		}
		return true

	case "/new":
		if err := r.agent.NewSession(ctx); err != nil {
			fmt.Fprintf(r.out, "%s❌ Failed to create new session: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Fprintf(r.out, "%s✅ New session created%s\n", colorGreen, colorReset)
		}
		return true

	case "/help":
		printHelp(r.out)
		return true

	case "/session":
		fmt.Fprintf(r.out, "%sSession: %s%s\n", colorGray, r.agent.SessionID(), colorReset)
		return true
	}

	if strings.HasPrefix(input, "/") {
		fmt.Fprintf(r.out, "%s❓ Unknown command: %s%s\n", colorYellow, input, colorReset)
		fmt.Fprintln(r.out, "Type /help for available commands")
		return true
	}

	r.chat(ctx, input)
	return true
}

func (r *REPL) chat(ctx context.Context, input string) {
	fmt.Fprintf(r.out, "\n%sPokemate: %s", colorBlue, colorReset)
	if _, err := r.agent.Chat(ctx, input); err != nil {
		fmt.Fprintf(r.out, "\n%s❌ Error: %v%s\n", colorRed, err, colorReset)
	}
	fmt.Fprint(r.out, "\n\n")
}

func (r *REPL) goodbye() {
	fmt.Fprintf(r.out, "%sGoodbye! 👋%s\n", colorCyan, colorReset)
}

var commandSuggestions = []prompt.Suggest{
	{Text: "/help", Description: "Show help"},
	{Text: "/new", Description: "Start a new session"},
	{Text: "/clear", Description: "Clear the current session"},
	{Text: "/session", Description: "Show the current session id"},
	{Text: "/exit", Description: "Exit"},
}

// complete suggests slash commands while the first word is being typed
func complete(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	if !strings.HasPrefix(before, "/") || strings.Contains(before, " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commandSuggestions, d.GetWordBeforeCursor(), true)
}

func noCompletion(prompt.Document) []prompt.Suggest {
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintf(out, `
%s📚 Pokemate Help%s

%sCommands:%s
  /help      - Show this help message
  /new       - Start a new session
  clear      - Clear current session history
  /session   - Show the current session id
  exit, quit - Exit program

%sTools the assistant can use:%s
  • get_pokemon_info, bulk_pokemon_lookup
  • compare_pokemon, analyze_pokemon_matchup
  • get_pokemon_counters
  • generate_pokemon_team, get_team_analysis, get_competitive_analysis
  • health_check

%sExamples:%s
  "Tell me about Gengar"
  "Who wins between Garchomp and Dragonite?"
  "Build me a rain team"

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}

// toolCallOutput prints tool call progress
func toolCallOutput(out io.Writer) func(name string, args map[string]any, result string, err error) {
	return func(name string, args map[string]any, _ string, err error) {
		fmt.Fprintf(out, "\n\n%s🔧 Calling tool: %s%s\n", colorYellow, name, colorReset)
		if len(args) > 0 {
			fmt.Fprintf(out, "%s   Args: %v%s\n", colorGray, args, colorReset)
		}
		if err != nil {
			fmt.Fprintf(out, "%s   Status: ❌ Failed - %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Fprintf(out, "%s   Status: ✅ Done%s\n", colorGreen, colorReset)
		}
		fmt.Fprintln(out)
	}
}
