package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hession/pokemate/internal/config"
	"github.com/hession/pokemate/internal/llm"
	"github.com/hession/pokemate/internal/logger"
	"github.com/hession/pokemate/internal/pokeapi"
	"github.com/hession/pokemate/internal/pokemon"
	"github.com/hession/pokemate/internal/service"
	"github.com/hession/pokemate/internal/team"
	"github.com/hession/pokemate/internal/tools"
)

// app holds what every command needs after configuration is loaded
type app struct {
	cfg     *config.Config
	prompts *config.PromptConfig
	log     *zap.Logger
}

func loadApp(configDir string, console bool) (*app, error) {
	if configDir != "" {
		config.SetConfigDir(configDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	prompts, err := config.LoadPromptConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:     cfg.ResolvedLogDir(),
		Level:      cfg.Log.Level,
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.Console || console,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logConfigInfo(cfg)
	return &app{cfg: cfg, prompts: prompts, log: logger.L()}, nil
}

// logConfigInfo records the effective configuration without secrets
func logConfigInfo(cfg *config.Config) {
	logger.Info("configuration loaded",
		zap.String("catalog_base_url", cfg.Catalog.BaseURL),
		zap.String("generator_model", cfg.Generator.Model),
		zap.Bool("generator_configured", cfg.IsGeneratorConfigured()),
		zap.String("chat_model", cfg.Chat.Model),
		zap.Bool("chat_configured", cfg.IsChatConfigured()),
		zap.String("db_path", cfg.Memory.DBPath),
	)
}

// generator picks Gemini when a Google key is configured, else the chat model,
// else a generator that always fails with ErrGeneratorUnavailable
func (a *app) generator(ctx context.Context) (team.Generator, string) {
	if a.cfg.IsGeneratorConfigured() {
		gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
			APIKey:  a.cfg.Generator.APIKey,
			Model:   a.cfg.Generator.Model,
			Timeout: a.cfg.GeneratorTimeout(),
		}, a.log)
		if err == nil {
			return gen, "gemini"
		}
		a.log.Warn("gemini generator unavailable", zap.Error(err))
	}

	if a.cfg.IsChatConfigured() {
		return llm.NewChatGenerator(a.chatClient()), "chat"
	}
	return llm.UnavailableGenerator{}, "unavailable"
}

func (a *app) chatClient() *llm.Client {
	return llm.New(
		a.cfg.Chat.APIKey,
		a.cfg.Chat.BaseURL,
		a.cfg.Chat.Model,
		a.cfg.Chat.Temperature,
		a.cfg.Chat.MaxTokens,
		llm.WithClientLogger(a.log),
	)
}

// service wires catalog, pipelines and generator into the dispatch service
func (a *app) service(ctx context.Context) *service.Service {
	catalog := pokeapi.New(a.cfg.Catalog.BaseURL,
		pokeapi.WithTimeout(a.cfg.CatalogTimeout()),
		pokeapi.WithUserAgent(a.cfg.Catalog.UserAgent),
	)
	fetcher := pokemon.NewFetcher(catalog,
		pokemon.WithLocale(a.cfg.Catalog.Locale),
		pokemon.WithLogger(a.log),
	)

	gen, backend := a.generator(ctx)
	a.log.Info("team generator selected", zap.String("backend", backend))

	synth := team.NewSynthesizer(gen, fetcher,
		team.WithTemplate(a.prompts.GetTeamTemplate()),
		team.WithLogger(a.log),
	)
	return service.New(fetcher, synth, a.log)
}

func (a *app) registry(ctx context.Context) *tools.Registry {
	return tools.NewDefaultRegistry(a.service(ctx))
}

func (a *app) close() {
	_ = logger.Close()
}
