package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// EnvPrefix prefixes environment overrides, e.g. POKEMATE_SERVER_ADDRESS
const EnvPrefix = "POKEMATE"

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Memory    MemoryConfig    `yaml:"memory" mapstructure:"memory"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig Pokémon catalog (PokeAPI) configuration
type CatalogConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	Locale         string `yaml:"locale" mapstructure:"locale"`
}

// GeneratorConfig team generation (Gemini) configuration
type GeneratorConfig struct {
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	Model          string `yaml:"model" mapstructure:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ChatConfig chat agent model configuration
type ChatConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxToolIterations int     `yaml:"max_tool_iterations" mapstructure:"max_tool_iterations"`
}

// MemoryConfig memory storage configuration
type MemoryConfig struct {
	DBPath             string `yaml:"db_path" mapstructure:"db_path"`
	MaxContextMessages int    `yaml:"max_context_messages" mapstructure:"max_context_messages"`
}

// ServerConfig HTTP API configuration
type ServerConfig struct {
	Address             string `yaml:"address" mapstructure:"address"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
}

// LogConfig logging configuration. An empty dir means <config dir>/logs.
type LogConfig struct {
	Level   string `yaml:"level" mapstructure:"level"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	MaxDays int    `yaml:"max_days" mapstructure:"max_days"`
	Console bool   `yaml:"console" mapstructure:"console"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://pokeapi.co/api/v2",
			TimeoutSeconds: 15,
			UserAgent:      "pokemate/0.1",
			Locale:         "en",
		},
		Generator: GeneratorConfig{
			Model:          "gemini-2.0-flash-001",
			TimeoutSeconds: 60,
		},
		Chat: ChatConfig{
			BaseURL:           "https://api.groq.com/openai",
			Model:             "qwen-qwq-32b",
			Temperature:       0.7,
			MaxTokens:         4096,
			MaxToolIterations: 10,
		},
		Memory: MemoryConfig{
			DBPath:             filepath.Join(homeDir, ".pokemate", "memory.db"),
			MaxContextMessages: 20,
		},
		Server: ServerConfig{
			Address:             ":8000",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 120,
		},
		Log: LogConfig{
			Level:   "info",
			MaxDays: 7,
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads config.yaml over the defaults, applies POKEMATE_* environment
// overrides and fills credentials from the environment and secrets files.
// A missing config file is created with the defaults.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	if err := setDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return nil, err
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key of defaults so that environment overrides
// resolve even when the file omits the key
func setDefaults(v *viper.Viper, defaults *Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode default config: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// applySecrets fills empty credentials. POKE_API_URL always wins over the
// configured catalog base URL.
func (c *Config) applySecrets(s *Secrets) {
	if c.Generator.APIKey == "" {
		c.Generator.APIKey = s.Get(GoogleAPIKey)
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = s.Get(GroqAPIKey)
	}
	if url := s.Get(PokeAPIURL); url != "" {
		c.Catalog.BaseURL = url
	}
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# Pokemate Configuration File\n# API keys are read from GOOGLE_API_KEY / GROQ_API_KEY or config/.secrets\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Catalog.BaseURL) == "" {
		return fmt.Errorf("config error: catalog.base_url cannot be empty")
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: catalog.timeout_seconds must be greater than 0")
	}
	if c.Generator.TimeoutSeconds <= 0 {
		return fmt.Errorf("config error: generator.timeout_seconds must be greater than 0")
	}

	if c.Chat.BaseURL == "" {
		return fmt.Errorf("config error: chat.base_url cannot be empty")
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("config error: chat.model cannot be empty")
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("config error: chat.temperature must be between 0 and 2")
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("config error: chat.max_tokens must be greater than 0")
	}
	if c.Chat.MaxToolIterations <= 0 {
		return fmt.Errorf("config error: chat.max_tool_iterations must be greater than 0")
	}

	if c.Memory.DBPath == "" {
		return fmt.Errorf("config error: memory.db_path cannot be empty")
	}
	if c.Memory.MaxContextMessages <= 0 {
		return fmt.Errorf("config error: memory.max_context_messages must be greater than 0")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("config error: server.address cannot be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: log.level must be one of debug, info, warn, error")
	}

	return nil
}

// CatalogTimeout catalog request timeout
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

// GeneratorTimeout generation request timeout
func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSeconds) * time.Second
}

// ResolvedLogDir returns log.dir or the default log directory
func (c *Config) ResolvedLogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	return LogDir()
}

// IsGeneratorConfigured reports whether a Gemini key is available
func (c *Config) IsGeneratorConfigured() bool {
	return c.Generator.APIKey != ""
}

// IsChatConfigured reports whether a chat model key is available
func (c *Config) IsChatConfigured() bool {
	return c.Chat.APIKey != ""
}

// String returns string representation of config (hides sensitive info)
func (c *Config) String() string {
	return fmt.Sprintf(`Pokemate Configuration:
  Catalog:
    Base URL: %s
    Timeout Seconds: %d
    Locale: %s
  Generator:
    API Key: %s
    Model: %s
    Timeout Seconds: %d
  Chat:
    API Key: %s
    Base URL: %s
    Model: %s
    Temperature: %.1f
    Max Tokens: %d
    Max Tool Iterations: %d
  Memory:
    DB Path: %s
    Max Context Messages: %d
  Server:
    Address: %s
  Log:
    Level: %s
    Dir: %s`,
		c.Catalog.BaseURL,
		c.Catalog.TimeoutSeconds,
		c.Catalog.Locale,
		redactAPIKey(c.Generator.APIKey),
		c.Generator.Model,
		c.Generator.TimeoutSeconds,
		redactAPIKey(c.Chat.APIKey),
		c.Chat.BaseURL,
		c.Chat.Model,
		c.Chat.Temperature,
		c.Chat.MaxTokens,
		c.Chat.MaxToolIterations,
		c.Memory.DBPath,
		c.Memory.MaxContextMessages,
		c.Server.Address,
		c.Log.Level,
		c.ResolvedLogDir(),
	)
}

func redactAPIKey(value string) string {
	if value == "" {
		return "(not configured)"
	}
	if len(value) > 8 {
		return value[:8] + "..."
	}
	return "***"
}
