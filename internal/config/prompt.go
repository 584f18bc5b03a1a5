package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptConfig prompt configuration structure
type PromptConfig struct {
	Language string                     `yaml:"language"`
	Prompts  map[string]LanguagePrompts `yaml:"prompts"`
}

// LanguagePrompts prompts for a specific language
type LanguagePrompts struct {
	// System is the chat agent system prompt
	System string `yaml:"system"`
	// Team is the team generation template; it must contain {{description}}.
	// Empty keeps the built-in template.
	Team        string `yaml:"team,omitempty"`
	ErrorPrefix string `yaml:"error_prefix"`
}

// DefaultPromptConfig returns default prompt configuration
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{
		Language: "en",
		Prompts: map[string]LanguagePrompts{
			"en": {
				System: `You are Pokemate, a Pokémon battle and team-building assistant. You have tools to:
- look up a Pokémon's stats, types, abilities, moves, flavor text and evolution chain
- compare two Pokémon and analyze matchups
- find type weaknesses and recommended counters
- generate, analyze and improve teams of up to six Pokémon

Always use the tools for factual data instead of answering from memory. If a tool reports an error, tell the user plainly and suggest a correction, such as checking the spelling of a name.`,
				ErrorPrefix: "Error",
			},
			"zh": {
				System: `你是 Pokemate，一个宝可梦对战与配队助手。你可以使用工具来：
- 查询宝可梦的种族值、属性、特性、招式、图鉴描述和进化链
- 比较两只宝可梦并分析对局
- 查找属性弱点和推荐的克制宝可梦
- 生成、分析和改进最多六只宝可梦的队伍

请始终通过工具获取事实数据，不要凭记忆回答。如果工具返回错误，请如实告诉用户并给出修正建议，例如检查名字拼写。`,
				ErrorPrefix: "错误",
			},
		},
	}
}

// PromptConfigPath returns the prompt config file path
func PromptConfigPath() (string, error) {
	// First check if there's a config/prompt.yaml in current working directory
	cwd, err := os.Getwd()
	if err == nil {
		localPath := filepath.Join(cwd, "config", "prompt.yaml")
		if _, err := os.Stat(localPath); err == nil {
			return localPath, nil
		}
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompt.yaml"), nil
}

// LoadPromptConfig loads prompt configuration from file
func LoadPromptConfig() (*PromptConfig, error) {
	configPath, err := PromptConfigPath()
	if err != nil {
		return DefaultPromptConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultPromptConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt config: %w", err)
	}

	cfg := DefaultPromptConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompt config: %w", err)
	}

	return cfg, nil
}

// GetPrompts returns prompts for the configured language
func (p *PromptConfig) GetPrompts() LanguagePrompts {
	if prompts, ok := p.Prompts[p.Language]; ok {
		return prompts
	}
	// Fall back to English if configured language not found
	if prompts, ok := p.Prompts["en"]; ok {
		return prompts
	}
	return LanguagePrompts{}
}

// GetSystemPrompt returns the system prompt for the configured language
func (p *PromptConfig) GetSystemPrompt() string {
	return p.GetPrompts().System
}

// GetTeamTemplate returns the team generation template, "" for the built-in one
func (p *PromptConfig) GetTeamTemplate() string {
	return p.GetPrompts().Team
}

// GetErrorPrefix returns the error prefix for the configured language
func (p *PromptConfig) GetErrorPrefix() string {
	return p.GetPrompts().ErrorPrefix
}
