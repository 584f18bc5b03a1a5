package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credential and endpoint keys read from the environment or secrets files
const (
	GoogleAPIKey = "GOOGLE_API_KEY"
	GroqAPIKey   = "GROQ_API_KEY"
	PokeAPIURL   = "POKE_API_URL"
)

// Secrets sensitive values loaded from dotenv files. The process
// environment takes precedence over file values.
type Secrets struct {
	values map[string]string
}

// NewSecrets creates a new Secrets instance
func NewSecrets() *Secrets {
	return &Secrets{
		values: make(map[string]string),
	}
}

// SecretsPath returns the secrets file path
func SecretsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".secrets"), nil
}

// secretFiles lists dotenv files in increasing priority
func secretFiles() []string {
	var files []string
	if path, err := SecretsPath(); err == nil {
		files = append(files, path)
	}
	return append(files, ".env")
}

// LoadSecrets loads <config dir>/.secrets and ./.env. Missing files are skipped.
func LoadSecrets() (*Secrets, error) {
	secrets := NewSecrets()

	for _, path := range secretFiles() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return secrets, fmt.Errorf("failed to read secrets file %s: %w", path, err)
		}
		for k, v := range values {
			secrets.values[k] = v
		}
	}

	return secrets, nil
}

// Get returns the value for a key
func (s *Secrets) Get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if s == nil || s.values == nil {
		return ""
	}
	return s.values[key]
}
