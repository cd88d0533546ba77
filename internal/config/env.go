package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Secrets are read from the environment only, never from the config file.
type Secrets struct {
	DiscordToken string `env:"CLANBOT_DISCORD_TOKEN"`
	MongoURI     string `env:"CLANBOT_MONGO_URI"`
}

// LoadSecrets parses Secrets from the process environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("parsing environment: %w", err)
	}
	return s, nil
}

// LoadSecretsFrom parses Secrets from an explicit environment map.
func LoadSecretsFrom(environ map[string]string) (Secrets, error) {
	var s Secrets
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Secrets{}, fmt.Errorf("parsing environment: %w", err)
	}
	return s, nil
}

// RequireBot checks the secrets needed to run the bot with the given store.
func (s Secrets) RequireBot(storage StorageConfig) error {
	if s.DiscordToken == "" {
		return fmt.Errorf("CLANBOT_DISCORD_TOKEN is not set")
	}
	if storage.Backend == "mongo" && s.MongoURI == "" {
		return fmt.Errorf("CLANBOT_MONGO_URI is required for the mongo backend")
	}
	return nil
}
