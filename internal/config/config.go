package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	APIToken        string
	LogLevel        string
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	LLMTimeoutSecs  int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
}

func Load() Config {
	return Config{
		Port:            envInt("PARLEY_PORT", 8760),
		APIToken:        envStr("PARLEY_API_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		Provider:        envStr("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("PARLEY_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		OpenAIModel:     envStr("OPENAI_MODEL", "gpt-4o"),
		LLMTimeoutSecs:  envInt("LLM_TIMEOUT_SECONDS", 30),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
