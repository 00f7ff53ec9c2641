package store

import (
	"fmt"
	"os"
	"strconv"
)

// Secrets is the only place credentials are read from. Values come from the
// process environment, which godotenv populates from .env files at startup.
type Secrets struct {
	lookup func(string) (string, bool)
}

// EnvSecrets reads credentials from the process environment.
func EnvSecrets() Secrets {
	return Secrets{lookup: os.LookupEnv}
}

// MapSecrets serves credentials from a fixed map.
func MapSecrets(values map[string]string) Secrets {
	return Secrets{lookup: func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}}
}

func (s Secrets) get(key string) string {
	if s.lookup == nil {
		return ""
	}
	v, _ := s.lookup(key)
	return v
}

func (s Secrets) require(key string) (string, error) {
	v := s.get(key)
	if v == "" {
		return "", fmt.Errorf("%s missing", key)
	}
	return v, nil
}

func (s Secrets) OpenAIKey() (string, error) { return s.require("OPENAI_API_KEY") }

// ClaudeKey accepts CLAUDE_API_KEY or, failing that, ANTHROPIC_API_KEY.
func (s Secrets) ClaudeKey() (string, error) {
	if v := s.get("CLAUDE_API_KEY"); v != "" {
		return v, nil
	}
	return s.require("ANTHROPIC_API_KEY")
}

func (s Secrets) TelegramToken() (string, error) { return s.require("TELEGRAM_BOT_TOKEN") }

func (s Secrets) TelegramChatID() (int64, error) {
	raw, err := s.require("TELEGRAM_CHAT_ID")
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("TELEGRAM_CHAT_ID invalid: %w", err)
	}
	return id, nil
}

func (s Secrets) GitHubToken() (string, error) { return s.require("GITHUB_TOKEN") }

// RedisURL is optional; empty means no caption cache.
func (s Secrets) RedisURL() string { return s.get("REDIS_URL") }
