// Package config loads process configuration from environment variables
// with sane defaults, mirroring the variables the deployment already uses.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds everything the service needs at startup.
type Config struct {
	Server  ServerConfig
	Firefly FireflyConfig
	Gemini  GeminiConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     string
	EnableUI bool
}

type FireflyConfig struct {
	// BaseURL of the Firefly III instance, without trailing slash.
	BaseURL string
	// PersonalToken is the bearer token for the Firefly API.
	PersonalToken string
	// CategoryTag is appended to transactions whose category was set here.
	CategoryTag string
	// BudgetTag is appended to transactions whose budget was set here.
	BudgetTag string
}

type GeminiConfig struct {
	Model string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: "3000",
		},
		Firefly: FireflyConfig{
			CategoryTag: "AI categorized",
			BudgetTag:   "AI Budgeted",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the environment. It returns an error
// naming the first required variable that is missing.
func Load() (Config, error) {
	cfg := defaults()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	cfg.Server.EnableUI = strings.EqualFold(os.Getenv("ENABLE_UI"), "true")

	if v := os.Getenv("FIREFLY_URL"); v != "" {
		cfg.Firefly.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("FIREFLY_PERSONAL_TOKEN"); v != "" {
		cfg.Firefly.PersonalToken = v
	}
	if v := os.Getenv("FIREFLY_TAG"); v != "" {
		cfg.Firefly.CategoryTag = v
	}
	if v := os.Getenv("FIREFLY_TAG_BUDGET"); v != "" {
		cfg.Firefly.BudgetTag = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if cfg.Firefly.BaseURL == "" {
		return Config{}, fmt.Errorf("config: FIREFLY_URL is required")
	}
	if cfg.Firefly.PersonalToken == "" {
		return Config{}, fmt.Errorf("config: FIREFLY_PERSONAL_TOKEN is required")
	}

	return cfg, nil
}
