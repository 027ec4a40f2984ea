package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		QuestionCount     int    `yaml:"question_count"`
		GenerationTimeout string `yaml:"generation_timeout"`
	} `yaml:"quiz"`
	GenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"genai"`
	History struct {
		Limit int `yaml:"limit"`
	} `yaml:"history"`
	Insights struct {
		TTL string `yaml:"ttl"`
	} `yaml:"insights"`
	Auth struct {
		// TrustIdentityHeaders honours X-Auth-* request headers. Enable only
		// behind an auth proxy that sets them for every request.
		TrustIdentityHeaders bool `yaml:"trust_identity_headers"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies environment overrides.
// A .env file in the working directory is loaded first when present.
// An empty path skips the file and uses environment and defaults only.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.Env, "APP_ENV")
	override(&c.GenAI.APIKey, "GENAI_API_KEY")
	override(&c.Postgres.URL, "DATABASE_URL")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.SQLite.Path, "SQLITE_PATH")
	if v, ok := os.LookupEnv("AUTH_TRUST_IDENTITY_HEADERS"); ok {
		if trust, err := strconv.ParseBool(v); err == nil {
			c.Auth.TrustIdentityHeaders = trust
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Quiz.QuestionCount == 0 {
		c.Quiz.QuestionCount = 5
	}
	if c.History.Limit == 0 {
		c.History.Limit = 50
	}
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.Quiz.QuestionCount < 1 || c.Quiz.QuestionCount > 20 {
		return fmt.Errorf("quiz.question_count must be between 1 and 20, got %d", c.Quiz.QuestionCount)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	for name, raw := range map[string]string{
		"redis.ttl":               c.Redis.TTL,
		"quiz.generation_timeout": c.Quiz.GenerationTimeout,
		"genai.timeout":           c.GenAI.Timeout,
		"insights.ttl":            c.Insights.TTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Production reports whether the service runs in the production environment.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
