// Package config loads server configuration from defaults, an optional YAML
// file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	DeepThink DeepThinkConfig `yaml:"deep_think"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	Temperature       *float64      `yaml:"temperature"`
	TopP              *float64      `yaml:"top_p"`
	MaxTokens         int           `yaml:"max_tokens"`
	SystemInstruction string        `yaml:"system_instruction"`
	Timeout           time.Duration `yaml:"timeout"`
}

type DeepThinkConfig struct {
	MaxSubtasks     int  `yaml:"max_subtasks"`
	MaxParallel     int  `yaml:"max_parallel"`
	EnableReview    bool `yaml:"enable_review"`
	EnableWebSearch bool `yaml:"enable_web_search"`
}

type SessionsConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080, Host: "0.0.0.0", LogLevel: "info"},
		LLM: LLMConfig{
			Provider: "",
			Timeout:  120 * time.Second,
		},
		DeepThink: DeepThinkConfig{MaxSubtasks: 6, MaxParallel: 2},
		Sessions:  SessionsConfig{Dir: "sessions"},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or the file is absent), then environment
// variables. A .env file in the working directory is folded into the
// environment first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file.
		case err != nil:
			return cfg, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "HOST")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.LogLevel, "LOG_LEVEL")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setString(&c.LLM.SystemInstruction, "LLM_SYSTEM_INSTRUCTION")
	if v, ok := lookupFloat("LLM_TEMPERATURE"); ok {
		c.LLM.Temperature = &v
	}
	if v, ok := lookupFloat("LLM_TOP_P"); ok {
		c.LLM.TopP = &v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LLM.Timeout = d
		}
	}

	setInt(&c.DeepThink.MaxSubtasks, "DEEPTHINK_MAX_SUBTASKS")
	setInt(&c.DeepThink.MaxParallel, "DEEPTHINK_MAX_PARALLEL")
	setBool(&c.DeepThink.EnableReview, "DEEPTHINK_ENABLE_REVIEW")
	setBool(&c.DeepThink.EnableWebSearch, "DEEPTHINK_ENABLE_WEB_SEARCH")

	setString(&c.Sessions.Dir, "SESSIONS_DIR")
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.DeepThink.MaxSubtasks <= 0 {
		return fmt.Errorf("max_subtasks must be positive, got %d", c.DeepThink.MaxSubtasks)
	}
	if c.DeepThink.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be positive, got %d", c.DeepThink.MaxParallel)
	}
	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return fmt.Errorf("temperature out of range: %g", *c.LLM.Temperature)
	}
	if c.Sessions.Dir == "" {
		return fmt.Errorf("sessions dir must not be empty")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func lookupFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
