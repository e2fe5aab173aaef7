package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Speech   SpeechConfig   `yaml:"speech"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
	ExportDir string `yaml:"export_dir"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SpeechConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `yaml:"poll_timeout_seconds"`
}

type LLMConfig struct {
	Provider  string   `yaml:"provider"`
	APIKey    string   `yaml:"api_key"`
	APIKeys   []string `yaml:"api_keys"`
	BaseURL   string   `yaml:"base_url"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
}

type PipelineConfig struct {
	TargetLanguage string `yaml:"target_language"`
	MaxTokens      int    `yaml:"max_tokens"`
	ExtractSeconds int    `yaml:"extract_seconds"`
}

type WorkerConfig struct {
	Concurrency         int     `yaml:"concurrency"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	RateLimit           float64 `yaml:"rate_limit"`
	RateBurst           int     `yaml:"rate_burst"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type WatchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and validates a yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Speech.APIKey == "" {
		return fmt.Errorf("speech.api_key is required")
	}
	if c.LLM.APIKey == "" && len(c.LLM.APIKeys) == 0 {
		return fmt.Errorf("llm.api_key or llm.api_keys is required")
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "storage/uploads"
	}
	if c.Server.ExportDir == "" {
		c.Server.ExportDir = "storage/exports"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "talktotext"
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = "assemblyai"
	}
	if c.Speech.PollIntervalSeconds == 0 {
		c.Speech.PollIntervalSeconds = 2
	}
	if c.Speech.PollTimeoutSeconds == 0 {
		c.Speech.PollTimeoutSeconds = 600
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.Model = "gemini-2.5-flash"
		default:
			c.LLM.Model = "llama-3.1-8b-instant"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 800
	}
	if c.Pipeline.TargetLanguage == "" {
		c.Pipeline.TargetLanguage = "en"
	}
	if c.Pipeline.MaxTokens == 0 {
		c.Pipeline.MaxTokens = 3000
	}
	if c.Pipeline.ExtractSeconds == 0 {
		c.Pipeline.ExtractSeconds = 120
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 2
	}
	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 1
	}
	if c.Watch.Enabled && c.Watch.Dir == "" {
		return fmt.Errorf("watch.dir is required when watch.enabled is set")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// LLMKeys returns the configured LLM API keys as a slice, whichever of
// api_key / api_keys was set.
func (c *Config) LLMKeys() []string {
	if len(c.LLM.APIKeys) > 0 {
		return c.LLM.APIKeys
	}
	return []string{c.LLM.APIKey}
}
