// Package config loads application settings from a TOML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/narrative"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "vozpublica.toml"

type DatabaseConfig struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

type AIConfig struct {
	APIType         string  `toml:"api_type"`
	APIVersion      string  `toml:"api_version"`
	APIKey          string  `toml:"api_key"`
	EmbeddingHost   string  `toml:"embedding_host"`
	ChatHost        string  `toml:"chat_host"`
	EmbeddingModel  string  `toml:"embedding_model"`
	ChatModel       string  `toml:"chat_model"`
	Temperature     float64 `toml:"temperature"`
	MaxTokens       int     `toml:"max_tokens"`
	AnswerMaxTokens int     `toml:"answer_max_tokens"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AnalysisConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MaxExamples         int     `toml:"max_examples"`
	MinEvidence         int     `toml:"min_evidence"`
	EvolutionLimit      int     `toml:"evolution_limit"`
	SpeakerTopK         int     `toml:"speaker_top_k"`
}

type ReportConfig struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Config struct {
	Database DatabaseConfig `toml:"database"`
	AI       AIConfig       `toml:"ai"`
	Server   ServerConfig   `toml:"server"`
	Analysis AnalysisConfig `toml:"analysis"`
	Report   ReportConfig   `toml:"report"`
	Log      LogConfig      `toml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	settings := narrative.DefaultSettings()
	return &Config{
		Database: DatabaseConfig{Path: "vozpublica.db"},
		AI: AIConfig{
			APIType:         string(aiDefaults.APIType),
			APIKey:          aiDefaults.APIKey,
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			ChatHost:        aiDefaults.ChatHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			ChatModel:       aiDefaults.ChatModel,
			Temperature:     aiDefaults.Temperature,
			MaxTokens:       aiDefaults.MaxTokens,
			AnswerMaxTokens: aiDefaults.AnswerMaxTokens,
		},
		Server: ServerConfig{Addr: ":8000"},
		Analysis: AnalysisConfig{
			SimilarityThreshold: settings.SimilarityThreshold,
			MaxExamples:         settings.MaxExamples,
			MinEvidence:         settings.MinEvidence,
			EvolutionLimit:      settings.EvolutionLimit,
			SpeakerTopK:         settings.SpeakerTopK,
		},
		Report: ReportConfig{Dir: "reports", Format: "text"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds the configuration. The TOML file at path is read when it
// exists; envFiles (default ".env") are loaded into the environment without
// overriding variables that are already set; environment variables then
// override file values.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse TOML '%s': %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		default:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func set(lookup lookupFunc, key string, targets ...*string) bool {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return false
	}
	for _, t := range targets {
		*t = v
	}
	return true
}

func (c *Config) applyEnv(lookup lookupFunc) {
	set(lookup, "VOZ_DB_PATH", &c.Database.Path)
	set(lookup, "VOZ_SERVER_ADDR", &c.Server.Addr)
	set(lookup, "VOZ_LOG_LEVEL", &c.Log.Level)
	set(lookup, "VOZ_LOG_FILE", &c.Log.File)
	set(lookup, "VOZ_REPORT_DIR", &c.Report.Dir)

	set(lookup, "OPENAI_BASE_URL", &c.AI.EmbeddingHost, &c.AI.ChatHost)
	set(lookup, "OPENAI_API_KEY", &c.AI.APIKey)
	set(lookup, "VOZ_EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	set(lookup, "VOZ_CHAT_MODEL", &c.AI.ChatModel)

	if set(lookup, "AZURE_OPENAI_ENDPOINT", &c.AI.EmbeddingHost, &c.AI.ChatHost) {
		c.AI.APIType = string(ai.APITypeAzure)
		set(lookup, "AZURE_OPENAI_API_KEY", &c.AI.APIKey)
		set(lookup, "AZURE_OPENAI_API_VERSION", &c.AI.APIVersion)
		set(lookup, "AZURE_OPENAI_CHAT_DEPLOYMENT", &c.AI.ChatModel)
		set(lookup, "AZURE_OPENAI_EMBEDDING_DEPLOYMENT", &c.AI.EmbeddingModel)
	}
}

// Validate checks values that cannot be checked by the consuming packages.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if !c.Database.InMemory && strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path is required unless database.in_memory is set")
	}
	if _, err := c.AIConfig(); err != nil {
		return err
	}
	return c.Settings().Validate()
}

// AIConfig converts the [ai] section into a validated ai.Config.
func (c *Config) AIConfig() (*ai.Config, error) {
	cfg := &ai.Config{
		APIType:         ai.APIType(strings.ToLower(c.AI.APIType)),
		APIVersion:      c.AI.APIVersion,
		APIKey:          c.AI.APIKey,
		EmbeddingHost:   c.AI.EmbeddingHost,
		ChatHost:        c.AI.ChatHost,
		EmbeddingModel:  c.AI.EmbeddingModel,
		ChatModel:       c.AI.ChatModel,
		Temperature:     c.AI.Temperature,
		MaxTokens:       c.AI.MaxTokens,
		AnswerMaxTokens: c.AI.AnswerMaxTokens,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Settings converts the [analysis] section into request defaults.
func (c *Config) Settings() narrative.Settings {
	return narrative.Settings{
		SimilarityThreshold: c.Analysis.SimilarityThreshold,
		MaxExamples:         c.Analysis.MaxExamples,
		MinEvidence:         c.Analysis.MinEvidence,
		EvolutionLimit:      c.Analysis.EvolutionLimit,
		SpeakerTopK:         c.Analysis.SpeakerTopK,
	}
}
