package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		// GenerationRPS limits suggest-edit calls per client.
		GenerationRPS   float64 `yaml:"generation_rps"`
		GenerationBurst int     `yaml:"generation_burst"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"` // generation model
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"ai"`
	Embedding struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		APIKey    string `yaml:"api_key"` // falls back to ai.api_key
		BaseURL   string `yaml:"base_url"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedding"`
	Selection struct {
		MinSelection   int           `yaml:"min_selection"`
		NormalizeAbove int           `yaml:"normalize_above"`
		MinWords       int           `yaml:"min_words"`
		WordRatio      float64       `yaml:"word_ratio"`
		LargeSelection int           `yaml:"large_selection"`
		BackupTTL      time.Duration `yaml:"backup_ttl"`
		SessionIdle    time.Duration `yaml:"session_idle"`
	} `yaml:"selection"`
	Replace struct {
		PrefixLength       int     `yaml:"prefix_length"`
		ContextWindow      int     `yaml:"context_window"`
		TokenWindowTrigger int     `yaml:"token_window_trigger"`
		TokenMatchRatio    float64 `yaml:"token_match_ratio"`
		SentenceMinLength  int     `yaml:"sentence_min_length"`
	} `yaml:"replace"`
	Editing struct {
		PendingTTL time.Duration `yaml:"pending_ttl"`
	} `yaml:"editing"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.GenerationRPS = 1
	cfg.Server.GenerationBurst = 3
	cfg.Storage.Path = "regdraft.db"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "gemini-2.0-flash"
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.Model = "text-embedding-004"
	cfg.Embedding.Dimension = 768
	cfg.Selection.MinSelection = 10
	cfg.Selection.NormalizeAbove = 50
	cfg.Selection.MinWords = 5
	cfg.Selection.WordRatio = 0.30
	cfg.Selection.LargeSelection = 400
	cfg.Selection.BackupTTL = 5 * time.Minute
	cfg.Selection.SessionIdle = 2 * time.Hour
	cfg.Replace.PrefixLength = 50
	cfg.Replace.ContextWindow = 300
	cfg.Replace.TokenWindowTrigger = 100
	cfg.Replace.TokenMatchRatio = 0.70
	cfg.Replace.SentenceMinLength = 15
	cfg.Editing.PendingTTL = 30 * time.Minute
	return &cfg
}

// LoadConfig reads .env, then the YAML file over the defaults, then REGDRAFT_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.AI.APIKey
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"REGDRAFT_ADDR":               &cfg.Server.Addr,
		"REGDRAFT_DB":                 &cfg.Storage.Path,
		"REGDRAFT_LOG_LEVEL":          &cfg.Log.Level,
		"REGDRAFT_LOG_FORMAT":         &cfg.Log.Format,
		"REGDRAFT_AI_PROVIDER":        &cfg.AI.Provider,
		"REGDRAFT_AI_MODEL":           &cfg.AI.Model,
		"REGDRAFT_API_KEY":            &cfg.AI.APIKey,
		"REGDRAFT_AI_BASE_URL":        &cfg.AI.BaseURL,
		"REGDRAFT_EMBEDDING_PROVIDER": &cfg.Embedding.Provider,
		"REGDRAFT_EMBEDDING_MODEL":    &cfg.Embedding.Model,
		"REGDRAFT_EMBEDDING_API_KEY":  &cfg.Embedding.APIKey,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("REGDRAFT_EMBEDDING_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REGDRAFT_EMBEDDING_DIMENSION: %w", err)
		}
		cfg.Embedding.Dimension = n
	}
	if v := os.Getenv("REGDRAFT_GENERATION_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REGDRAFT_GENERATION_RPS: %w", err)
		}
		cfg.Server.GenerationRPS = f
	}
	return nil
}
