package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the rankcore service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Reranker   RerankerConfig   `yaml:"reranker"`
	Engine     EngineConfig     `yaml:"engine"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Shadow     ShadowConfig     `yaml:"shadow"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AuthConfig holds API authentication settings. Empty APIKeys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig holds corpus loading settings.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds the Redis embedding-cache settings. Addrs empty
// disables caching entirely.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RerankerConfig holds the cross-encoder provider settings.
type RerankerConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EngineConfig holds ranking engine settings.
type EngineConfig struct {
	Candidates        int     `yaml:"candidates"`          // lexical candidates fed to providers
	DefaultTopK       int     `yaml:"default_top_k"`
	MaxTopK           int     `yaml:"max_top_k"`
	ProviderTimeoutMs int     `yaml:"provider_timeout_ms"` // per provider call
	StrictProviders   bool    `yaml:"strict_providers"`    // provider failure fails the search
	Confidence        string  `yaml:"confidence"`          // "minmax" (default) or "softmax"
	SoftmaxT          float64 `yaml:"softmax_temperature"`
	IntentGuard       bool    `yaml:"intent_guard"`
	BatchWorkers      int     `yaml:"batch_workers"`
}

// ResilienceConfig holds primary/fallback race settings.
type ResilienceConfig struct {
	DeadlineMs      int  `yaml:"deadline_ms"`
	FallbackEnabled bool `yaml:"fallback_enabled"`
}

// ShadowConfig holds shadow-comparison settings.
type ShadowConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"` // fraction of traffic compared
	TopDeltas  int     `yaml:"top_deltas"`  // largest score deltas reported
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 15
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Engine.Candidates <= 0 {
		c.Engine.Candidates = 50
	}
	if c.Engine.DefaultTopK <= 0 {
		c.Engine.DefaultTopK = 10
	}
	if c.Engine.MaxTopK <= 0 {
		c.Engine.MaxTopK = 100
	}
	if c.Engine.ProviderTimeoutMs <= 0 {
		c.Engine.ProviderTimeoutMs = 2000
	}
	if c.Engine.Confidence == "" {
		c.Engine.Confidence = "minmax"
	}
	if c.Engine.SoftmaxT <= 0 {
		c.Engine.SoftmaxT = 1.0
	}
	if c.Engine.BatchWorkers <= 0 {
		c.Engine.BatchWorkers = 4
	}
	if c.Resilience.DeadlineMs <= 0 {
		c.Resilience.DeadlineMs = 1500
	}
	if c.Shadow.SampleRate <= 0 {
		c.Shadow.SampleRate = 0.10
	}
	if c.Shadow.TopDeltas <= 0 {
		c.Shadow.TopDeltas = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch c.Engine.Confidence {
	case "minmax", "softmax":
	default:
		return fmt.Errorf("engine.confidence must be \"minmax\" or \"softmax\", got %q", c.Engine.Confidence)
	}
	if c.Shadow.SampleRate > 1 {
		return fmt.Errorf("shadow.sample_rate must be at most 1, got %v", c.Shadow.SampleRate)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
