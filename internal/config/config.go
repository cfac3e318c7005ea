package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds connection settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Timeout returns the per-call timeout.
func (c OpenAIConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the text generator implementation.
type GeneratorConfig struct {
	Type         string        `yaml:"type"`
	MaxSentences int           `yaml:"max_sentences"`
	OpenAI       *OpenAIConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	PGVector *PGVectorConfig `yaml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PGVectorConfig contains connection details for a PostgreSQL pgvector table.
type PGVectorConfig struct {
	DSNEnv      string `yaml:"dsn_env"`
	Table       string `yaml:"table"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	Mode              string   `yaml:"mode"`
	IngestOnStart     bool     `yaml:"ingest_on_start"`
	IngestTimeoutSecs int      `yaml:"ingest_timeout_secs"`
	QueryTimeoutSecs  int      `yaml:"query_timeout_secs"`
	AllowOrigins      []string `yaml:"allow_origins"`
}

// CatalogConfig points at the crop catalog. An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// OptimizerConfig tunes the crop allocation solver.
type OptimizerConfig struct {
	Integer  bool `yaml:"integer"`
	MaxNodes int  `yaml:"max_nodes"`
}

// RiskConfig holds the tuning constants of the per-crop risk score.
type RiskConfig struct {
	Floor                 float64 `yaml:"floor"`
	LossBase              float64 `yaml:"loss_base"`
	LossCap               float64 `yaml:"loss_cap"`
	LossPerDollar         float64 `yaml:"loss_per_dollar"`
	LossVolatility        float64 `yaml:"loss_volatility"`
	ThinMarginThreshold   float64 `yaml:"thin_margin_threshold"`
	ThinBase              float64 `yaml:"thin_base"`
	ThinCap               float64 `yaml:"thin_cap"`
	ThinPerDollar         float64 `yaml:"thin_per_dollar"`
	ThinVolatility        float64 `yaml:"thin_volatility"`
	HealthyBase           float64 `yaml:"healthy_base"`
	HealthyCap            float64 `yaml:"healthy_cap"`
	HealthyVolatility     float64 `yaml:"healthy_volatility"`
	HealthyScenarioWeight float64 `yaml:"healthy_scenario_weight"`
}

// WeatherConfig configures the Open-Meteo client.
type WeatherConfig struct {
	BaseURL             string  `yaml:"base_url"`
	Latitude            float64 `yaml:"latitude"`
	Longitude           float64 `yaml:"longitude"`
	Timezone            string  `yaml:"timezone"`
	PastDays            int     `yaml:"past_days"`
	ForecastDays        int     `yaml:"forecast_days"`
	NormalPrecipitation float64 `yaml:"normal_precipitation"`
	TimeoutSecs         int     `yaml:"timeout_secs"`
}

// USDAConfig configures the NASS QuickStats proxy.
type USDAConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Debug       bool              `yaml:"debug"`
	LogFile     string            `yaml:"log_file"`
	Server      ServerConfig      `yaml:"server"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Optimizer   OptimizerConfig   `yaml:"optimizer"`
	Risk        RiskConfig        `yaml:"risk"`
	Weather     WeatherConfig     `yaml:"weather"`
	USDA        USDAConfig        `yaml:"usda"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/plantprofit/config.yaml.
// If neither exists, it writes defaults to ~/.config/plantprofit/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "plantprofit", "config.yaml"), nil
}

// Default returns the built-in configuration: offline embedder and generator,
// in-memory vector store, integer allocations.
func Default() *AppConfig {
	cfg := &AppConfig{
		Server: ServerConfig{
			Addr:              ":3001",
			Mode:              "release",
			IngestOnStart:     true,
			IngestTimeoutSecs: 120,
			QueryTimeoutSecs:  60,
			AllowOrigins:      []string{"*"},
		},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		Generator:   GeneratorConfig{Type: "extractive", MaxSentences: 3},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Optimizer:   OptimizerConfig{Integer: true, MaxNodes: 20000},
		Risk:        DefaultRisk(),
		Weather: WeatherConfig{
			BaseURL:             "https://api.open-meteo.com/v1/forecast",
			Latitude:            36.7378,
			Longitude:           -119.7871,
			Timezone:            "America/Los_Angeles",
			PastDays:            90,
			ForecastDays:        14,
			NormalPrecipitation: 2.5,
			TimeoutSecs:         10,
		},
		USDA: USDAConfig{
			BaseURL:           "https://quickstats.nass.usda.gov/api/api_GET/",
			APIKeyEnv:         "USDA_API_KEY",
			TimeoutSecs:       30,
			RequestsPerSecond: 2,
		},
	}
	return cfg
}

// DefaultRisk mirrors the dashboard's three-band risk heuristic.
func DefaultRisk() RiskConfig {
	return RiskConfig{
		Floor:                 5,
		LossBase:              70,
		LossCap:               95,
		LossPerDollar:         0.01,
		LossVolatility:        50,
		ThinMarginThreshold:   200,
		ThinBase:              40,
		ThinCap:               70,
		ThinPerDollar:         0.1,
		ThinVolatility:        30,
		HealthyBase:           5,
		HealthyCap:            40,
		HealthyVolatility:     35,
		HealthyScenarioWeight: 0.2,
	}
}

// ApplyDefaults fills unset fields, including the sections of the selected
// backends. It is safe to call again after overrides change a backend type.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3001"
	}
	if cfg.Server.IngestTimeoutSecs == 0 {
		cfg.Server.IngestTimeoutSecs = 120
	}
	if cfg.Server.QueryTimeoutSecs == 0 {
		cfg.Server.QueryTimeoutSecs = 60
	}
	if cfg.Generator.MaxSentences == 0 {
		cfg.Generator.MaxSentences = 3
	}
	if cfg.Optimizer.MaxNodes == 0 {
		cfg.Optimizer.MaxNodes = 20000
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini")
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{URL: "http://localhost:6333"}
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.PGVector == nil {
		cfg.VectorStore.PGVector = &PGVectorConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = "plantprofit"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if p := cfg.VectorStore.PGVector; p != nil {
		if p.DSNEnv == "" {
			p.DSNEnv = "PLANTPROFIT_PG_DSN"
		}
		if p.Table == "" {
			p.Table = "plantprofit_vectors"
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 15
		}
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
}

// Seconds converts a whole-second setting to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }
