package model

import "time"

// Config is the complete modwatch configuration. It is resolved once at
// startup (flags > MODWATCH_* env > config file > defaults) and passed by
// pointer to the components that need it.
type Config struct {
	Discord     DiscordConfig     `yaml:"discord" mapstructure:"discord"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	FactCheck   FactCheckConfig   `yaml:"factcheck" mapstructure:"factcheck"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Moderation  ModerationConfig  `yaml:"moderation" mapstructure:"moderation"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// DiscordConfig configures the chat transport
type DiscordConfig struct {
	Token          string `yaml:"token,omitempty" mapstructure:"token"`
	MonitorChannel string `yaml:"monitor_channel" mapstructure:"monitor_channel"` // Channel whose posts are screened
	ModChannel     string `yaml:"mod_channel" mapstructure:"mod_channel"`         // Channel where moderators work
}

// LLMConfig configures the generative model and the embedding model
type LLMConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model             string `yaml:"model" mapstructure:"model"`
	APIKey            string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	EmbeddingProvider string `yaml:"embedding_provider" mapstructure:"embedding_provider"` // openai, ollama
	EmbeddingModel    string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// FactCheckConfig configures evidence sources and the consensus thresholds
type FactCheckConfig struct {
	Source              string        `yaml:"source" mapstructure:"source"` // google, claimbuster
	GoogleAPIKey        string        `yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`
	ClaimBusterAPIKey   string        `yaml:"claimbuster_api_key,omitempty" mapstructure:"claimbuster_api_key"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MajorityFraction    float64       `yaml:"majority_fraction" mapstructure:"majority_fraction"`
	Strategy            string        `yaml:"strategy" mapstructure:"strategy"` // entailment, sentiment
	RequestsPerSecond   float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst               int           `yaml:"burst" mapstructure:"burst"`
	HostRates           []HostRate    `yaml:"host_rates,omitempty" mapstructure:"host_rates"`
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HostRate overrides the request budget for one evidence API host
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst,omitempty" mapstructure:"burst"`
}

// CacheConfig configures the embedding and search caches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ModerationConfig configures the report and review workflows
type ModerationConfig struct {
	ReportTimeout time.Duration `yaml:"report_timeout" mapstructure:"report_timeout"` // Idle limit for an intake dialog
	ReviewTimeout time.Duration `yaml:"review_timeout" mapstructure:"review_timeout"` // Idle limit for a review session
	Suspension    time.Duration `yaml:"suspension" mapstructure:"suspension"`         // Reporting ban for adversarial reporters
	Ledger        string        `yaml:"ledger" mapstructure:"ledger"`                 // memory, redis
	RedisAddr     string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// ConcurrencyConfig configures batch classification
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			MonitorChannel: "group-1",
			ModChannel:     "group-1-mod",
		},
		LLM: LLMConfig{
			Provider:          "",
			Model:             "gpt-4o-mini",
			Timeout:           30,
			MaxTokens:         300,
			EmbeddingProvider: "openai",
			EmbeddingModel:    "text-embedding-3-small",
		},
		FactCheck: FactCheckConfig{
			Source:              "google",
			SimilarityThreshold: 0.75,
			MajorityFraction:    0.66,
			Strategy:            "entailment",
			RequestsPerSecond:   2,
			Burst:               4,
			Timeout:             15 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskDir:   ".modwatch-cache",
			DiskTTL:   7 * 24 * time.Hour,
		},
		Moderation: ModerationConfig{
			ReportTimeout: 30 * time.Minute,
			ReviewTimeout: 1 * time.Hour,
			Suspension:    24 * time.Hour,
			Ledger:        "memory",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
