package config

import (
	"fmt"
	"math"
)

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	RecordStore RecordStoreConfig `mapstructure:"record_store"`
	Matching    MatchingConfig    `mapstructure:"matching"`
	Session     SessionConfig     `mapstructure:"session"`
	Outreach    OutreachConfig    `mapstructure:"outreach"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	MetricsPath  string `mapstructure:"metrics_path"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RecordStoreConfig selects where candidate snapshots come from.
type RecordStoreConfig struct {
	Backend  string `mapstructure:"backend"` // postgres | elasticsearch
	Index    string `mapstructure:"index"`
	MaxFetch int    `mapstructure:"max_fetch"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds, 0 disables the snapshot cache
}

// WeightsConfig holds the per-dimension scoring weights.
type WeightsConfig struct {
	RequiredSkills  float64 `mapstructure:"required_skills"`
	PreferredSkills float64 `mapstructure:"preferred_skills"`
	Experience      float64 `mapstructure:"experience"`
	Location        float64 `mapstructure:"location"`
	Title           float64 `mapstructure:"title"`
}

// Sum returns the total of all weights.
func (w WeightsConfig) Sum() float64 {
	return w.RequiredSkills + w.PreferredSkills + w.Experience + w.Location + w.Title
}

// IsZero reports whether no weight was configured.
func (w WeightsConfig) IsZero() bool {
	return w == WeightsConfig{}
}

type MatchingConfig struct {
	Weights                 WeightsConfig `mapstructure:"weights"`
	DisqualifyingMultiplier float64       `mapstructure:"disqualifying_multiplier"`
	ExperienceDecayYears    float64       `mapstructure:"experience_decay_years"`
	Parallelism             int           `mapstructure:"parallelism"`
	VocabularyFile          string        `mapstructure:"vocabulary_file"`
	MaxResults              int           `mapstructure:"max_results"`
}

type SessionConfig struct {
	IdleTimeout   int `mapstructure:"idle_timeout"`   // milliseconds
	SweepInterval int `mapstructure:"sweep_interval"` // milliseconds
	SnapshotTTL   int `mapstructure:"snapshot_ttl"`   // milliseconds
	MaxHistory    int `mapstructure:"max_history"`
}

// OutreachConfig points at the external outreach/screening generator.
type OutreachConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

const weightTolerance = 1e-9

// WeightsBalanced reports whether the weights sum to 1.0.
func WeightsBalanced(w WeightsConfig) bool {
	return math.Abs(w.Sum()-1.0) <= weightTolerance
}
