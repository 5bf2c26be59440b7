package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Outreach.APIKey == "" {
		cfg.Outreach.APIKey = os.Getenv("OUTREACH_API_KEY")
	}
}

// Defaults returns a configuration holding only default values. It is not validated,
// so it suits in-memory runs that need no database.
func Defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "skillq"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.RecordStore.Backend == "" {
		cfg.RecordStore.Backend = "postgres"
	}
	if cfg.RecordStore.Index == "" {
		cfg.RecordStore.Index = "candidates"
	}
	if cfg.RecordStore.MaxFetch == 0 {
		cfg.RecordStore.MaxFetch = 10000
	}

	if cfg.Matching.Weights.IsZero() {
		cfg.Matching.Weights = WeightsConfig{
			RequiredSkills:  0.40,
			PreferredSkills: 0.15,
			Experience:      0.20,
			Location:        0.15,
			Title:           0.10,
		}
	}
	if cfg.Matching.DisqualifyingMultiplier == 0 {
		cfg.Matching.DisqualifyingMultiplier = 0.4
	}
	if cfg.Matching.ExperienceDecayYears == 0 {
		cfg.Matching.ExperienceDecayYears = 5
	}
	if cfg.Matching.Parallelism == 0 {
		cfg.Matching.Parallelism = 8
	}
	if cfg.Matching.MaxResults == 0 {
		cfg.Matching.MaxResults = 50
	}

	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 30 * 60 * 1000
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = 60 * 1000
	}
	if cfg.Session.SnapshotTTL == 0 {
		cfg.Session.SnapshotTTL = 24 * 60 * 60 * 1000
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 20
	}

	if cfg.Outreach.Timeout == 0 {
		cfg.Outreach.Timeout = 60000
	}
	if cfg.Outreach.CacheTTL == 0 {
		cfg.Outreach.CacheTTL = 7 * 24 * 60 * 60 * 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1.0
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if !WeightsBalanced(cfg.Matching.Weights) {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("matching.weights must sum to 1.0, got %.4f", cfg.Matching.Weights.Sum()))
	}
	if cfg.Matching.DisqualifyingMultiplier < 0 || cfg.Matching.DisqualifyingMultiplier > 1 {
		return apperrors.NewConfigurationError("matching.disqualifying_multiplier must be within [0,1]")
	}
	if cfg.Matching.ExperienceDecayYears < 0 {
		return apperrors.NewConfigurationError("matching.experience_decay_years must not be negative")
	}
	if cfg.Matching.Parallelism < 0 {
		return apperrors.NewConfigurationError("matching.parallelism must not be negative")
	}

	switch cfg.RecordStore.Backend {
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return apperrors.NewConfigurationError("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return apperrors.NewConfigurationError("database.postgres.database is required")
		}
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return apperrors.NewConfigurationError("database.elasticsearch.addresses or url is required")
		}
	default:
		return apperrors.NewConfigurationError(
			fmt.Sprintf("record_store.backend %q is not supported", cfg.RecordStore.Backend))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return apperrors.NewConfigurationError("tracing.jaeger_endpoint is required when tracing is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
