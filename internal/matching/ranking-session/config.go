package rankingsession

import (
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
)

type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	SnapshotTTL   time.Duration
	MaxHistory    int
	// MaxResults caps the results returned and kept per snapshot; 0 keeps all.
	MaxResults int
	// FetchLimit is passed to the record store as a hint; 0 lets the store decide.
	FetchLimit int
	// MaxClarifications is the per-dimension question budget.
	MaxClarifications int
}

func DefaultConfig() *Config {
	return &Config{
		IdleTimeout:       30 * time.Minute,
		SweepInterval:     time.Minute,
		SnapshotTTL:       24 * time.Hour,
		MaxHistory:        20,
		MaxResults:        50,
		MaxClarifications: 1,
	}
}

// ConfigFrom builds the session config from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		IdleTimeout:       config.GetDuration(cfg.Session.IdleTimeout),
		SweepInterval:     config.GetDuration(cfg.Session.SweepInterval),
		SnapshotTTL:       config.GetDuration(cfg.Session.SnapshotTTL),
		MaxHistory:        cfg.Session.MaxHistory,
		MaxResults:        cfg.Matching.MaxResults,
		FetchLimit:        cfg.RecordStore.MaxFetch,
		MaxClarifications: 1,
	}
}
