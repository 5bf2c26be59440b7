package outreach

import (
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
}

func ConfigFrom(c config.OutreachConfig) *Config {
	return &Config{
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Timeout:    config.GetDuration(c.Timeout),
		CacheTTL:   config.GetDuration(c.CacheTTL),
		MaxRetries: 2,
	}
}
