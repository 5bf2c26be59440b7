package scoringengine

import (
	"fmt"
	"math"

	"github.com/nadhanasaripv257/skillq-app/internal/common/config"
	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
)

// Weights are the per-dimension multipliers of the weighted sum. They must sum to 1.0.
type Weights struct {
	RequiredSkills  float64 `json:"requiredSkills"`
	PreferredSkills float64 `json:"preferredSkills"`
	Experience      float64 `json:"experience"`
	Location        float64 `json:"location"`
	Title           float64 `json:"title"`
}

func DefaultWeights() Weights {
	return Weights{
		RequiredSkills:  0.40,
		PreferredSkills: 0.15,
		Experience:      0.20,
		Location:        0.15,
		Title:           0.10,
	}
}

func (w Weights) Sum() float64 {
	return w.RequiredSkills + w.PreferredSkills + w.Experience + w.Location + w.Title
}

// Validate rejects negative weights and weights that do not sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"required_skills":  w.RequiredSkills,
		"preferred_skills": w.PreferredSkills,
		"experience":       w.Experience,
		"location":         w.Location,
		"title":            w.Title,
	} {
		if v < 0 || math.IsNaN(v) {
			return apperrors.NewConfigurationError(fmt.Sprintf("weight %s must be a non-negative number", name))
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return apperrors.NewConfigurationError(fmt.Sprintf("weights must sum to 1.0, got %.6f", w.Sum()))
	}
	return nil
}

type Config struct {
	Weights                 Weights
	DisqualifyingMultiplier float64
	ExperienceDecayYears    float64
	Parallelism             int
}

func DefaultConfig() *Config {
	return &Config{
		Weights:                 DefaultWeights(),
		DisqualifyingMultiplier: 0.4,
		ExperienceDecayYears:    5,
		Parallelism:             8,
	}
}

// ConfigFrom converts the matching section of the application config.
func ConfigFrom(m config.MatchingConfig) *Config {
	return &Config{
		Weights: Weights{
			RequiredSkills:  m.Weights.RequiredSkills,
			PreferredSkills: m.Weights.PreferredSkills,
			Experience:      m.Weights.Experience,
			Location:        m.Weights.Location,
			Title:           m.Weights.Title,
		},
		DisqualifyingMultiplier: m.DisqualifyingMultiplier,
		ExperienceDecayYears:    m.ExperienceDecayYears,
		Parallelism:             m.Parallelism,
	}
}

func (c *Config) validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.DisqualifyingMultiplier < 0 || c.DisqualifyingMultiplier > 1 {
		return apperrors.NewConfigurationError("disqualifying multiplier must be within [0,1]")
	}
	if c.ExperienceDecayYears < 0 {
		return apperrors.NewConfigurationError("experience decay distance must not be negative")
	}
	return nil
}
