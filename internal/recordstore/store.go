// Package recordstore adapts candidate storage backends to the read-only view the
// matching engine consumes.
package recordstore

import (
	"context"
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// Hints narrow what a backend returns. They are advisory: a store may return more
// candidates than the hints suggest, never fewer than it holds up to Limit.
type Hints struct {
	Skills    []string `json:"skills,omitempty"`
	Titles    []string `json:"titles,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Limit     int      `json:"limit"`
}

// HintsFromFilter derives fetch hints from a merged filter.
func HintsFromFilter(f models.FilterModel, limit int) Hints {
	skills := append(append([]string(nil), f.RequiredSkills...), f.PreferredSkills...)
	return Hints{
		Skills:    models.NormalizeSkills(skills),
		Titles:    append([]string(nil), f.TitleKeywords...),
		Locations: append([]string(nil), f.Locations...),
		Limit:     limit,
	}
}

// Store is the candidate record capability. FetchPII is for the outreach and display
// side only; ranking never calls it.
type Store interface {
	FetchCandidates(ctx context.Context, hints Hints) ([]*models.CandidateRecord, error)
	FetchCandidate(ctx context.Context, id string) (*models.CandidateRecord, error)
	FetchPII(ctx context.Context, id string) (*models.PIIEnvelope, error)
}

// PIISource resolves contact details for one candidate.
type PIISource interface {
	FetchPII(ctx context.Context, id string) (*models.PIIEnvelope, error)
}

// SkillLister is implemented by stores that can enumerate the skills in the corpus.
type SkillLister interface {
	ListSkills(ctx context.Context) ([]string, error)
}

func observeFetch(backend string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreFetchDuration.WithLabelValues(backend, status).Observe(time.Since(start).Seconds())
}
