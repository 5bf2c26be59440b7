package scoringengine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

const component = "scoring-engine"

// Ranking is the sorted outcome of one ranking pass.
type Ranking struct {
	Results  []models.MatchResult `json:"results"`
	Excluded []models.Exclusion   `json:"excluded,omitempty"`
	Scored   int                  `json:"scored"`
}

// Ranker scores a candidate snapshot on a fixed-size worker pool.
type Ranker struct {
	engine      *Engine
	parallelism int
	logger      logger.Logger
}

func NewRanker(engine *Engine, parallelism int, log logger.Logger) *Ranker {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Ranker{
		engine:      engine,
		parallelism: parallelism,
		logger:      logger.ForComponent(log, component),
	}
}

type slot struct {
	result   models.MatchResult
	excluded string
}

// Rank scores every candidate into a slot indexed by input position, then sorts the
// admitted results with MatchResult.Less. Cancelling ctx abandons the pass and
// returns a cancelled error with no partial results.
func (r *Ranker) Rank(ctx context.Context, f models.FilterModel, candidates []*models.CandidateRecord) (*Ranking, error) {
	start := time.Now()
	buf := make([]slot, len(candidates))

	// Records sharing an id conflict; none of them is ranked, whatever their order.
	copies := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if c != nil {
			copies[c.ID]++
		}
	}
	for i, c := range candidates {
		if c != nil && copies[c.ID] > 1 {
			buf[i].excluded = fmt.Sprintf("duplicate candidate id (%d records)", copies[c.ID])
			metrics.CandidatesExcluded.WithLabelValues("duplicate").Inc()
		}
	}

	indexes := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indexes)
		for i := range candidates {
			if buf[i].excluded != "" {
				continue
			}
			select {
			case indexes <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := r.parallelism
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				buf[i] = r.scoreOne(f, candidates[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperrors.NewCancelledError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelledError(err)
	}

	ranking := &Ranking{Results: make([]models.MatchResult, 0, len(candidates))}
	for i, s := range buf {
		if s.excluded != "" {
			id := ""
			if candidates[i] != nil {
				id = candidates[i].ID
			}
			ranking.Excluded = append(ranking.Excluded, models.Exclusion{CandidateID: id, Reason: s.excluded})
			continue
		}
		ranking.Results = append(ranking.Results, s.result)
	}
	ranking.Scored = len(ranking.Results)

	sort.Slice(ranking.Results, func(i, j int) bool {
		return ranking.Results[i].Less(ranking.Results[j])
	})
	sort.SliceStable(ranking.Excluded, func(i, j int) bool {
		return ranking.Excluded[i].CandidateID < ranking.Excluded[j].CandidateID
	})

	metrics.CandidatesScored.Add(float64(ranking.Scored))
	for _, ex := range ranking.Excluded {
		r.logger.Warn("candidate excluded", map[string]interface{}{
			"candidateId": ex.CandidateID,
			"reason":      ex.Reason,
		})
	}

	duration := time.Since(start)
	fields := map[string]interface{}{
		"scored":     ranking.Scored,
		"excluded":   len(ranking.Excluded),
		"durationMs": duration.Milliseconds(),
	}
	if duration > 500*time.Millisecond {
		r.logger.Warn("ranking pass exceeded 500ms", fields)
	} else {
		r.logger.Debug("ranking pass completed", fields)
	}

	return ranking, nil
}

// scoreOne isolates a single candidate so one malformed record never aborts the pass.
func (r *Ranker) scoreOne(f models.FilterModel, c *models.CandidateRecord) (s slot) {
	defer func() {
		if rec := recover(); rec != nil {
			s = slot{excluded: fmt.Sprintf("scoring fault: %v", rec)}
			metrics.CandidatesExcluded.WithLabelValues("fault").Inc()
		}
	}()

	if err := c.Validate(); err != nil {
		metrics.CandidatesExcluded.WithLabelValues("malformed").Inc()
		return slot{excluded: fmt.Sprintf("malformed record: %v", err)}
	}
	if reason, ok := r.engine.Admit(f, *c); !ok {
		metrics.CandidatesExcluded.WithLabelValues("filtered").Inc()
		return slot{excluded: reason}
	}
	return slot{result: r.engine.Score(f, *c)}
}
