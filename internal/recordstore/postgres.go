package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore/queries"
)

const backendPostgres = "postgres"

// PostgresStore reads the resumes table and, for contact details only, resumes_pii.
type PostgresStore struct {
	db       *sql.DB
	maxFetch int
	logger   logger.Logger
}

func NewPostgresStore(db *sql.DB, maxFetch int, log logger.Logger) *PostgresStore {
	if maxFetch <= 0 {
		maxFetch = 10000
	}
	return &PostgresStore{
		db:       db,
		maxFetch: maxFetch,
		logger:   logger.ForComponent(log, "recordstore-postgres"),
	}
}

// FetchCandidates returns every valid record up to the hint limit. Hints do not
// filter rows: scoring needs the near-misses too.
func (s *PostgresStore) FetchCandidates(ctx context.Context, hints Hints) (out []*models.CandidateRecord, err error) {
	start := time.Now()
	defer func() { observeFetch(backendPostgres, start, err) }()

	limit := s.maxFetch
	if hints.Limit > 0 && hints.Limit < limit {
		limit = hints.Limit
	}

	rows, err := s.db.QueryContext(ctx, queries.SelectCandidates, limit)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, id, scanErr := scanCandidate(rows)
		if scanErr != nil {
			return nil, s.upstream(ctx, scanErr)
		}
		if rec == nil {
			continue
		}
		built, buildErr := models.NewCandidateRecord(*rec)
		if buildErr != nil {
			metrics.CandidatesExcluded.WithLabelValues("malformed").Inc()
			s.logger.Warn("Skipping malformed resume row", map[string]interface{}{
				"candidateId": id,
				"error":       buildErr.Error(),
			})
			continue
		}
		out = append(out, built)
	}
	if err = rows.Err(); err != nil {
		return nil, s.upstream(ctx, err)
	}

	s.logger.Debug("Fetched candidate snapshot", map[string]interface{}{
		"count": len(out),
		"limit": limit,
	})
	return out, nil
}

func (s *PostgresStore) FetchCandidate(ctx context.Context, id string) (*models.CandidateRecord, error) {
	rows, err := s.db.QueryContext(ctx, queries.SelectCandidateByID, id)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, s.upstream(ctx, err)
		}
		return nil, apperrors.NewCandidateNotFoundError(id)
	}
	rec, _, err := scanCandidate(rows)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	return models.NewCandidateRecord(*rec)
}

// FetchPII joins resumes_pii with the profile link kept on resumes.
func (s *PostgresStore) FetchPII(ctx context.Context, id string) (*models.PIIEnvelope, error) {
	var (
		name, email, phone, address, link sql.NullString
	)
	err := s.db.QueryRowContext(ctx, queries.SelectPII, id).Scan(&name, &email, &phone, &address, &link)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewCandidateNotFoundError(id)
	}
	if err != nil {
		return nil, s.upstream(ctx, err)
	}

	env := &models.PIIEnvelope{
		CandidateID: id,
		FullName:    name.String,
		Email:       email.String,
		Phone:       phone.String,
		Address:     address.String,
	}
	if link.String != "" {
		env.Links = []string{link.String}
	}
	return env, nil
}

// ListSkills returns the distinct lowercase skills and tools across all resumes.
func (s *PostgresStore) ListSkills(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queries.SelectDistinctSkills)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	defer rows.Close()

	var skills []string
	for rows.Next() {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return nil, s.upstream(ctx, err)
		}
		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, s.upstream(ctx, err)
	}
	return skills, nil
}

func (s *PostgresStore) upstream(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewCancelledError(ctxErr)
	}
	s.logger.Error("Postgres record store failure", map[string]interface{}{
		"error": err.Error(),
	})
	return apperrors.NewUpstreamUnavailableError(backendPostgres, err)
}

// scanCandidate reads one row of queries.CandidateColumns. A row without an id yields a nil record.
func scanCandidate(rows *sql.Rows) (*models.CandidateRecord, string, error) {
	var (
		id, title, location, state, country sql.NullString
		employmentType, availability        sql.NullString
		years                               sql.NullInt64
		skills, tools, companies            []string
		education, certifications           []string
	)
	err := rows.Scan(
		&id, &title,
		pq.Array(&skills), pq.Array(&tools),
		&years,
		&location, &state, &country,
		pq.Array(&companies), pq.Array(&education), pq.Array(&certifications),
		&employmentType, &availability,
	)
	if err != nil {
		return nil, "", fmt.Errorf("scan resume row: %w", err)
	}
	if !id.Valid || id.String == "" {
		return nil, "", nil
	}

	return &models.CandidateRecord{
		ID:              id.String,
		Title:           title.String,
		Skills:          append(skills, tools...),
		ExperienceYears: int(years.Int64),
		Location: models.Location{
			Text:       joinNonEmpty(", ", location.String, country.String),
			RegionCode: state.String,
		},
		Companies:      companies,
		Education:      education,
		Certifications: certifications,
		EmploymentType: employmentType.String,
		Availability:   models.ParseAvailability(availability.String),
	}, id.String, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
