package recordstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore/queries"
)

const backendElasticsearch = "elasticsearch"

// ElasticsearchStore reads candidates from a PII-free search index. Contact details
// come from a separate PIISource, usually the Postgres store.
type ElasticsearchStore struct {
	client   *elasticsearch.Client
	index    string
	maxFetch int
	pii      PIISource
	logger   logger.Logger
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, maxFetch int, pii PIISource, log logger.Logger) *ElasticsearchStore {
	if maxFetch <= 0 {
		maxFetch = 10000
	}
	return &ElasticsearchStore{
		client:   client,
		index:    index,
		maxFetch: maxFetch,
		pii:      pii,
		logger:   logger.ForComponent(log, "recordstore-elasticsearch"),
	}
}

func (s *ElasticsearchStore) FetchCandidates(ctx context.Context, hints Hints) (out []*models.CandidateRecord, err error) {
	start := time.Now()
	defer func() { observeFetch(backendElasticsearch, start, err) }()

	size := s.maxFetch
	if hints.Limit > 0 && hints.Limit < size {
		size = hints.Limit
	}

	req, err := queries.BuildCandidateSearch(queries.CandidateSearch{
		Index:     s.index,
		Skills:    hints.Skills,
		Titles:    hints.Titles,
		Locations: hints.Locations,
		Size:      size,
	})
	if err != nil {
		return nil, apperrors.NewConfigurationError(err.Error())
	}

	result, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, doc := range result.Documents {
		rec, buildErr := models.NewCandidateRecord(doc.Record())
		if buildErr != nil {
			metrics.CandidatesExcluded.WithLabelValues("malformed").Inc()
			s.logger.Warn("Skipping malformed candidate document", map[string]interface{}{
				"candidateId": doc.ID,
				"error":       buildErr.Error(),
			})
			continue
		}
		out = append(out, rec)
	}

	if result.TotalHits > int64(len(result.Documents)) {
		s.logger.Warn("Candidate snapshot truncated", map[string]interface{}{
			"totalHits": result.TotalHits,
			"fetched":   len(result.Documents),
		})
	}
	return out, nil
}

func (s *ElasticsearchStore) FetchCandidate(ctx context.Context, id string) (*models.CandidateRecord, error) {
	req := esapi.GetRequest{Index: s.index, DocumentID: id}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewCandidateNotFoundError(id)
	}
	if res.IsError() {
		return nil, s.upstream(ctx, fmt.Errorf("get document failed: %s", res.String()))
	}

	doc, found, err := queries.DecodeDocument(res.Body)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	if !found {
		return nil, apperrors.NewCandidateNotFoundError(id)
	}
	return models.NewCandidateRecord(doc.Record())
}

func (s *ElasticsearchStore) FetchPII(ctx context.Context, id string) (*models.PIIEnvelope, error) {
	if s.pii == nil {
		return nil, apperrors.NewUpstreamUnavailableError("pii", errors.New("no PII source configured"))
	}
	return s.pii.FetchPII(ctx, id)
}

func (s *ElasticsearchStore) ListSkills(ctx context.Context) ([]string, error) {
	req, err := queries.BuildSkillAggregation(s.index, 1000)
	if err != nil {
		return nil, apperrors.NewConfigurationError(err.Error())
	}
	result, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Skills, nil
}

func (s *ElasticsearchStore) search(ctx context.Context, req *esapi.SearchRequest) (*queries.SearchResult, error) {
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, s.upstream(ctx, fmt.Errorf("search query failed: %s", res.String()))
	}

	result, err := queries.DecodeSearch(res.Body)
	if err != nil {
		return nil, s.upstream(ctx, err)
	}
	return result, nil
}

func (s *ElasticsearchStore) upstream(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewCancelledError(ctxErr)
	}
	s.logger.Error("Elasticsearch record store failure", map[string]interface{}{
		"index": s.index,
		"error": err.Error(),
	})
	return apperrors.NewUpstreamUnavailableError(backendElasticsearch, err)
}
