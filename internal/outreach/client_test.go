package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

const candidateID = "00000000-0000-4000-8000-000000000001"

func testRecord(t *testing.T) *models.CandidateRecord {
	t.Helper()
	rec, err := models.NewCandidateRecord(models.CandidateRecord{
		ID:              candidateID,
		Title:           "Data Engineer",
		Skills:          []string{"python", "sql", "airflow", "spark"},
		ExperienceYears: 6,
		Location:        models.Location{Text: "London, UK"},
	})
	require.NoError(t, err)
	return rec
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig(baseURL string) *Config {
	return &Config{BaseURL: baseURL, APIKey: "secret", Timeout: 2 * time.Second, CacheTTL: 7 * 24 * time.Hour}
}

func TestGenerate_CallsGeneratorAndCaches(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/ai/outreach", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "python engineers", body.Query)
		assert.Equal(t, candidateID, body.Candidate.ID)
		assert.Equal(t, candidateID, body.Match.CandidateID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"outreach_message":"Hello there","screening_questions":["q1","q2","q3"]}`))
	}))
	defer server.Close()

	mr, rdb := setupRedis(t)
	client := NewClient(testConfig(server.URL), rdb, logger.NewTestLogger(t))
	match := models.MatchResult{CandidateID: candidateID, Score: 0.9}

	first, err := client.Generate(context.Background(), match, testRecord(t), "python engineers")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", first.OutreachMessage)
	assert.Equal(t, []string{"q1", "q2", "q3"}, first.ScreeningQuestions)
	assert.False(t, first.Fallback)
	assert.False(t, first.Cached)

	key := CacheKey(candidateID, "python engineers")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 7*24*time.Hour, mr.TTL(key))

	second, err := client.Generate(context.Background(), match, testRecord(t), "python engineers")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.OutreachMessage, second.OutreachMessage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerate_RequestCarriesNoContactDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		cand := raw["candidate"].(map[string]interface{})
		for _, field := range []string{"email", "phone", "fullName", "address"} {
			_, ok := cand[field]
			assert.False(t, ok, field)
		}
		_, _ = w.Write([]byte(`{"outreach_message":"Hi","screening_questions":["q"]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, logger.NewTestLogger(t))
	_, err := client.Generate(context.Background(), models.MatchResult{CandidateID: candidateID}, testRecord(t), "q")
	require.NoError(t, err)
}

func TestGenerate_FallsBackAfterRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	mr, rdb := setupRedis(t)
	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	client := NewClient(cfg, rdb, logger.NewTestLogger(t))

	res, err := client.Generate(context.Background(), models.MatchResult{CandidateID: candidateID}, testRecord(t), "data engineers")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.OutreachMessage, "Data Engineer")
	assert.Contains(t, res.OutreachMessage, "python, sql, airflow")
	assert.Len(t, res.ScreeningQuestions, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.False(t, mr.Exists(CacheKey(candidateID, "data engineers")), "fallbacks are not cached")
}

func TestGenerate_EmptyDraftFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"outreach_message":"  ","screening_questions":[]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 0
	client := NewClient(cfg, nil, logger.NewTestLogger(t))

	res, err := client.Generate(context.Background(), models.MatchResult{}, testRecord(t), "q")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

func TestGenerate_NoGeneratorConfigured(t *testing.T) {
	client := NewClient(testConfig(""), nil, logger.NewTestLogger(t))

	res, err := client.Generate(context.Background(), models.MatchResult{}, testRecord(t), "q")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

func TestGenerate_Errors(t *testing.T) {
	client := NewClient(testConfig(""), nil, logger.NewTestLogger(t))
	_, err := client.Generate(context.Background(), models.MatchResult{}, nil, "q")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewClient(testConfig(server.URL), nil, logger.NewTestLogger(t)).
		Generate(ctx, models.MatchResult{}, testRecord(t), "q")
	assert.True(t, errors.Is(err, apperrors.ErrCancelled))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("a", "q"), CacheKey("a", "q"))
	assert.NotEqual(t, CacheKey("a", "q"), CacheKey("b", "q"))
	assert.NotEqual(t, CacheKey("a", "q"), CacheKey("a", "q2"))
}
