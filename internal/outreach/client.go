package outreach

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	httpclient "github.com/nadhanasaripv257/skillq-app/internal/common/http"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

const (
	generatePath   = "/api/ai/outreach"
	cacheKeyPrefix = "skillq:outreach:"
)

// Generator drafts outreach for one ranked candidate.
type Generator interface {
	Generate(ctx context.Context, match models.MatchResult, rec *models.CandidateRecord, query string) (*Result, error)
}

// Client calls the external outreach generator and caches its answers in Redis.
// Generator failures never reach the caller: they produce a templated Result with
// Fallback set.
type Client struct {
	config *Config
	http   *httpclient.Client
	cache  *redis.Client
	logger logger.Logger
}

// NewClient returns a client; cache may be nil.
func NewClient(cfg *Config, cache *redis.Client, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		http:   httpclient.NewClient(0).WithBearer(cfg.APIKey),
		cache:  cache,
		logger: logger.ForComponent(log, "outreach"),
	}
}

// CacheKey keys a cached draft by candidate and the md5 of the query text.
func CacheKey(candidateID, query string) string {
	sum := md5.Sum([]byte(query))
	return cacheKeyPrefix + candidateID + ":" + hex.EncodeToString(sum[:])
}

func (c *Client) Generate(ctx context.Context, match models.MatchResult, rec *models.CandidateRecord, query string) (*Result, error) {
	if rec == nil {
		return nil, apperrors.NewInvalidRequestError("candidate record is required")
	}
	key := CacheKey(rec.ID, query)

	if cached, ok := c.fromCache(ctx, key); ok {
		return cached, nil
	}

	result, err := c.execute(ctx, match, rec, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewCancelledError(ctxErr)
		}
		c.logger.Warn("Outreach generation failed, using templates", map[string]interface{}{
			"candidateId": rec.ID,
			"error":       err.Error(),
		})
		return templated(rec, query), nil
	}

	c.toCache(ctx, key, result)
	c.logger.Info("Outreach generated", map[string]interface{}{
		"candidateId": rec.ID,
		"questions":   len(result.ScreeningQuestions),
	})
	return result, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*Result, bool) {
	if c.cache == nil {
		return nil, false
	}
	val, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Outreach cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false
	}
	result.Cached = true
	return &result, true
}

func (c *Client) toCache(ctx context.Context, key string, result *Result) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.config.CacheTTL).Err(); err != nil {
		c.logger.Warn("Outreach cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Client) execute(ctx context.Context, match models.MatchResult, rec *models.CandidateRecord, query string) (*Result, error) {
	if c.config.BaseURL == "" {
		return nil, apperrors.NewOutreachFailedError(errors.New("no generator configured"))
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{Query: query, Candidate: summarize(rec), Match: match})
	if err != nil {
		return nil, apperrors.NewOutreachFailedError(err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.NewOutreachFailedError(ctx.Err())
			}
		}

		result, err := c.post(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, apperrors.NewOutreachFailedError(lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (*Result, error) {
	resp, err := c.http.PostJSON(ctx, strings.TrimRight(c.config.BaseURL, "/")+generatePath, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	if strings.TrimSpace(result.OutreachMessage) == "" || len(result.ScreeningQuestions) == 0 {
		return nil, errors.New("generator returned an empty draft")
	}
	result.Fallback = false
	result.Cached = false
	return &result, nil
}
