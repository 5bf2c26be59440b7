package recordstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

const snapshotKeyPrefix = "skillq:candidates:"

// CachedStore keeps candidate snapshots in Redis for a short TTL. Cache faults are
// logged and bypassed; failures of the wrapped store are returned unchanged.
// Contact details are never cached.
type CachedStore struct {
	inner  Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "recordstore-cache"),
	}
}

func (s *CachedStore) FetchCandidates(ctx context.Context, hints Hints) ([]*models.CandidateRecord, error) {
	key := SnapshotKey(hints)

	if val, err := s.redis.Get(ctx, key).Bytes(); err == nil {
		var records []*models.CandidateRecord
		if err := json.Unmarshal(val, &records); err == nil {
			s.logger.Debug("Candidate snapshot cache hit", map[string]interface{}{"count": len(records)})
			return records, nil
		}
		s.logger.Warn("Discarding unreadable cached snapshot", map[string]interface{}{"key": key})
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Snapshot cache read failed", map[string]interface{}{"error": err.Error()})
	}

	records, err := s.inner.FetchCandidates(ctx, hints)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warn("Snapshot cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return records, nil
}

func (s *CachedStore) FetchCandidate(ctx context.Context, id string) (*models.CandidateRecord, error) {
	return s.inner.FetchCandidate(ctx, id)
}

func (s *CachedStore) FetchPII(ctx context.Context, id string) (*models.PIIEnvelope, error) {
	return s.inner.FetchPII(ctx, id)
}

// ListSkills delegates when the wrapped store can list skills.
func (s *CachedStore) ListSkills(ctx context.Context) ([]string, error) {
	if lister, ok := s.inner.(SkillLister); ok {
		return lister.ListSkills(ctx)
	}
	return nil, nil
}

// SnapshotKey is the Redis key for a snapshot fetched with hints.
func SnapshotKey(h Hints) string {
	data, _ := json.Marshal(h)
	sum := md5.Sum(data)
	return snapshotKeyPrefix + hex.EncodeToString(sum[:])
}
