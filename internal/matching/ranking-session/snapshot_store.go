package rankingsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists session history outside the process. The manager treats it
// as best-effort: failures are logged and never fail a turn.
type SnapshotStore interface {
	Append(ctx context.Context, sessionID string, snap Snapshot) error
	History(ctx context.Context, sessionID string) ([]Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

type noopSnapshotStore struct{}

func (noopSnapshotStore) Append(context.Context, string, Snapshot) error { return nil }

func (noopSnapshotStore) History(context.Context, string) ([]Snapshot, error) { return nil, nil }

func (noopSnapshotStore) Delete(context.Context, string) error { return nil }

const historyKeyPrefix = "skillq:session:"

// RedisSnapshotStore keeps each session's snapshots in a capped Redis list.
type RedisSnapshotStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration, maxHistory int) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl, maxHistory: maxHistory}
}

func HistoryKey(sessionID string) string {
	return historyKeyPrefix + sessionID + ":history"
}

func (s *RedisSnapshotStore) Append(ctx context.Context, sessionID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := HistoryKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.maxHistory > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) History(ctx context.Context, sessionID string) ([]Snapshot, error) {
	raw, err := s.client.LRange(ctx, HistoryKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	out := make([]Snapshot, 0, len(raw))
	for _, item := range raw {
		var snap Snapshot
		if err := json.Unmarshal([]byte(item), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, HistoryKey(sessionID)).Err()
}
