package rankingsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSnapshotStore_AppendTrimsAndExpires(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisSnapshotStore(client, time.Hour, 2)
	ctx := context.Background()

	for turn := 1; turn <= 3; turn++ {
		require.NoError(t, store.Append(ctx, "s1", Snapshot{
			Turn:   turn,
			Filter: models.FilterModel{RequiredSkills: []string{"go"}},
		}))
	}

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Turn)
	assert.Equal(t, 3, history[1].Turn)
	assert.Equal(t, []string{"go"}, history[1].Filter.RequiredSkills)
	assert.Equal(t, time.Hour, mr.TTL(HistoryKey("s1")))

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists(HistoryKey("s1")))

	history, err = store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisSnapshotStore_CorruptEntry(t *testing.T) {
	mr, client := setupRedis(t)
	_, err := mr.Push(HistoryKey("s1"), "{not json")
	require.NoError(t, err)

	_, err = NewRedisSnapshotStore(client, time.Hour, 10).History(context.Background(), "s1")
	assert.Error(t, err)
}

func TestManager_HistorySurvivesInRedis(t *testing.T) {
	mr, client := setupRedis(t)
	snapshots := NewRedisSnapshotStore(client, time.Hour, 10)

	m := newManager(t, newStubStore(t), snapshots)
	id := m.Start()
	_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)

	// A fresh manager has no session in memory and falls back to Redis.
	other := newManager(t, newStubStore(t), snapshots)
	history, err := other.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pythonQuery, history[0].Query)
	assert.Equal(t, aliceID, history[0].Results[0].CandidateID)

	_, err = other.History(context.Background(), "unknown")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))

	require.NoError(t, m.Close(context.Background(), id))
	assert.False(t, mr.Exists(HistoryKey(id)))
}

func TestManager_SnapshotPersistenceFailureDoesNotFailTurn(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(true)

	m := newManager(t, newStubStore(t), NewRedisSnapshotStore(client, time.Hour, 10))
	id := m.Start()

	res, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, res.State)

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, view.HistoryLength)
}

func TestManager_HistoryStoreFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectLRange(HistoryKey("gone"), 0, -1).SetErr(errors.New("connection refused"))

	m := newManager(t, newStubStore(t), NewRedisSnapshotStore(client, time.Hour, 10))
	_, err := m.History(context.Background(), "gone")
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}
