package rankingsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	queryinterpreter "github.com/nadhanasaripv257/skillq-app/internal/matching/query-interpreter"
	scoringengine "github.com/nadhanasaripv257/skillq-app/internal/matching/scoring-engine"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore"
)

const (
	aliceID = "00000000-0000-4000-8000-000000000001"
	bobID   = "00000000-0000-4000-8000-000000000002"
	carolID = "00000000-0000-4000-8000-000000000003"

	pythonQuery = "Python and SQL developers with 5+ years in London"
)

// stubStore serves a memory snapshot and can fail or block on demand.
type stubStore struct {
	*recordstore.MemoryStore

	mu      sync.Mutex
	err     error
	block   chan struct{}
	entered chan struct{}
	fetches int
}

func (s *stubStore) FetchCandidates(ctx context.Context, hints recordstore.Hints) ([]*models.CandidateRecord, error) {
	s.mu.Lock()
	s.fetches++
	err, block, entered := s.err, s.block, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.FetchCandidates(ctx, hints)
}

func (s *stubStore) blockNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
	s.entered = make(chan struct{}, 1)
}

func (s *stubStore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.block)
	s.block = nil
	s.entered = nil
}

func (s *stubStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func candidate(t *testing.T, id, title string, skills []string, years int, location string) *models.CandidateRecord {
	t.Helper()
	rec, err := models.NewCandidateRecord(models.CandidateRecord{
		ID:              id,
		Title:           title,
		Skills:          skills,
		ExperienceYears: years,
		Location:        models.Location{Text: location},
	})
	require.NoError(t, err)
	return rec
}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	return &stubStore{MemoryStore: recordstore.NewMemoryStore([]*models.CandidateRecord{
		candidate(t, aliceID, "Data Engineer", []string{"python", "sql"}, 6, "London, UK"),
		candidate(t, bobID, "Software Engineer", []string{"go"}, 3, "Berlin, Germany"),
		candidate(t, carolID, "Analyst", []string{"python"}, 2, "London, UK"),
	}, nil)}
}

func newManager(t *testing.T, store recordstore.Store, snapshots SnapshotStore) *Manager {
	t.Helper()
	log := logger.NewTestLogger(t)

	engine, err := scoringengine.NewEngine(scoringengine.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	m, err := NewManager(cfg, Dependencies{
		Store:       store,
		Interpreter: queryinterpreter.New(nil, log),
		Ranker:      scoringengine.NewRanker(engine, 4, log),
		Snapshots:   snapshots,
	}, log)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(nil, Dependencies{}, logger.NewNoOpLogger())
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestSubmitTurn_RanksAndSnapshots(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	id := m.Start()

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingQuery, view.State)

	res, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, res.State)
	assert.Nil(t, res.Clarification)
	require.Len(t, res.Results, 3, "missing skills demote, they do not exclude")
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, aliceID, res.Results[0].CandidateID)
	assert.Equal(t, []string{"python", "sql"}, res.Filter.RequiredSkills)

	view, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, view.State)
	require.NotNil(t, view.Current)
	assert.Equal(t, 1, view.Current.Turn)
	assert.Equal(t, pythonQuery, view.Current.Query)
	assert.Equal(t, 1, view.HistoryLength)
}

func TestSubmitTurn_RefinementKeepsEarlierConstraints(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	id := m.Start()

	_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)
	res, err := m.SubmitTurn(context.Background(), id, "kubernetes")
	require.NoError(t, err)

	assert.Equal(t, StateResultsReady, res.State)
	assert.Contains(t, res.Filter.RequiredSkills, "python")
	assert.Contains(t, res.Filter.RequiredSkills, "sql")
	assert.Contains(t, res.Filter.RequiredSkills, "kubernetes")
	require.NotNil(t, res.Filter.MinExperienceYears)
	assert.Equal(t, 5, *res.Filter.MinExperienceYears)

	history, err := m.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotContains(t, history[0].Filter.RequiredSkills, "kubernetes", "earlier snapshots are immutable")
	assert.Equal(t, 2, history[1].Turn)
}

func TestSubmitTurn_UnderspecifiedAsksThenAcceptsChoice(t *testing.T) {
	store := newStubStore(t)
	m := newManager(t, store, nil)
	id := m.Start()

	res, err := m.SubmitTurn(context.Background(), id, "find someone good")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingClarification, res.State)
	require.NotNil(t, res.Clarification)
	assert.Equal(t, models.TriggerUnderspecified, res.Clarification.Trigger)
	assert.Empty(t, res.Results)
	assert.Equal(t, 0, store.fetches, "no ranking while a question is pending")

	view, err := m.Get(id)
	require.NoError(t, err)
	require.NotNil(t, view.Pending)

	res, err = m.SubmitTurn(context.Background(), id, "2")
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, res.State)
	require.NotNil(t, res.Adopted)
	assert.Equal(t, "software engineer", res.Adopted.Label)
	assert.Equal(t, []string{"software engineer"}, res.Filter.TitleKeywords)
	assert.Equal(t, bobID, res.Results[0].CandidateID)

	view, err = m.Get(id)
	require.NoError(t, err)
	assert.Nil(t, view.Pending)
}

func TestSubmitTurn_SecondAmbiguityIsResolvedSilently(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	id := m.Start()

	first, err := m.SubmitTurn(context.Background(), id, "find someone good")
	require.NoError(t, err)
	require.Equal(t, StateAwaitingClarification, first.State)

	second, err := m.SubmitTurn(context.Background(), id, "find someone good")
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, second.State)
	assert.Nil(t, second.Clarification)
	require.NotNil(t, second.Adopted)
	assert.Equal(t, first.Clarification.Interpretations[0].Label, second.Adopted.Label)
	assert.Len(t, second.Results, 3)
}

func TestSubmitTurn_EmptyTextKeepsState(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	id := m.Start()
	_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)

	_, err = m.SubmitTurn(context.Background(), id, "   ")
	assert.True(t, errors.Is(err, apperrors.ErrInterpretation))

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, view.State)
	assert.Equal(t, 1, view.HistoryLength)
}

func TestSubmitTurn_ConcurrentTurnIsBusy(t *testing.T) {
	store := newStubStore(t)
	m := newManager(t, store, nil)
	id := m.Start()

	store.blockNext()
	entered := store.entered
	done := make(chan error, 1)
	go func() {
		_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
		done <- err
	}()
	<-entered

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateRanking, view.State)

	_, err = m.SubmitTurn(context.Background(), id, "kubernetes")
	assert.True(t, errors.Is(err, apperrors.ErrSessionBusy))

	store.release()
	require.NoError(t, <-done)

	view, err = m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, view.State)
}

func TestSubmitTurn_UpstreamFailureRestoresState(t *testing.T) {
	store := newStubStore(t)
	store.fail(errors.New("connection refused"))
	m := newManager(t, store, nil)
	id := m.Start()

	res, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamUnavailable))

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingQuery, view.State)
	assert.True(t, view.Filter.IsEmpty(), "a failed turn commits nothing")
	assert.Nil(t, view.Current)
}

func TestSubmitTurn_CancellationRestoresState(t *testing.T) {
	store := newStubStore(t)
	m := newManager(t, store, nil)
	id := m.Start()
	_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)

	store.blockNext()
	entered := store.entered
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.SubmitTurn(ctx, id, "kubernetes")
		done <- err
	}()
	<-entered
	cancel()

	err = <-done
	assert.True(t, errors.Is(err, apperrors.ErrCancelled))

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateResultsReady, view.State)
	assert.NotContains(t, view.Filter.RequiredSkills, "kubernetes")
	assert.Equal(t, 1, view.HistoryLength)
}

func TestClose(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	id := m.Start()

	require.NoError(t, m.Close(context.Background(), id))
	require.NoError(t, m.Close(context.Background(), id), "closing twice is harmless")

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, view.State)

	_, err = m.SubmitTurn(context.Background(), id, pythonQuery)
	assert.True(t, errors.Is(err, apperrors.ErrSessionClosed))

	err = m.Close(context.Background(), "unknown")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
	_, err = m.SubmitTurn(context.Background(), "unknown", pythonQuery)
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestClose_AbandonsInFlightTurn(t *testing.T) {
	store := newStubStore(t)
	m := newManager(t, store, nil)
	id := m.Start()

	store.blockNext()
	entered := store.entered
	done := make(chan error, 1)
	go func() {
		_, err := m.SubmitTurn(context.Background(), id, pythonQuery)
		done <- err
	}()
	<-entered

	require.NoError(t, m.Close(context.Background(), id))
	err := <-done
	assert.True(t, errors.Is(err, apperrors.ErrSessionClosed))

	view, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, view.State)
	assert.Nil(t, view.Current)
}

func TestExpireIdle(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	idle := m.Start()
	now := time.Now()

	assert.Equal(t, 0, m.ExpireIdle(context.Background(), now))
	assert.Equal(t, 1, m.ExpireIdle(context.Background(), now.Add(2*time.Minute)))

	view, err := m.Get(idle)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, view.State)

	_, err = m.SubmitTurn(context.Background(), idle, pythonQuery)
	assert.True(t, errors.Is(err, apperrors.ErrSessionClosed))

	assert.Equal(t, 0, m.ExpireIdle(context.Background(), now.Add(5*time.Minute)))
	_, err = m.Get(idle)
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound), "closed sessions are eventually forgotten")
}

func TestRun_StopsWithContext(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	m.config.SweepInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSubmitTurn_ResultsAreCapped(t *testing.T) {
	m := newManager(t, newStubStore(t), nil)
	m.config.MaxResults = 2
	id := m.Start()

	res, err := m.SubmitTurn(context.Background(), id, pythonQuery)
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, 3, res.Total)
}
