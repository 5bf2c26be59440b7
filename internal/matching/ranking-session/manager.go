package rankingsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/common/observability"
	queryinterpreter "github.com/nadhanasaripv257/skillq-app/internal/matching/query-interpreter"
	refinementcontroller "github.com/nadhanasaripv257/skillq-app/internal/matching/refinement-controller"
	scoringengine "github.com/nadhanasaripv257/skillq-app/internal/matching/scoring-engine"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
	"github.com/nadhanasaripv257/skillq-app/internal/recordstore"
)

const component = "ranking-session"

// Dependencies are the collaborators a Manager drives. Snapshots and Observability
// are optional.
type Dependencies struct {
	Store         recordstore.Store
	Interpreter   *queryinterpreter.Interpreter
	Ranker        *scoringengine.Ranker
	Snapshots     SnapshotStore
	Observability *observability.Observability
}

// Manager owns every open session. Sessions share no mutable state; the manager's
// own lock only guards the session table.
type Manager struct {
	config      *Config
	store       recordstore.Store
	interpreter *queryinterpreter.Interpreter
	controller  *refinementcontroller.Controller
	ranker      *scoringengine.Ranker
	snapshots   SnapshotStore
	obs         *observability.Observability
	logger      logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu         sync.Mutex
	id         string
	state      State
	filter     models.FilterModel
	budget     refinementcontroller.Budget
	pending    *models.AmbiguitySignal
	current    *Snapshot
	history    []Snapshot
	turns      int
	busy       bool
	cancel     context.CancelFunc
	createdAt  time.Time
	lastActive time.Time
	closedAt   time.Time
}

func NewManager(cfg *Config, deps Dependencies, log logger.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Store == nil || deps.Interpreter == nil || deps.Ranker == nil {
		return nil, apperrors.NewConfigurationError("session manager needs a record store, an interpreter and a ranker")
	}
	snapshots := deps.Snapshots
	if snapshots == nil {
		snapshots = noopSnapshotStore{}
	}

	return &Manager{
		config:      cfg,
		store:       deps.Store,
		interpreter: deps.Interpreter,
		controller:  refinementcontroller.New(cfg.MaxClarifications, log),
		ranker:      deps.Ranker,
		snapshots:   snapshots,
		obs:         deps.Observability,
		logger:      logger.ForComponent(log, component),
		sessions:    make(map[string]*session),
	}, nil
}

// Start opens a session in AWAITING_QUERY and returns its id.
func (m *Manager) Start() string {
	now := time.Now()
	s := &session{
		id:         uuid.NewString(),
		state:      StateAwaitingQuery,
		budget:     refinementcontroller.Budget{},
		createdAt:  now,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	m.logger.Info("Session started", map[string]interface{}{"sessionId": s.id})
	return s.id
}

// turnInput is what a turn reads from the session before it releases the lock.
type turnInput struct {
	filter  models.FilterModel
	budget  refinementcontroller.Budget
	pending *models.AmbiguitySignal
	turn    int
}

// turnCommit is what a successful turn writes back.
type turnCommit struct {
	state    State
	filter   models.FilterModel
	budget   refinementcontroller.Budget
	pending  *models.AmbiguitySignal
	adopted  *models.Interpretation
	snapshot *Snapshot
}

// SubmitTurn runs one recruiter turn. Only one turn per session may be in flight; a
// turn that fails or is cancelled leaves the session as it was before the turn.
func (m *Manager) SubmitTurn(ctx context.Context, id, text string) (*TurnResult, error) {
	start := time.Now()
	ctx, span := m.obs.StartSpan(ctx, "session.turn", attribute.String("session.id", id))
	defer span.End()

	s, err := m.lookup(id)
	if err != nil {
		m.observe(ctx, "not_found", start)
		return nil, err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		m.observe(ctx, "closed", start)
		return nil, apperrors.NewSessionClosedError(id)
	}
	if s.busy {
		s.mu.Unlock()
		m.observe(ctx, "busy", start)
		return nil, apperrors.NewSessionBusyError(id)
	}
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.busy = true
	s.cancel = cancel
	prior := s.state
	in := turnInput{filter: s.filter, budget: s.budget, pending: s.pending, turn: s.turns}
	s.state = StateInterpreting
	s.lastActive = time.Now()
	s.mu.Unlock()

	commit, err := m.runTurn(turnCtx, s, text, in)

	s.mu.Lock()
	s.busy = false
	s.cancel = nil
	s.lastActive = time.Now()
	if s.state == StateClosed {
		s.mu.Unlock()
		m.observe(ctx, "closed", start)
		return nil, apperrors.NewSessionClosedError(id)
	}
	if err != nil {
		s.state = prior
		s.mu.Unlock()
		m.observe(ctx, outcomeFor(err), start)
		m.logger.Warn("Turn failed, session state restored", map[string]interface{}{
			"sessionId": id,
			"state":     prior,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.apply(commit, m.config.MaxHistory)
	s.mu.Unlock()

	result := &TurnResult{
		SessionID: id,
		State:     commit.state,
		Filter:    commit.filter.Clone(),
		Adopted:   commit.adopted,
	}
	if commit.state == StateAwaitingClarification {
		result.Clarification = commit.pending
		m.observe(ctx, "clarification", start)
		return result, nil
	}

	result.Results = append([]models.MatchResult(nil), commit.snapshot.Results...)
	result.Total = commit.snapshot.Total
	if err := m.snapshots.Append(context.WithoutCancel(ctx), id, *commit.snapshot); err != nil {
		m.logger.Warn("Failed to persist session snapshot", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
	}
	m.observe(ctx, "results", start)
	return result, nil
}

func (m *Manager) runTurn(ctx context.Context, s *session, text string, in turnInput) (*turnCommit, error) {
	var (
		delta   models.FilterDelta
		signal  *models.AmbiguitySignal
		adopted *models.Interpretation
	)

	// A reply naming one of the offered options settles the pending question.
	choice, chosen := refinementcontroller.ResolveChoice(text, in.pending)
	if chosen {
		delta = refinementcontroller.Adopt(models.FilterDelta{}, choice)
		adopted = &choice
	} else {
		var err error
		delta, signal, err = m.interpreter.Interpret(text, in.filter)
		if err != nil {
			return nil, err
		}
	}

	decision := m.controller.Decide(delta, signal, in.budget)
	merged := in.filter.Merge(decision.Delta)
	if decision.Adopted != nil {
		adopted = decision.Adopted
	}

	if decision.Action == refinementcontroller.ActionClarify {
		return &turnCommit{
			state:   StateAwaitingClarification,
			filter:  merged,
			budget:  decision.Budget,
			pending: decision.Signal,
		}, nil
	}

	if !s.setState(StateRanking) {
		return nil, apperrors.NewSessionClosedError(s.id)
	}

	candidates, err := m.store.FetchCandidates(ctx, recordstore.HintsFromFilter(merged, m.config.FetchLimit))
	if err != nil {
		return nil, upstream(ctx, err)
	}

	ranking, err := m.ranker.Rank(ctx, merged, candidates)
	if err != nil {
		return nil, err
	}

	results := ranking.Results
	if m.config.MaxResults > 0 && len(results) > m.config.MaxResults {
		results = results[:m.config.MaxResults]
	}
	snap := &Snapshot{
		Turn:      in.turn + 1,
		Query:     text,
		Filter:    merged.Clone(),
		Results:   append([]models.MatchResult(nil), results...),
		Excluded:  ranking.Excluded,
		Total:     len(ranking.Results),
		Adopted:   adopted,
		CreatedAt: time.Now().UTC(),
	}

	return &turnCommit{
		state:    StateResultsReady,
		filter:   merged,
		budget:   decision.Budget,
		adopted:  adopted,
		snapshot: snap,
	}, nil
}

// apply writes a successful turn back. Callers hold s.mu.
func (s *session) apply(c *turnCommit, maxHistory int) {
	s.state = c.state
	s.filter = c.filter
	s.budget = c.budget
	s.pending = c.pending
	if c.snapshot == nil {
		return
	}
	s.turns = c.snapshot.Turn
	s.current = c.snapshot
	s.history = append(s.history, *c.snapshot)
	if maxHistory > 0 && len(s.history) > maxHistory {
		s.history = append([]Snapshot(nil), s.history[len(s.history)-maxHistory:]...)
	}
}

func (s *session) setState(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = st
	return true
}

// upstream keeps typed store errors and wraps anything else.
func upstream(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewCancelledError(ctxErr)
	}
	if _, ok := apperrors.AsStandardError(err); ok {
		return err
	}
	return apperrors.NewUpstreamUnavailableError("record-store", err)
}

func outcomeFor(err error) string {
	se, ok := apperrors.AsStandardError(err)
	if !ok {
		return "error"
	}
	switch se.Code {
	case apperrors.ErrCodeInterpretationFailed:
		return "interpretation_error"
	case apperrors.ErrCodeUpstreamUnavailable:
		return "upstream_error"
	case apperrors.ErrCodeCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

func (m *Manager) observe(ctx context.Context, outcome string, start time.Time) {
	d := time.Since(start)
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.WithLabelValues(outcome).Observe(d.Seconds())
	m.obs.RecordTurn(ctx, outcome, d)
}

// Close ends a session and cancels its in-flight turn, if any. Closing twice is a no-op.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	closed := s.close(time.Now())
	s.mu.Unlock()
	if !closed {
		return nil
	}

	m.afterClose(ctx, id, "closed by caller")
	return nil
}

// close marks the session closed. Callers hold s.mu.
func (s *session) close(now time.Time) bool {
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.closedAt = now
	s.pending = nil
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

func (m *Manager) afterClose(ctx context.Context, id, reason string) {
	metrics.ActiveSessions.Dec()
	if err := m.snapshots.Delete(ctx, id); err != nil {
		m.logger.Warn("Failed to delete session history", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
	}
	m.logger.Info("Session closed", map[string]interface{}{"sessionId": id, "reason": reason})
}

// Get returns a read-only view of a session.
func (m *Manager) Get(id string) (*View, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &View{
		ID:            s.id,
		State:         s.state,
		Filter:        s.filter.Clone(),
		Current:       s.current,
		HistoryLength: len(s.history),
		Pending:       s.pending,
		CreatedAt:     s.createdAt,
		LastActive:    s.lastActive,
	}, nil
}

// History returns the session's snapshots, oldest first. Sessions no longer held in
// memory are read back from the snapshot store.
func (m *Manager) History(ctx context.Context, id string) ([]Snapshot, error) {
	if s, err := m.lookup(id); err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]Snapshot(nil), s.history...), nil
	}

	history, err := m.snapshots.History(ctx, id)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("snapshot-store", err)
	}
	if len(history) == 0 {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return history, nil
}

// ExpireIdle closes sessions idle for longer than the idle timeout and forgets
// sessions closed for that long. It returns how many sessions it closed.
func (m *Manager) ExpireIdle(ctx context.Context, now time.Time) int {
	m.mu.RLock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var expired, forget []string
	for _, s := range all {
		s.mu.Lock()
		switch {
		case s.state == StateClosed:
			if now.Sub(s.closedAt) > m.config.IdleTimeout {
				forget = append(forget, s.id)
			}
		case !s.busy && now.Sub(s.lastActive) > m.config.IdleTimeout:
			s.close(now)
			expired = append(expired, s.id)
		}
		s.mu.Unlock()
	}

	for _, id := range expired {
		m.afterClose(ctx, id, "idle")
	}
	if len(forget) > 0 {
		m.mu.Lock()
		for _, id := range forget {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.ExpireIdle(ctx, now); n > 0 {
				m.logger.Info("Expired idle sessions", map[string]interface{}{"count": n})
			}
		}
	}
}

// Store exposes the record store the sessions rank against.
func (m *Manager) Store() recordstore.Store {
	return m.store
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return s, nil
}
