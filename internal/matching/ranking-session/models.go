package rankingsession

import (
	"time"

	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// State is a session's position in the turn state machine.
type State string

const (
	StateAwaitingQuery         State = "AWAITING_QUERY"
	StateInterpreting          State = "INTERPRETING"
	StateAwaitingClarification State = "AWAITING_CLARIFICATION"
	StateRanking               State = "RANKING"
	StateResultsReady          State = "RESULTS_READY"
	StateClosed                State = "CLOSED"
)

// Snapshot is the immutable record of one entry into RESULTS_READY.
type Snapshot struct {
	Turn      int                    `json:"turn"`
	Query     string                 `json:"query"`
	Filter    models.FilterModel     `json:"filter"`
	Results   []models.MatchResult   `json:"results"`
	Excluded  []models.Exclusion     `json:"excluded,omitempty"`
	Total     int                    `json:"total"`
	Adopted   *models.Interpretation `json:"adopted,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// TurnResult is what SubmitTurn answers with. Clarification is set only in
// AWAITING_CLARIFICATION, Results only in RESULTS_READY.
type TurnResult struct {
	SessionID     string                  `json:"sessionId"`
	State         State                   `json:"state"`
	Results       []models.MatchResult    `json:"results"`
	Total         int                     `json:"total"`
	Clarification *models.AmbiguitySignal `json:"clarification,omitempty"`
	Adopted       *models.Interpretation  `json:"adopted,omitempty"`
	Filter        models.FilterModel      `json:"filter"`
}

// View is a read-only picture of a session.
type View struct {
	ID            string                  `json:"id"`
	State         State                   `json:"state"`
	Filter        models.FilterModel      `json:"filter"`
	Current       *Snapshot               `json:"current,omitempty"`
	HistoryLength int                     `json:"historyLength"`
	Pending       *models.AmbiguitySignal `json:"pending,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastActive    time.Time               `json:"lastActive"`
}
