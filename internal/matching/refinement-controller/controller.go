package refinementcontroller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/common/metrics"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// Budget counts the clarifying questions already asked per dimension in one session.
// It is a value: Spend returns a new Budget and leaves the receiver alone.
type Budget map[models.Dimension]int

// Asked returns how many questions were asked about dim.
func (b Budget) Asked(dim models.Dimension) int {
	return b[dim]
}

// Spend returns a copy of b with one more question recorded against dim.
func (b Budget) Spend(dim models.Dimension) Budget {
	out := make(Budget, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[dim]++
	return out
}

type Action string

const (
	ActionProceed Action = "proceed"
	ActionClarify Action = "clarify"
)

// Decision is the controller's verdict for one interpreted turn.
type Decision struct {
	Action Action
	// Delta is what the session should merge. When an ambiguity was settled silently
	// it already includes the adopted interpretation.
	Delta models.FilterDelta
	// Signal is set when Action is ActionClarify.
	Signal *models.AmbiguitySignal
	// Adopted is the interpretation taken without asking, if any.
	Adopted *models.Interpretation
	Budget  Budget
}

// Controller decides between asking and ranking.
type Controller struct {
	maxPerDimension int
	logger          logger.Logger
}

// New returns a controller that asks at most maxPerDimension questions per dimension;
// values below one mean one.
func New(maxPerDimension int, log logger.Logger) *Controller {
	if maxPerDimension < 1 {
		maxPerDimension = 1
	}
	return &Controller{
		maxPerDimension: maxPerDimension,
		logger:          logger.ForComponent(log, "refinement-controller"),
	}
}

// Decide asks when the dimension still has budget, otherwise it adopts the top
// interpretation and lets the turn proceed to ranking.
func (c *Controller) Decide(delta models.FilterDelta, signal *models.AmbiguitySignal, budget Budget) Decision {
	if signal == nil {
		return Decision{Action: ActionProceed, Delta: delta, Budget: budget}
	}

	if budget.Asked(signal.Dimension) < c.maxPerDimension {
		metrics.ClarificationsAsked.WithLabelValues(string(signal.Dimension)).Inc()
		c.logger.Info("Asking for clarification", map[string]interface{}{
			"dimension": signal.Dimension,
			"trigger":   signal.Trigger,
			"options":   len(signal.Interpretations),
		})
		return Decision{
			Action: ActionClarify,
			Delta:  delta,
			Signal: signal,
			Budget: budget.Spend(signal.Dimension),
		}
	}

	d := Decision{Action: ActionProceed, Delta: delta, Budget: budget}
	if top, ok := signal.Top(); ok {
		d.Delta = Adopt(delta, top)
		d.Adopted = &top
	}
	c.logger.Info("Clarification budget spent, adopting top interpretation", map[string]interface{}{
		"dimension": signal.Dimension,
		"adopted":   d.Adopted != nil,
	})
	return d
}

// Adopt folds an interpretation into the turn's own delta.
func Adopt(delta models.FilterDelta, in models.Interpretation) models.FilterDelta {
	return models.FilterDelta{
		Reset:   delta.Reset || in.Delta.Reset,
		Changes: delta.Changes.Merge(models.FilterDelta{Changes: in.Delta.Changes}),
		Cleared: append(append([]models.Dimension(nil), delta.Cleared...), in.Delta.Cleared...),
	}
}

var choicePattern = regexp.MustCompile(`(?i)^(?:option\s*|#)?(\d{1,2})\.?$`)

// ResolveChoice reads a reply to a pending question. A number picks that option
// (1-based); an exact label match also counts.
func ResolveChoice(text string, pending *models.AmbiguitySignal) (models.Interpretation, bool) {
	if pending == nil {
		return models.Interpretation{}, false
	}
	reply := strings.TrimSpace(text)

	if m := choicePattern.FindStringSubmatch(reply); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(pending.Interpretations) {
			return pending.Interpretations[n-1], true
		}
		return models.Interpretation{}, false
	}

	for _, in := range pending.Interpretations {
		if strings.EqualFold(reply, in.Label) {
			return in, true
		}
	}
	return models.Interpretation{}, false
}
