package models

// AmbiguityTrigger says which rule raised an AmbiguitySignal.
type AmbiguityTrigger string

const (
	TriggerSeniorityWithoutRole AmbiguityTrigger = "seniority_without_role"
	TriggerUnderspecified       AmbiguityTrigger = "underspecified_query"
)

// Interpretation is one candidate reading of an ambiguous query.
type Interpretation struct {
	Label string      `json:"label"`
	Delta FilterDelta `json:"delta"`
}

// AmbiguitySignal asks the recruiter to pick between readings. Interpretations are
// ranked, most likely first.
type AmbiguitySignal struct {
	Dimension       Dimension        `json:"dimension"`
	Trigger         AmbiguityTrigger `json:"trigger"`
	Interpretations []Interpretation `json:"interpretations"`
	Question        string           `json:"question"`
}

// Top returns the highest ranked interpretation, if any.
func (a *AmbiguitySignal) Top() (Interpretation, bool) {
	if a == nil || len(a.Interpretations) == 0 {
		return Interpretation{}, false
	}
	return a.Interpretations[0], true
}
