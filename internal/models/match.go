package models

// DimensionScore explains one dimension's part in a candidate's score.
type DimensionScore struct {
	SubScore     float64  `json:"subScore"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"`
	Constrained  bool     `json:"constrained"`
	Evidence     []string `json:"evidence,omitempty"`
}

// MatchResult is the scored, explained outcome for one candidate.
type MatchResult struct {
	CandidateID       string                       `json:"candidateId"`
	Score             float64                      `json:"score"`
	MatchedDimensions map[Dimension]DimensionScore `json:"matchedDimensions"`
	MissingRequired   []string                     `json:"missingRequired,omitempty"`
	RequiredCoverage  float64                      `json:"requiredCoverage"`
	SkillOverlap      int                          `json:"skillOverlap"`
	Penalized         bool                         `json:"penalized,omitempty"`
}

// Less orders results by score descending, then required coverage, then total skill
// overlap, then candidate id ascending.
func (m MatchResult) Less(o MatchResult) bool {
	if m.Score != o.Score {
		return m.Score > o.Score
	}
	if m.RequiredCoverage != o.RequiredCoverage {
		return m.RequiredCoverage > o.RequiredCoverage
	}
	if m.SkillOverlap != o.SkillOverlap {
		return m.SkillOverlap > o.SkillOverlap
	}
	return m.CandidateID < o.CandidateID
}

// Exclusion records why a candidate was left out of a ranking pass.
type Exclusion struct {
	CandidateID string `json:"candidateId"`
	Reason      string `json:"reason"`
}
