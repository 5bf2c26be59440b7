package outreach

import "github.com/nadhanasaripv257/skillq-app/internal/models"

// Result is a drafted outreach message with screening questions.
type Result struct {
	OutreachMessage    string   `json:"outreach_message"`
	ScreeningQuestions []string `json:"screening_questions"`
	// Fallback is set when the generator failed and the text comes from templates.
	Fallback bool `json:"fallback"`
	Cached   bool `json:"cached"`
}

// generateRequest is the body posted to the generator. It carries the PII-free
// record only.
type generateRequest struct {
	Query     string             `json:"query"`
	Candidate candidateSummary   `json:"candidate"`
	Match     models.MatchResult `json:"match"`
}

type candidateSummary struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	ExperienceYears int      `json:"experienceYears"`
	Location        string   `json:"location,omitempty"`
	Skills          []string `json:"skills"`
	Companies       []string `json:"companies,omitempty"`
}

func summarize(rec *models.CandidateRecord) candidateSummary {
	return candidateSummary{
		ID:              rec.ID,
		Title:           rec.Title,
		ExperienceYears: rec.ExperienceYears,
		Location:        rec.Location.Text,
		Skills:          rec.Skills,
		Companies:       rec.Companies,
	}
}
