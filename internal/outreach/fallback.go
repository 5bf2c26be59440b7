package outreach

import (
	"fmt"
	"strings"

	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// templated builds the message used when the generator is unavailable.
func templated(rec *models.CandidateRecord, query string) *Result {
	role := rec.Title
	if role == "" {
		role = "your current role"
	}
	skills := "your core skills"
	if len(rec.Skills) > 0 {
		skills = strings.Join(rec.Skills[:min(3, len(rec.Skills))], ", ")
	}

	msg := fmt.Sprintf(
		"Hi, your experience as %s with %s stood out while we were searching for %q. Would you be open to a short call this week?",
		role, skills, strings.TrimSpace(query),
	)
	return &Result{
		OutreachMessage: msg,
		ScreeningQuestions: []string{
			fmt.Sprintf("Given your experience as %s, what interests you most about this opportunity?", role),
			fmt.Sprintf("How has your background in %s prepared you for this role?", skills),
			"What are your expectations regarding career growth in this position?",
		},
		Fallback: true,
	}
}
