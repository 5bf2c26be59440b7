package models

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// PIIEnvelope holds the contact details of a candidate, keyed by the same id as the
// CandidateRecord. It never reaches the interpreter or the scorer.
type PIIEnvelope struct {
	CandidateID string   `json:"candidateId"`
	FullName    string   `json:"fullName,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Address     string   `json:"address,omitempty"`
	Links       []string `json:"links,omitempty"`
}

// SplitPII separates a parsed resume document (personal_info, work_experience,
// skills_and_tools, education_and_certifications sections) into a validated
// CandidateRecord and its PIIEnvelope.
func SplitPII(id string, parsed map[string]interface{}) (*CandidateRecord, *PIIEnvelope, error) {
	personal := section(parsed, "personal_info")
	work := section(parsed, "work_experience")
	skills := section(parsed, "skills_and_tools")
	edu := section(parsed, "education_and_certifications")

	pii := &PIIEnvelope{
		CandidateID: id,
		FullName:    stringField(personal, "full_name"),
		Email:       stringField(personal, "email"),
		Phone:       stringField(personal, "phone"),
		Address:     stringField(personal, "address"),
	}
	if link := stringField(personal, "linkedin_url"); link != "" {
		pii.Links = append(pii.Links, link)
	}

	years, _ := parseInt(work["total_years_experience"])

	raw := CandidateRecord{
		ID:              id,
		Title:           stringField(work, "current_or_last_job_title"),
		Skills:          append(parseStringArray(skills["skills"]), parseStringArray(skills["tools_technologies"])...),
		ExperienceYears: years,
		Location: Location{
			Text:       joinNonEmpty(stringField(personal, "location"), stringField(personal, "country")),
			RegionCode: stringField(personal, "state"),
		},
		Companies:      parseStringArray(work["companies_worked_at"]),
		Education:      parseStringArray(edu["education"]),
		Certifications: parseStringArray(edu["certifications"]),
		EmploymentType: stringField(work, "employment_type"),
		Availability:   ParseAvailability(stringField(work, "availability")),
	}

	rec, err := NewCandidateRecord(raw)
	if err != nil {
		return nil, nil, err
	}
	return rec, pii, nil
}

func section(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// parseStringArray accepts a comma separated string or a JSON array and dedupes entries.
func parseStringArray(raw interface{}) []string {
	var result []string
	seen := make(map[string]bool)
	add := func(s string) {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && !seen[trimmed] {
			result = append(result, trimmed)
			seen[trimmed] = true
		}
	}

	switch v := raw.(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	}
	return result
}

var nonDigits = regexp.MustCompile(`[^\d]+`)

// parseInt tolerates JSON numbers and strings such as "5+ years" or "7.5".
func parseInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errors.New("cannot parse nil as integer")
	case float64:
		if v < 0 {
			return 0, errors.New("negative integer not allowed")
		}
		return int(v), nil
	case int:
		if v < 0 {
			return 0, errors.New("negative integer not allowed")
		}
		return v, nil
	case int64:
		if v < 0 {
			return 0, errors.New("negative integer not allowed")
		}
		return int(v), nil
	case string:
		cleaned := strings.TrimSpace(v)
		if i := strings.Index(cleaned, "."); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = nonDigits.ReplaceAllString(cleaned, "")
		if cleaned == "" {
			return 0, errors.New("not a number")
		}
		return strconv.Atoi(cleaned)
	default:
		return 0, errors.New("not a number")
	}
}
