package models

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
)

// Availability is the candidate's stated availability to start.
type Availability string

const (
	AvailabilityUnknown      Availability = "unknown"
	AvailabilityImmediate    Availability = "immediate"
	AvailabilityNoticePeriod Availability = "notice-period"
	AvailabilityUnavailable  Availability = "unavailable"
)

// ParseAvailability maps loose store values onto the enum; anything unrecognised is unknown.
func ParseAvailability(s string) Availability {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))) {
	case "immediate", "immediately", "available", "available now", "now":
		return AvailabilityImmediate
	case "notice-period", "notice period", "notice", "serving notice":
		return AvailabilityNoticePeriod
	case "unavailable", "not available", "not-available":
		return AvailabilityUnavailable
	default:
		return AvailabilityUnknown
	}
}

type Location struct {
	Text       string `json:"text" validate:"max=256"`
	RegionCode string `json:"regionCode,omitempty" validate:"omitempty,max=16"`
}

// CandidateRecord is the PII-free view of a parsed resume that ranking works on.
// Build it through NewCandidateRecord; the value is treated as immutable afterwards.
type CandidateRecord struct {
	ID              string       `json:"id" validate:"required,uuid"`
	Title           string       `json:"title" validate:"max=256"`
	Skills          []string     `json:"skills" validate:"dive,required,max=100"`
	ExperienceYears int          `json:"experienceYears" validate:"gte=0,lte=70"`
	Location        Location     `json:"location"`
	Companies       []string     `json:"companies,omitempty" validate:"dive,required,max=256"`
	Education       []string     `json:"education,omitempty" validate:"dive,required"`
	Certifications  []string     `json:"certifications,omitempty" validate:"dive,required"`
	EmploymentType  string       `json:"employmentType,omitempty"`
	Availability    Availability `json:"availability" validate:"oneof=unknown immediate notice-period unavailable"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{8,}\d`)
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// NewCandidateRecord normalizes raw and validates it. Skills become a sorted lowercase set,
// education and certifications are deduplicated, companies keep their order.
func NewCandidateRecord(raw CandidateRecord) (*CandidateRecord, error) {
	rec := CandidateRecord{
		ID:              strings.TrimSpace(raw.ID),
		Title:           strings.TrimSpace(raw.Title),
		Skills:          NormalizeSkills(raw.Skills),
		ExperienceYears: raw.ExperienceYears,
		Location: Location{
			Text:       strings.TrimSpace(raw.Location.Text),
			RegionCode: strings.ToUpper(strings.TrimSpace(raw.Location.RegionCode)),
		},
		Companies:      trimAll(raw.Companies),
		Education:      uniqueSorted(raw.Education, false),
		Certifications: uniqueSorted(raw.Certifications, false),
		EmploymentType: NormalizeEmploymentType(raw.EmploymentType),
		Availability:   raw.Availability,
	}
	if rec.Availability == "" {
		rec.Availability = AvailabilityUnknown
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks field constraints and rejects any contact details leaking into the record.
func (c *CandidateRecord) Validate() error {
	if c == nil {
		return apperrors.NewCandidateInvalidError("", "record is nil")
	}
	if err := validatorInstance().Struct(c); err != nil {
		return apperrors.NewCandidateInvalidError(c.ID, err.Error())
	}

	fields := append([]string{c.Title, c.Location.Text}, c.Companies...)
	for _, f := range fields {
		if emailPattern.MatchString(f) || looksLikePhone(f) {
			return apperrors.NewCandidateInvalidError(c.ID, "record contains contact details")
		}
	}
	return nil
}

func looksLikePhone(s string) bool {
	for _, m := range phonePattern.FindAllString(s, -1) {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 10 {
			return true
		}
	}
	return false
}

// SkillSet returns the skills as a lookup set.
func (c *CandidateRecord) SkillSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Skills))
	for _, s := range c.Skills {
		set[s] = struct{}{}
	}
	return set
}

// NormalizeSkill lowercases a skill and collapses inner whitespace.
func NormalizeSkill(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeSkills returns a sorted, deduplicated set of normalized skills.
func NormalizeSkills(skills []string) []string {
	return uniqueSorted(skills, true)
}

// NormalizeEmploymentType maps common spellings onto full-time, part-time, contract or internship.
func NormalizeEmploymentType(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	switch v {
	case "":
		return ""
	case "full-time", "fulltime", "permanent":
		return "full-time"
	case "part-time", "parttime":
		return "part-time"
	case "contract", "contractor", "freelance", "freelancer", "consultant":
		return "contract"
	case "intern", "internship":
		return "internship"
	default:
		return v
	}
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniqueSorted(in []string, lower bool) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if lower {
			s = NormalizeSkill(s)
		} else {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
