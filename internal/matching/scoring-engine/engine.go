package scoringengine

import (
	"fmt"
	"math"
	"strings"

	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

// Engine scores one candidate against one filter. It holds only immutable
// configuration, so Score is safe for concurrent use.
type Engine struct {
	weights    Weights
	multiplier float64
	decay      float64
}

// NewEngine validates cfg and returns a ConfigurationError if the weights are unusable.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		weights:    cfg.Weights,
		multiplier: cfg.DisqualifyingMultiplier,
		decay:      cfg.ExperienceDecayYears,
	}, nil
}

// Weights returns the configured dimension weights.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the weighted match of c against f. It depends only on its arguments
// and the engine configuration.
func (e *Engine) Score(f models.FilterModel, c models.CandidateRecord) models.MatchResult {
	skills := c.SkillSet()

	reqSub, reqMatched, missing := setCoverage(f.RequiredSkills, skills)
	prefSub, prefMatched, _ := setCoverage(f.PreferredSkills, skills)
	expSub, expEvidence := experienceScore(f.MinExperienceYears, f.MaxExperienceYears, c.ExperienceYears, e.decay)
	locSub, locEvidence := locationScore(f.Locations, c.Location)
	titleSub, titleEvidence := titleScore(f.TitleKeywords, c.Title)

	dims := map[models.Dimension]models.DimensionScore{
		models.DimRequiredSkills:  dimension(reqSub, e.weights.RequiredSkills, len(f.RequiredSkills) > 0, reqMatched),
		models.DimPreferredSkills: dimension(prefSub, e.weights.PreferredSkills, len(f.PreferredSkills) > 0, prefMatched),
		models.DimExperience:      dimension(expSub, e.weights.Experience, f.MinExperienceYears != nil || f.MaxExperienceYears != nil, expEvidence),
		models.DimLocations:       dimension(locSub, e.weights.Location, len(f.Locations) > 0, locEvidence),
		models.DimTitleKeywords:   dimension(titleSub, e.weights.Title, len(f.TitleKeywords) > 0, titleEvidence),
	}

	total := 0.0
	for _, d := range []models.Dimension{
		models.DimRequiredSkills,
		models.DimPreferredSkills,
		models.DimExperience,
		models.DimLocations,
		models.DimTitleKeywords,
	} {
		total += dims[d].Contribution
	}

	penalized := reqSub < 1.0
	if penalized {
		total *= e.multiplier
	}

	return models.MatchResult{
		CandidateID:       c.ID,
		Score:             clamp01(total),
		MatchedDimensions: dims,
		MissingRequired:   missing,
		RequiredCoverage:  reqSub,
		SkillOverlap:      len(reqMatched) + len(prefMatched),
		Penalized:         penalized,
	}
}

// Admit applies the hard constraints that remove a candidate from a ranking rather
// than demote it. It returns the exclusion reason when the candidate is rejected.
func (e *Engine) Admit(f models.FilterModel, c models.CandidateRecord) (string, bool) {
	if len(f.ExcludedCompanies) > 0 {
		excluded := make(map[string]struct{}, len(f.ExcludedCompanies))
		for _, co := range f.ExcludedCompanies {
			excluded[normalizeText(co)] = struct{}{}
		}
		for _, co := range c.Companies {
			if _, ok := excluded[normalizeText(co)]; ok {
				return fmt.Sprintf("worked at excluded company %q", co), false
			}
		}
	}

	if f.Availability != nil && c.Availability != models.AvailabilityUnknown && c.Availability != *f.Availability {
		return fmt.Sprintf("availability %s does not match %s", c.Availability, *f.Availability), false
	}

	if f.EmploymentType != nil && c.EmploymentType != "" && c.EmploymentType != *f.EmploymentType {
		return fmt.Sprintf("employment type %s does not match %s", c.EmploymentType, *f.EmploymentType), false
	}

	return "", true
}

func dimension(sub, weight float64, constrained bool, evidence []string) models.DimensionScore {
	return models.DimensionScore{
		SubScore:     sub,
		Weight:       weight,
		Contribution: sub * weight,
		Constrained:  constrained,
		Evidence:     evidence,
	}
}

// setCoverage returns the fraction of wanted present in have, plus matched and missing
// entries in wanted's (sorted) order. An empty wanted set is fully covered.
func setCoverage(wanted []string, have map[string]struct{}) (float64, []string, []string) {
	if len(wanted) == 0 {
		return 1.0, nil, nil
	}
	var matched, missing []string
	for _, s := range wanted {
		s = models.NormalizeSkill(s)
		if _, ok := have[s]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return float64(len(matched)) / float64(len(wanted)), matched, missing
}

// experienceScore is 1 inside [min,max] and decays linearly to 0 at decay years
// beyond the violated bound. With conflicting bounds the larger distance wins.
func experienceScore(minYears, maxYears *int, years int, decay float64) (float64, []string) {
	if minYears == nil && maxYears == nil {
		return 1.0, nil
	}

	distance := 0
	if minYears != nil && years < *minYears {
		distance = *minYears - years
	}
	if maxYears != nil && years > *maxYears && years-*maxYears > distance {
		distance = years - *maxYears
	}

	evidence := []string{fmt.Sprintf("%d years (wanted %s)", years, boundsLabel(minYears, maxYears))}
	if distance == 0 {
		return 1.0, evidence
	}
	if decay <= 0 {
		return 0, evidence
	}
	return math.Max(0, 1-float64(distance)/decay), evidence
}

func boundsLabel(minYears, maxYears *int) string {
	switch {
	case minYears != nil && maxYears != nil:
		return fmt.Sprintf("%d-%d", *minYears, *maxYears)
	case minYears != nil:
		return fmt.Sprintf("%d+", *minYears)
	default:
		return fmt.Sprintf("at most %d", *maxYears)
	}
}

// locationScore matches any wanted location against the whole location text, each
// comma separated part of it, or the region code, case-insensitively.
func locationScore(wanted []string, loc models.Location) (float64, []string) {
	if len(wanted) == 0 {
		return 1.0, nil
	}

	candidates := map[string]struct{}{}
	if t := normalizeText(loc.Text); t != "" {
		candidates[t] = struct{}{}
	}
	for _, part := range strings.Split(loc.Text, ",") {
		if p := normalizeText(part); p != "" {
			candidates[p] = struct{}{}
		}
	}
	if rc := normalizeText(loc.RegionCode); rc != "" {
		candidates[rc] = struct{}{}
	}

	for _, w := range wanted {
		if _, ok := candidates[normalizeText(w)]; ok {
			return 1.0, []string{w}
		}
	}
	return 0, nil
}

var tokenSynonyms = map[string]string{
	"dev":  "developer",
	"devs": "developer",
	"eng":  "engineer",
	"engr": "engineer",
	"sr":   "senior",
	"jr":   "junior",
	"mgr":  "manager",
	"swe":  "software",
	"ml":   "machine",
	"qa":   "quality",
}

// titleScore is the best token-overlap ratio of any keyword against the title.
func titleScore(keywords []string, title string) (float64, []string) {
	if len(keywords) == 0 {
		return 1.0, nil
	}
	titleTokens := tokenize(title)
	if len(titleTokens) == 0 {
		return 0, nil
	}

	best := 0.0
	var bestKeyword string
	for _, kw := range keywords {
		kwTokens := tokenize(kw)
		if len(kwTokens) == 0 {
			continue
		}
		hits := 0
		for _, k := range kwTokens {
			for _, t := range titleTokens {
				if tokensMatch(k, t) {
					hits++
					break
				}
			}
		}
		ratio := float64(hits) / float64(len(kwTokens))
		if ratio > best || (ratio == best && ratio > 0 && kw < bestKeyword) {
			best = ratio
			bestKeyword = kw
		}
	}

	if best == 0 {
		return 0, nil
	}
	return best, []string{bestKeyword}
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if syn, ok := tokenSynonyms[f]; ok {
			f = syn
		}
		out = append(out, f)
	}
	return out
}

// tokensMatch treats tokens sharing a stem of at least five letters as equal,
// so "engineer" matches "engineering".
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= 5 && strings.HasPrefix(longer, shorter)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
