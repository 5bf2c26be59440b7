package queryinterpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

const years = `(?:years?|yrs?)\b`

var (
	resetPattern = regexp.MustCompile(`(?i)\b(?:start(?:ing)? over|start again|start fresh|from scratch|new search|reset(?: (?:the |all )?filters?)?|clear (?:all |the )?filters?|forget (?:everything|all that|that))\b`)

	clauseSplit  = regexp.MustCompile(`(?i)[;,!?]|\.(?:\s|$)|\s(?:but|however|although)\s`)
	preferredCue = regexp.MustCompile(`(?i)\b(?:nice[ -]to[ -]have|good to have|bonus|preferabl[ey]|preferred|prefer|ideally|a plus|would be (?:great|nice)|optional(?:ly)?)\b`)

	// "in Perth", "based in Salt Lake"; places the vocabulary does not know yet.
	capitalizedPlace = regexp.MustCompile(`\b(?:[Ii]n|[Bb]ased in|[Ll]ocated in|[Nn]ear|[Aa]round)\s+([A-Z][A-Za-z]+(?:\s[A-Z][A-Za-z]+)?)`)
)

type yearBounds struct {
	min, max *int
}

func (b yearBounds) set() bool {
	return b.min != nil || b.max != nil
}

type experienceRule struct {
	re    *regexp.Regexp
	apply func(b *yearBounds, n []int)
}

func atLeast(offset int) func(*yearBounds, []int) {
	return func(b *yearBounds, n []int) {
		b.min = models.IntPtr(n[0] + offset)
	}
}

func atMost(offset int) func(*yearBounds, []int) {
	return func(b *yearBounds, n []int) {
		b.max = models.IntPtr(max(n[0]+offset, 0))
	}
}

func between(b *yearBounds, n []int) {
	lo, hi := n[0], n[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	b.min, b.max = models.IntPtr(lo), models.IntPtr(hi)
}

// Order matters: upper-bound phrases are consumed before "more than" can see them.
var experienceRules = []experienceRule{
	{regexp.MustCompile(`(?i)\bbetween\s+(\d{1,2})\s+and\s+(\d{1,2})\s*` + years), between},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:-|–|to)\s*(\d{1,2})\s*` + years), between},
	{regexp.MustCompile(`(?i)\b(?:at most|no more than|up to|maximum(?: of)?|max\.?)\s*(\d{1,2})\s*` + years), atMost(0)},
	{regexp.MustCompile(`(?i)\b(?:less than|under|fewer than)\s*(\d{1,2})\s*` + years), atMost(-1)},
	{regexp.MustCompile(`(?i)\b(?:more than|over)\s*(\d{1,2})\s*` + years), atLeast(1)},
	{regexp.MustCompile(`(?i)\b(?:at least|minimum(?: of)?|min\.?)\s*(\d{1,2})\s*` + years), atLeast(0)},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+\s*` + years), atLeast(0)},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*` + years + `\s*(?:\+|or more|and above|plus)`), atLeast(0)},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*` + years), atLeast(0)},
}

var availabilityRules = []struct {
	re    *regexp.Regexp
	value models.Availability
}{
	{regexp.MustCompile(`(?i)\b(?:available (?:now|immediately|right away)|immediate(?:ly)?(?: joiners?| start| availability)?|can (?:start|join) (?:now|immediately|asap|right away)|asap)\b`), models.AvailabilityImmediate},
	{regexp.MustCompile(`(?i)\b(?:on |serving )?notice period\b`), models.AvailabilityNoticePeriod},
}

var employmentRules = []struct {
	re    *regexp.Regexp
	value string
}{
	{regexp.MustCompile(`(?i)\b(?:full[- ]?time|permanent)\b`), "full-time"},
	{regexp.MustCompile(`(?i)\bpart[- ]?time\b`), "part-time"},
	{regexp.MustCompile(`(?i)\b(?:contract(?:ors?)?|freelance(?:rs?)?)\b`), "contract"},
	{regexp.MustCompile(`(?i)\b(?:internships?|interns?)\b`), "internship"},
}

type seniorityLevel struct {
	minYears int // 0 leaves the lower bound open
	maxYears int // 0 leaves the upper bound open
}

func (l seniorityLevel) changes() models.FilterModel {
	var f models.FilterModel
	if l.minYears > 0 {
		f.MinExperienceYears = models.IntPtr(l.minYears)
	}
	if l.maxYears > 0 {
		f.MaxExperienceYears = models.IntPtr(l.maxYears)
	}
	return f
}

func (l seniorityLevel) describe() string {
	if l.minYears > 0 {
		return fmt.Sprintf("%d+ years", l.minYears)
	}
	return fmt.Sprintf("up to %d years", l.maxYears)
}

var seniorityWords = map[string]string{
	"senior": "senior", "sr": "senior",
	"lead": "lead", "staff": "staff", "principal": "principal",
	"mid": "mid-level", "mid-level": "mid-level", "midlevel": "mid-level", "intermediate": "mid-level",
	"junior": "junior", "jr": "junior",
	"entry": "entry-level", "entry-level": "entry-level", "graduate": "entry-level", "grad": "entry-level",
}

var seniorityYears = map[string]seniorityLevel{
	"senior":      {minYears: 5},
	"lead":        {minYears: 7},
	"staff":       {minYears: 7},
	"principal":   {minYears: 8},
	"mid-level":   {minYears: 3},
	"junior":      {maxYears: 2},
	"entry-level": {maxYears: 1},
}

// headNouns turn "network engineers" into a title keyword when no vocabulary role matched.
var headNouns = map[string]string{
	"engineer": "engineer", "engineers": "engineer",
	"developer": "developer", "developers": "developer", "dev": "developer", "devs": "developer",
	"scientist": "scientist", "scientists": "scientist",
	"analyst": "analyst", "analysts": "analyst",
	"manager": "manager", "managers": "manager",
	"architect": "architect", "architects": "architect",
	"designer": "designer", "designers": "designer",
	"administrator": "administrator", "administrators": "administrator", "admin": "administrator",
	"consultant": "consultant", "consultants": "consultant",
	"specialist": "specialist", "specialists": "specialist",
	"technician": "technician", "technicians": "technician",
}

var negationCues = map[string]bool{
	"not": true, "no": true, "without": true, "excluding": true, "except": true, "exclude": true,
	"minus": true, "nobody": true, "never": true, "avoid": true, "don't": true, "dont": true,
}

var exclusionCues = map[string]bool{"excluding": true, "except": true, "exclude": true, "avoid": true}

var stopwords = toSet(`a an the and or nor for with of in on at to from by as who whom that which this these those
has have having had is are be been being was were can could should would will must may might
i me my we us our you your they them their he she it its one someone somebody anyone anybody
people person persons candidate candidates folks talent profile profiles resume resumes
find finding look looking search searching show give get need needs needed want wanted hire hiring recruit
good great strong solid excellent top best real proven hands-on handson deep
experience experienced expertise expert proficient proficiency knowledge familiar familiarity background skills skill skilled
also only just please some any all more less than least most very really like well both either
required require requires requirement requirements mandatory must-have essential
nice bonus plus preferably preferred prefer ideally optional optionally
role roles position positions job jobs opening team teams work worked working works company companies employer employers
based located location near around remote-friendly anywhere ex former currently current previously
year years yrs level levels new other else etc
scale scaling shift reach stack`)

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// Interpreter turns recruiter text into a filter delta. It is stateless; the prior
// filter is passed in on every call.
type Interpreter struct {
	vocab *Vocabulary
	log   logger.Logger
}

// New builds an interpreter; a nil vocabulary selects the built-in one.
func New(vocab *Vocabulary, log logger.Logger) *Interpreter {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Interpreter{vocab: vocab, log: logger.ForComponent(log, "query-interpreter")}
}

// Vocabulary returns the term list in use.
func (i *Interpreter) Vocabulary() *Vocabulary {
	return i.vocab
}

// extraction accumulates what the clauses of one query yielded.
type extraction struct {
	required  []string
	preferred []string
	locations []string
	titles    []string
	companies []string
	seniority string
	dropped   []string
}

// Interpret extracts a delta from text. Unrecognised tokens are dropped; only blank
// input is an error. The returned signal, when non-nil, asks which reading was meant.
func (i *Interpreter) Interpret(text string, prior models.FilterModel) (models.FilterDelta, *models.AmbiguitySignal, error) {
	if strings.TrimSpace(text) == "" {
		return models.FilterDelta{}, nil, apperrors.NewInterpretationError("query text is empty")
	}

	var delta models.FilterDelta
	rest := text
	if resetPattern.MatchString(rest) {
		delta.Reset = true
		rest = resetPattern.ReplaceAllString(rest, " ")
	}

	bounds, rest := extractExperience(rest)

	for _, rule := range availabilityRules {
		if rule.re.MatchString(rest) {
			delta.Changes.Availability = models.AvailabilityPtr(rule.value)
			rest = rule.re.ReplaceAllString(rest, " ")
			break
		}
	}
	for _, rule := range employmentRules {
		if rule.re.MatchString(rest) {
			delta.Changes.EmploymentType = models.StringPtr(rule.value)
			rest = rule.re.ReplaceAllString(rest, " ")
			break
		}
	}

	var x extraction
	for _, raw := range clauseSplit.Split(rest, -1) {
		i.processClause(raw, &x)
	}

	delta.Changes.RequiredSkills = toList(x.required)
	delta.Changes.PreferredSkills = toList(without(x.preferred, x.required))
	delta.Changes.Locations = toList(x.locations)
	delta.Changes.TitleKeywords = toList(x.titles)
	delta.Changes.ExcludedCompanies = toList(x.companies)
	delta.Changes.MinExperienceYears = bounds.min
	delta.Changes.MaxExperienceYears = bounds.max

	base := prior
	if delta.Reset {
		base = models.FilterModel{}
	}
	signal := i.detectAmbiguity(&delta, x.seniority, bounds.set(), base)

	if len(x.dropped) > 0 {
		i.log.Debug("Dropped unmatched tokens", map[string]interface{}{
			"tokens": x.dropped,
		})
	}
	i.log.Debug("Interpreted query", map[string]interface{}{
		"reset":       delta.Reset,
		"constrained": delta.Changes.ConstrainedDimensions(),
		"ambiguous":   signal != nil,
	})

	return delta, signal, nil
}

func extractExperience(text string) (yearBounds, string) {
	var b yearBounds
	for _, rule := range experienceRules {
		for {
			loc := rule.re.FindStringSubmatchIndex(text)
			if loc == nil {
				break
			}
			var nums []int
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					continue
				}
				n, err := strconv.Atoi(text[loc[g]:loc[g+1]])
				if err == nil {
					nums = append(nums, n)
				}
			}
			if len(nums) > 0 {
				rule.apply(&b, nums)
			}
			text = text[:loc[0]] + " " + text[loc[1]:]
		}
	}
	return b, text
}

func (i *Interpreter) processClause(raw string, x *extraction) {
	tokens := i.tokenize(raw)
	if len(tokens) == 0 {
		return
	}

	neg, exclusion := negationStart(tokens)
	i.collect(tokens[:neg], preferredCue.MatchString(raw), x)
	if neg < len(tokens) {
		i.collectNegated(tokens[neg+1:], exclusion, x)
		return
	}

	for _, m := range capitalizedPlace.FindAllStringSubmatch(raw, -1) {
		place := models.NormalizeSkill(m[1])
		if i.vocab.known(place) || anyWord(place, func(w string) bool {
			return stopwords[w] || headNouns[w] != "" || seniorityWords[w] != ""
		}) {
			continue
		}
		x.locations = append(x.locations, place)
	}
}

func (i *Interpreter) tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("+#./-'", r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSuffix(f, "'s")
		f = strings.Trim(f, "'-")
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		if strings.Contains(f, "/") && !i.vocab.known(f) {
			for _, part := range strings.Split(f, "/") {
				if part != "" {
					out = append(out, part)
				}
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func negationStart(tokens []string) (int, bool) {
	for idx, t := range tokens {
		if !negationCues[t] {
			continue
		}
		exclusion := exclusionCues[t]
		for _, next := range tokens[idx+1 : min(idx+4, len(tokens))] {
			if next == "from" || next == "at" || next == "ex" {
				exclusion = true
			}
		}
		return idx, exclusion
	}
	return len(tokens), false
}

type termMatch struct {
	kind      termKind
	canonical string
}

// scan greedily matches the longest vocabulary phrase at each position.
func (i *Interpreter) scan(tokens []string) ([]termMatch, []bool) {
	var matches []termMatch
	consumed := make([]bool, len(tokens))

	for p := 0; p < len(tokens); {
		n := min(i.vocab.maxWords, len(tokens)-p)
		found := false
		for ; n >= 1 && !found; n-- {
			phrase := strings.Join(tokens[p:p+n], " ")
			for _, kind := range []termKind{kindRole, kindSkill, kindLocation} {
				if c, ok := i.vocab.lookup(kind, phrase); ok {
					matches = append(matches, termMatch{kind: kind, canonical: c})
					for k := p; k < p+n; k++ {
						consumed[k] = true
					}
					p += n
					found = true
					break
				}
			}
		}
		if !found {
			p++
		}
	}
	return matches, consumed
}

func (i *Interpreter) collect(tokens []string, preferred bool, x *extraction) {
	matches, consumed := i.scan(tokens)

	addSkill := func(s string) {
		if preferred {
			x.preferred = append(x.preferred, s)
		} else {
			x.required = append(x.required, s)
		}
	}

	roleMatched := false
	for _, m := range matches {
		switch m.kind {
		case kindSkill:
			addSkill(m.canonical)
		case kindRole:
			roleMatched = true
			x.titles = append(x.titles, m.canonical)
		case kindLocation:
			x.locations = append(x.locations, m.canonical)
		}
	}

	// Head nouns first so their modifiers are not fuzzy-matched as skills.
	for idx, t := range tokens {
		noun := headNouns[t]
		if consumed[idx] || noun == "" {
			continue
		}
		consumed[idx] = true
		if roleMatched {
			continue
		}
		title := noun
		if idx > 0 && !consumed[idx-1] && isModifier(tokens[idx-1]) {
			title = tokens[idx-1] + " " + noun
			consumed[idx-1] = true
		}
		x.titles = append(x.titles, title)
	}

	for idx, t := range tokens {
		if consumed[idx] {
			continue
		}
		switch {
		case seniorityWords[t] != "":
			if x.seniority == "" {
				x.seniority = seniorityWords[t]
			}
		case stopwords[t] || hasDigit(t):
		default:
			if skill, ok := i.vocab.nearest(t); ok {
				addSkill(skill)
			} else {
				x.dropped = append(x.dropped, t)
			}
		}
	}
}

// collectNegated handles the tail of a clause after a negation cue. Negated skills,
// roles and places are dropped; with an exclusion cue the remaining words name companies.
func (i *Interpreter) collectNegated(tokens []string, exclusion bool, x *extraction) {
	matches, consumed := i.scan(tokens)
	for _, m := range matches {
		x.dropped = append(x.dropped, "not "+m.canonical)
	}
	if !exclusion {
		return
	}

	var run []string
	flush := func() {
		if len(run) > 0 {
			x.companies = append(x.companies, strings.Join(run, " "))
			run = nil
		}
	}
	for idx, t := range tokens {
		if consumed[idx] || stopwords[t] || negationCues[t] || headNouns[t] != "" || seniorityWords[t] != "" {
			flush()
			continue
		}
		run = append(run, t)
	}
	flush()
}

func (i *Interpreter) detectAmbiguity(delta *models.FilterDelta, seniority string, explicitYears bool, base models.FilterModel) *models.AmbiguitySignal {
	roleKnown := len(delta.Changes.TitleKeywords) > 0 || len(base.TitleKeywords) > 0

	if seniority != "" && !explicitYears {
		level := seniorityYears[seniority]
		if !roleKnown {
			return i.seniorityQuestion(seniority, level, base.Merge(models.FilterDelta{Changes: delta.Changes}))
		}
		ch := level.changes()
		delta.Changes.MinExperienceYears = ch.MinExperienceYears
		delta.Changes.MaxExperienceYears = ch.MaxExperienceYears
	}
	fitExperience(delta, base)

	merged := base.Merge(models.FilterDelta{Changes: delta.Changes, Cleared: delta.Cleared})
	if base.IsEmpty() && len(merged.RequiredSkills) == 0 && len(merged.TitleKeywords) == 0 {
		return i.underspecifiedQuestion()
	}
	return nil
}

// fitExperience keeps the experience range ordered when d moves one bound past the
// opposite bound held by prior: a lowered maximum opens the minimum at 0, a raised
// minimum lifts the maximum.
func fitExperience(d *models.FilterDelta, prior models.FilterModel) {
	c := &d.Changes
	switch {
	case c.MaxExperienceYears != nil && c.MinExperienceYears == nil &&
		prior.MinExperienceYears != nil && *prior.MinExperienceYears > *c.MaxExperienceYears:
		c.MinExperienceYears = models.IntPtr(0)
	case c.MinExperienceYears != nil && c.MaxExperienceYears == nil &&
		prior.MaxExperienceYears != nil && *prior.MaxExperienceYears < *c.MinExperienceYears:
		d.Cleared = append(d.Cleared, models.DimMaxExperience)
	}
}

func (i *Interpreter) seniorityQuestion(word string, level seniorityLevel, prior models.FilterModel) *models.AmbiguitySignal {
	span := level.describe()
	signal := &models.AmbiguitySignal{
		Dimension: models.DimTitleKeywords,
		Trigger:   models.TriggerSeniorityWithoutRole,
		Question:  fmt.Sprintf("Which role do you mean by %q? Otherwise I'll search any role with %s of experience.", word, span),
		Interpretations: []models.Interpretation{{
			Label: fmt.Sprintf("Any role with %s of experience", span),
			Delta: models.FilterDelta{Changes: level.changes()},
		}},
	}
	for _, role := range i.vocab.Suggestions() {
		ch := level.changes()
		ch.TitleKeywords = []string{role}
		signal.Interpretations = append(signal.Interpretations, models.Interpretation{
			Label: word + " " + role,
			Delta: models.FilterDelta{Changes: ch},
		})
	}
	for k := range signal.Interpretations {
		fitExperience(&signal.Interpretations[k].Delta, prior)
	}
	return signal
}

func (i *Interpreter) underspecifiedQuestion() *models.AmbiguitySignal {
	signal := &models.AmbiguitySignal{
		Dimension: models.DimTitleKeywords,
		Trigger:   models.TriggerUnderspecified,
		Question:  "What role or skills are you hiring for? I can also rank every candidate as is.",
		Interpretations: []models.Interpretation{{
			Label: "Search all candidates",
		}},
	}
	for _, role := range i.vocab.Suggestions() {
		signal.Interpretations = append(signal.Interpretations, models.Interpretation{
			Label: role,
			Delta: models.FilterDelta{Changes: models.FilterModel{TitleKeywords: []string{role}}},
		})
	}
	return signal
}

func (v *Vocabulary) known(phrase string) bool {
	for _, kind := range []termKind{kindSkill, kindRole, kindLocation} {
		if _, ok := v.lookup(kind, phrase); ok {
			return true
		}
	}
	return false
}

func isModifier(t string) bool {
	if len(t) < 2 || stopwords[t] || negationCues[t] || seniorityWords[t] != "" || headNouns[t] != "" {
		return false
	}
	for _, r := range t {
		if !unicode.IsLetter(r) && r != '-' {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func anyWord(phrase string, pred func(string) bool) bool {
	for _, w := range strings.Fields(phrase) {
		if pred(w) {
			return true
		}
	}
	return false
}

func toList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return models.NormalizeSkills(in)
}

func without(in, drop []string) []string {
	if len(drop) == 0 {
		return in
	}
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	var out []string
	for _, s := range in {
		if !skip[s] {
			out = append(out, s)
		}
	}
	return out
}
