package queryinterpreter

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

type termKind int

const (
	kindSkill termKind = iota
	kindRole
	kindLocation
)

// vocabularyFile is the YAML shape: canonical term -> aliases, per kind.
type vocabularyFile struct {
	Skills    map[string][]string `yaml:"skills"`
	Roles     map[string][]string `yaml:"roles"`
	Locations map[string][]string `yaml:"locations"`

	Suggestions []string `yaml:"suggestions"`
}

// Vocabulary is the controlled term list the interpreter matches against.
// It is read-only once built and shared across sessions.
type Vocabulary struct {
	terms       map[termKind]map[string]string // surface form -> canonical
	maxWords    int
	fuzzy       []string // single-word skill surface forms eligible for fuzzy matching
	suggestions []string
}

// DefaultVocabulary returns the built-in skill, role and location lists.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabulary)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a YAML vocabulary file and layers it over the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	v := DefaultVocabulary()
	v.add(file)
	return v, nil
}

// ParseVocabulary builds a vocabulary from YAML bytes alone.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	v := &Vocabulary{
		terms: map[termKind]map[string]string{
			kindSkill:    {},
			kindRole:     {},
			kindLocation: {},
		},
	}
	v.add(file)
	return v, nil
}

// WithSkills returns a copy that also recognises the given skills, e.g. the distinct
// skills present in the record store.
func (v *Vocabulary) WithSkills(skills []string) *Vocabulary {
	extra := vocabularyFile{Skills: map[string][]string{}}
	for _, s := range skills {
		extra.Skills[s] = nil
	}
	out := v.clone()
	out.add(extra)
	return out
}

func (v *Vocabulary) clone() *Vocabulary {
	out := &Vocabulary{
		terms:       map[termKind]map[string]string{},
		maxWords:    v.maxWords,
		fuzzy:       append([]string(nil), v.fuzzy...),
		suggestions: append([]string(nil), v.suggestions...),
	}
	for k, m := range v.terms {
		cp := make(map[string]string, len(m))
		for s, c := range m {
			cp[s] = c
		}
		out.terms[k] = cp
	}
	return out
}

func (v *Vocabulary) add(file vocabularyFile) {
	v.addKind(kindSkill, file.Skills)
	v.addKind(kindRole, file.Roles)
	v.addKind(kindLocation, file.Locations)

	if len(file.Suggestions) > 0 {
		v.suggestions = v.suggestions[:0]
		for _, r := range file.Suggestions {
			if c, ok := v.lookup(kindRole, models.NormalizeSkill(r)); ok {
				v.suggestions = append(v.suggestions, c)
			}
		}
	}

	fuzzy := map[string]struct{}{}
	for surface := range v.terms[kindSkill] {
		if !strings.Contains(surface, " ") && len(surface) >= 5 {
			fuzzy[surface] = struct{}{}
		}
	}
	v.fuzzy = v.fuzzy[:0]
	for s := range fuzzy {
		v.fuzzy = append(v.fuzzy, s)
	}
	sort.Strings(v.fuzzy)
}

func (v *Vocabulary) addKind(kind termKind, entries map[string][]string) {
	canonicals := make([]string, 0, len(entries))
	for canonical := range entries {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	for _, canonical := range canonicals {
		c := models.NormalizeSkill(canonical)
		if c == "" {
			continue
		}
		for _, surface := range append([]string{canonical}, entries[canonical]...) {
			s := models.NormalizeSkill(surface)
			if s == "" {
				continue
			}
			v.terms[kind][s] = c
			if n := len(strings.Fields(s)); n > v.maxWords {
				v.maxWords = n
			}
		}
	}
}

func (v *Vocabulary) lookup(kind termKind, phrase string) (string, bool) {
	c, ok := v.terms[kind][phrase]
	return c, ok
}

// Canonical maps a surface skill form onto its canonical name, if known.
func (v *Vocabulary) Canonical(skill string) (string, bool) {
	return v.lookup(kindSkill, models.NormalizeSkill(skill))
}

// Suggestions returns the roles offered when a clarification needs one.
func (v *Vocabulary) Suggestions() []string {
	return append([]string(nil), v.suggestions...)
}
