package queryinterpreter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nadhanasaripv257/skillq-app/internal/common/errors"
	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

func newInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	return New(nil, logger.NewTestLogger(t))
}

func TestInterpret_EmptyInput(t *testing.T) {
	in := newInterpreter(t)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, signal, err := in.Interpret(text, models.FilterModel{})
		require.Error(t, err)
		assert.Nil(t, signal)
		assert.True(t, errors.Is(err, apperrors.ErrInterpretation))
	}
}

func TestInterpret_SkillsExperienceLocationTitle(t *testing.T) {
	in := newInterpreter(t)

	delta, signal, err := in.Interpret("Python and SQL developers with 5+ years in London", models.FilterModel{})
	require.NoError(t, err)
	assert.Nil(t, signal)

	assert.False(t, delta.Reset)
	assert.Equal(t, []string{"python", "sql"}, delta.Changes.RequiredSkills)
	assert.Equal(t, []string{"london"}, delta.Changes.Locations)
	assert.Equal(t, []string{"developer"}, delta.Changes.TitleKeywords)
	require.NotNil(t, delta.Changes.MinExperienceYears)
	assert.Equal(t, 5, *delta.Changes.MinExperienceYears)
	assert.Nil(t, delta.Changes.MaxExperienceYears)
}

func TestInterpret_ExperiencePhrases(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{TitleKeywords: []string{"software engineer"}}

	tests := []struct {
		text    string
		wantMin *int
		wantMax *int
	}{
		{"5+ years", models.IntPtr(5), nil},
		{"5 years experience", models.IntPtr(5), nil},
		{"at least 4 years", models.IntPtr(4), nil},
		{"more than 3 years", models.IntPtr(4), nil},
		{"3-5 years", models.IntPtr(3), models.IntPtr(5)},
		{"between 2 and 6 yrs", models.IntPtr(2), models.IntPtr(6)},
		{"no more than 6 years", nil, models.IntPtr(6)},
		{"less than 2 years", nil, models.IntPtr(1)},
		{"7 years or more", models.IntPtr(7), nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			delta, signal, err := in.Interpret(tt.text, prior)
			require.NoError(t, err)
			assert.Nil(t, signal)
			assert.Equal(t, tt.wantMin, delta.Changes.MinExperienceYears)
			assert.Equal(t, tt.wantMax, delta.Changes.MaxExperienceYears)
		})
	}
}

func TestInterpret_UnderspecifiedFirstTurn(t *testing.T) {
	in := newInterpreter(t)

	delta, signal, err := in.Interpret("find someone good", models.FilterModel{})
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.True(t, delta.IsEmpty())
	assert.Equal(t, models.TriggerUnderspecified, signal.Trigger)
	assert.Equal(t, models.DimTitleKeywords, signal.Dimension)
	assert.NotEmpty(t, signal.Question)

	top, ok := signal.Top()
	require.True(t, ok)
	assert.True(t, top.Delta.IsEmpty(), "top reading is a broad search")
	assert.Len(t, signal.Interpretations, 1+len(in.Vocabulary().Suggestions()))
}

func TestInterpret_UnderspecifiedOnlyOnFirstTurn(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{RequiredSkills: []string{"go"}}

	_, signal, err := in.Interpret("find someone good", prior)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

func TestInterpret_SeniorityWithoutRole(t *testing.T) {
	in := newInterpreter(t)

	delta, signal, err := in.Interpret("senior", models.FilterModel{})
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Equal(t, models.TriggerSeniorityWithoutRole, signal.Trigger)
	assert.Equal(t, models.DimTitleKeywords, signal.Dimension)
	assert.Nil(t, delta.Changes.MinExperienceYears, "seniority is not applied until a role is known")

	top, ok := signal.Top()
	require.True(t, ok)
	require.NotNil(t, top.Delta.Changes.MinExperienceYears)
	assert.Equal(t, 5, *top.Delta.Changes.MinExperienceYears)
	assert.Empty(t, top.Delta.Changes.TitleKeywords)

	second := signal.Interpretations[1]
	assert.Equal(t, []string{"software engineer"}, second.Delta.Changes.TitleKeywords)
	assert.Equal(t, 5, *second.Delta.Changes.MinExperienceYears)
}

func TestInterpret_SeniorityWithKnownRole(t *testing.T) {
	in := newInterpreter(t)

	t.Run("role in prior filter", func(t *testing.T) {
		prior := models.FilterModel{TitleKeywords: []string{"data engineer"}}
		delta, signal, err := in.Interpret("senior", prior)
		require.NoError(t, err)
		assert.Nil(t, signal)
		require.NotNil(t, delta.Changes.MinExperienceYears)
		assert.Equal(t, 5, *delta.Changes.MinExperienceYears)
	})

	t.Run("role in same turn", func(t *testing.T) {
		delta, signal, err := in.Interpret("junior backend developer", models.FilterModel{})
		require.NoError(t, err)
		assert.Nil(t, signal)
		assert.Equal(t, []string{"backend engineer"}, delta.Changes.TitleKeywords)
		assert.Nil(t, delta.Changes.MinExperienceYears)
		require.NotNil(t, delta.Changes.MaxExperienceYears)
		assert.Equal(t, 2, *delta.Changes.MaxExperienceYears)
	})

	t.Run("explicit years win", func(t *testing.T) {
		delta, signal, err := in.Interpret("senior backend engineer with 3 years", models.FilterModel{})
		require.NoError(t, err)
		assert.Nil(t, signal)
		require.NotNil(t, delta.Changes.MinExperienceYears)
		assert.Equal(t, 3, *delta.Changes.MinExperienceYears)
	})
}

func TestInterpret_Negation(t *testing.T) {
	in := newInterpreter(t)

	delta, signal, err := in.Interpret("python but not java, excluding people from Google and Meta", models.FilterModel{})
	require.NoError(t, err)
	assert.Nil(t, signal)

	assert.Equal(t, []string{"python"}, delta.Changes.RequiredSkills)
	assert.NotContains(t, delta.Changes.RequiredSkills, "java")
	assert.Equal(t, []string{"google", "meta"}, delta.Changes.ExcludedCompanies)
}

func TestInterpret_NegatedSkillIsDropped(t *testing.T) {
	in := newInterpreter(t)

	delta, _, err := in.Interpret("react developers without angular", models.FilterModel{})
	require.NoError(t, err)
	assert.Equal(t, []string{"react"}, delta.Changes.RequiredSkills)
	assert.Empty(t, delta.Changes.PreferredSkills)
	assert.Empty(t, delta.Changes.ExcludedCompanies)
}

func TestInterpret_PreferredSkills(t *testing.T) {
	in := newInterpreter(t)

	delta, _, err := in.Interpret("must know Kubernetes, nice to have AWS and Docker", models.FilterModel{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kubernetes"}, delta.Changes.RequiredSkills)
	assert.Equal(t, []string{"aws", "docker"}, delta.Changes.PreferredSkills)
}

func TestInterpret_AliasesAndFuzzy(t *testing.T) {
	in := newInterpreter(t)

	tests := []struct {
		text string
		want []string
	}{
		{"golang and k8s", []string{"go", "kubernetes"}},
		{"pyhton and kubernets", []string{"kubernetes", "python"}},
		{"python/sql", []string{"python", "sql"}},
		{"ci/cd", []string{"ci/cd"}},
		{"node.js and c++", []string{"c++", "node.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			delta, _, err := in.Interpret(tt.text, models.FilterModel{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, delta.Changes.RequiredSkills)
		})
	}
}

func TestInterpret_UnknownJargonIsDropped(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{RequiredSkills: []string{"go"}}

	delta, signal, err := in.Interpret("zxqv blorp", prior)
	require.NoError(t, err)
	assert.Nil(t, signal)
	assert.True(t, delta.IsEmpty())
}

func TestInterpret_Reset(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{RequiredSkills: []string{"java"}, Locations: []string{"austin"}}

	delta, signal, err := in.Interpret("start over, data scientists in Berlin", prior)
	require.NoError(t, err)
	assert.Nil(t, signal)

	assert.True(t, delta.Reset)
	assert.Equal(t, []string{"data scientist"}, delta.Changes.TitleKeywords)
	assert.Equal(t, []string{"berlin"}, delta.Changes.Locations)

	merged := prior.Merge(delta)
	assert.Empty(t, merged.RequiredSkills)
}

func TestInterpret_ResetAloneAsksAgain(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{RequiredSkills: []string{"java"}}

	delta, signal, err := in.Interpret("start over", prior)
	require.NoError(t, err)
	assert.True(t, delta.Reset)
	require.NotNil(t, signal)
	assert.Equal(t, models.TriggerUnderspecified, signal.Trigger)
}

func TestInterpret_AvailabilityAndEmploymentType(t *testing.T) {
	in := newInterpreter(t)

	delta, _, err := in.Interpret("contract react developers available immediately", models.FilterModel{})
	require.NoError(t, err)

	require.NotNil(t, delta.Changes.Availability)
	assert.Equal(t, models.AvailabilityImmediate, *delta.Changes.Availability)
	require.NotNil(t, delta.Changes.EmploymentType)
	assert.Equal(t, "contract", *delta.Changes.EmploymentType)
	assert.Equal(t, []string{"react"}, delta.Changes.RequiredSkills)
	assert.Equal(t, []string{"developer"}, delta.Changes.TitleKeywords)
}

func TestInterpret_UnknownCapitalizedPlace(t *testing.T) {
	in := newInterpreter(t)

	delta, _, err := in.Interpret("network engineers based in Perth", models.FilterModel{})
	require.NoError(t, err)
	assert.Equal(t, []string{"network engineer"}, delta.Changes.TitleKeywords)
	assert.Equal(t, []string{"perth"}, delta.Changes.Locations)
}

func TestInterpret_DoesNotMutatePrior(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{TitleKeywords: []string{"data engineer"}, MinExperienceYears: models.IntPtr(2)}
	before := prior.Clone()

	_, _, err := in.Interpret("senior spark engineer", prior)
	require.NoError(t, err)
	assert.Equal(t, before, prior)
}

func TestVocabulary_WithSkillsAndFile(t *testing.T) {
	base := DefaultVocabulary()
	assert.Equal(t, []string{"software engineer", "data engineer", "product manager"}, base.Suggestions())

	extended := base.WithSkills([]string{"Snowplow", "  Looker "})
	_, ok := base.Canonical("snowplow")
	assert.False(t, ok, "extending returns a copy")

	in := New(extended, logger.NewTestLogger(t))
	delta, _, err := in.Interpret("snowplow and looker", models.FilterModel{})
	require.NoError(t, err)
	assert.Equal(t, []string{"looker", "snowplow"}, delta.Changes.RequiredSkills)

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skills:\n  clickhouse: [ch db]\n"), 0o600))

	loaded, err := LoadVocabulary(path)
	require.NoError(t, err)
	c, ok := loaded.Canonical("ch db")
	require.True(t, ok)
	assert.Equal(t, "clickhouse", c)
	_, ok = loaded.Canonical("python")
	assert.True(t, ok, "file entries layer over the defaults")

	_, err = LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("python", "python"))
	assert.Equal(t, 1, editDistance("pyhton", "python"))
	assert.Equal(t, 1, editDistance("kubernets", "kubernetes"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
}

func TestInterpret_RefinedExperienceStaysOrdered(t *testing.T) {
	in := newInterpreter(t)

	turns := func(t *testing.T, texts ...string) models.FilterModel {
		t.Helper()
		var f models.FilterModel
		for _, text := range texts {
			delta, signal, err := in.Interpret(text, f)
			require.NoError(t, err)
			require.Nil(t, signal, text)
			f = f.Merge(delta)
		}
		return f
	}

	tests := []struct {
		name    string
		texts   []string
		wantMin *int
		wantMax *int
	}{
		{"junior after senior", []string{"senior python developer", "junior"}, models.IntPtr(0), models.IntPtr(2)},
		{"upper bound below earlier minimum", []string{"python developer with 5+ years", "less than 3 years"}, models.IntPtr(0), models.IntPtr(2)},
		{"senior after junior", []string{"junior python developer", "senior"}, models.IntPtr(5), nil},
		{"minimum above earlier maximum", []string{"python developer with at most 2 years", "at least 4 years"}, models.IntPtr(4), nil},
		{"compatible bound is kept", []string{"python developer with 3+ years", "at most 8 years"}, models.IntPtr(3), models.IntPtr(8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := turns(t, tt.texts...)
			assert.Equal(t, tt.wantMin, f.MinExperienceYears)
			assert.Equal(t, tt.wantMax, f.MaxExperienceYears)
			if f.MinExperienceYears != nil && f.MaxExperienceYears != nil {
				assert.LessOrEqual(t, *f.MinExperienceYears, *f.MaxExperienceYears)
			}
		})
	}
}

func TestInterpret_SeniorityOptionsFitPriorRange(t *testing.T) {
	in := newInterpreter(t)
	prior := models.FilterModel{RequiredSkills: []string{"python"}, MinExperienceYears: models.IntPtr(5)}

	_, signal, err := in.Interpret("junior", prior)
	require.NoError(t, err)
	require.NotNil(t, signal)
	require.NotEmpty(t, signal.Interpretations)

	for _, option := range signal.Interpretations {
		f := prior.Merge(option.Delta)
		require.NotNil(t, f.MaxExperienceYears, option.Label)
		assert.Equal(t, 0, *f.MinExperienceYears, option.Label)
		assert.Equal(t, 2, *f.MaxExperienceYears, option.Label)
	}
}
