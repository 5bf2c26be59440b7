package refinementcontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhanasaripv257/skillq-app/internal/common/logger"
	"github.com/nadhanasaripv257/skillq-app/internal/models"
)

func seniorSignal() *models.AmbiguitySignal {
	return &models.AmbiguitySignal{
		Dimension: models.DimTitleKeywords,
		Trigger:   models.TriggerSeniorityWithoutRole,
		Question:  "Which role?",
		Interpretations: []models.Interpretation{
			{Label: "Any role with 5+ years of experience", Delta: models.FilterDelta{Changes: models.FilterModel{MinExperienceYears: models.IntPtr(5)}}},
			{Label: "senior data engineer", Delta: models.FilterDelta{Changes: models.FilterModel{
				MinExperienceYears: models.IntPtr(5),
				TitleKeywords:      []string{"data engineer"},
			}}},
		},
	}
}

func TestDecide_NoSignalProceeds(t *testing.T) {
	c := New(1, logger.NewTestLogger(t))
	delta := models.FilterDelta{Changes: models.FilterModel{RequiredSkills: []string{"go"}}}

	d := c.Decide(delta, nil, Budget{})
	assert.Equal(t, ActionProceed, d.Action)
	assert.Equal(t, delta, d.Delta)
	assert.Nil(t, d.Signal)
	assert.Nil(t, d.Adopted)
}

func TestDecide_AsksOncePerDimension(t *testing.T) {
	c := New(1, logger.NewTestLogger(t))
	delta := models.FilterDelta{Changes: models.FilterModel{Locations: []string{"berlin"}}}
	budget := Budget{}

	first := c.Decide(delta, seniorSignal(), budget)
	assert.Equal(t, ActionClarify, first.Action)
	require.NotNil(t, first.Signal)
	assert.Equal(t, delta, first.Delta)
	assert.Equal(t, 1, first.Budget.Asked(models.DimTitleKeywords))
	assert.Equal(t, 0, budget.Asked(models.DimTitleKeywords), "input budget is not mutated")

	second := c.Decide(delta, seniorSignal(), first.Budget)
	assert.Equal(t, ActionProceed, second.Action)
	assert.Nil(t, second.Signal)
	require.NotNil(t, second.Adopted)
	assert.Equal(t, "Any role with 5+ years of experience", second.Adopted.Label)
	assert.Equal(t, []string{"berlin"}, second.Delta.Changes.Locations)
	require.NotNil(t, second.Delta.Changes.MinExperienceYears)
	assert.Equal(t, 5, *second.Delta.Changes.MinExperienceYears)
	assert.Equal(t, 1, second.Budget.Asked(models.DimTitleKeywords))
}

func TestDecide_BudgetIsPerDimension(t *testing.T) {
	c := New(1, logger.NewTestLogger(t))
	budget := Budget{}.Spend(models.DimRequiredSkills)

	d := c.Decide(models.FilterDelta{}, seniorSignal(), budget)
	assert.Equal(t, ActionClarify, d.Action)
}

func TestAdopt_KeepsResetAndUnionsSets(t *testing.T) {
	delta := models.FilterDelta{
		Reset:   true,
		Changes: models.FilterModel{TitleKeywords: []string{"analyst"}},
	}
	out := Adopt(delta, seniorSignal().Interpretations[1])

	assert.True(t, out.Reset)
	assert.Equal(t, []string{"analyst", "data engineer"}, out.Changes.TitleKeywords)
	assert.Equal(t, 5, *out.Changes.MinExperienceYears)
}

func TestResolveChoice(t *testing.T) {
	pending := seniorSignal()

	tests := []struct {
		reply string
		want  string
		ok    bool
	}{
		{"1", "Any role with 5+ years of experience", true},
		{" 2 ", "senior data engineer", true},
		{"option 2", "senior data engineer", true},
		{"#1", "Any role with 5+ years of experience", true},
		{"Senior Data Engineer", "senior data engineer", true},
		{"3", "", false},
		{"0", "", false},
		{"python please", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, ok := ResolveChoice(tt.reply, pending)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Label)
		})
	}

	_, ok := ResolveChoice("1", nil)
	assert.False(t, ok)
}
