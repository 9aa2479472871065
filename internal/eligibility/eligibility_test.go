package eligibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/eligibility"
)

var allPlans = []eligibility.Plan{eligibility.PlanFree, eligibility.PlanPro, eligibility.PlanPayGo}

func TestIsPlanEligible(t *testing.T) {
	assert.False(t, eligibility.IsPlanEligible(eligibility.PlanFree, eligibility.PlanPro))
	assert.True(t, eligibility.IsPlanEligible(eligibility.PlanPayGo, eligibility.PlanPro))
	assert.False(t, eligibility.IsPlanEligible(eligibility.PlanPro, eligibility.PlanPayGo))

	for _, p := range allPlans {
		assert.True(t, eligibility.IsPlanEligible(p, p), p)
		assert.True(t, eligibility.IsPlanEligible(p, eligibility.PlanFree), p)
	}

	assert.False(t, eligibility.IsPlanEligible("enterprise", eligibility.PlanFree))
	assert.False(t, eligibility.IsPlanEligible(eligibility.PlanPayGo, "enterprise"))
}

func TestParsePlan(t *testing.T) {
	p, err := eligibility.ParsePlan(" PayGo ")
	require.NoError(t, err)
	assert.Equal(t, eligibility.PlanPayGo, p)

	_, err = eligibility.ParsePlan("gold")
	assert.ErrorIs(t, err, eligibility.ErrUnknownPlan)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSuggestPlanUpgrade(t *testing.T) {
	tests := []struct {
		current  eligibility.Plan
		required eligibility.Plan
		want     eligibility.Plan // empty means nil
	}{
		{eligibility.PlanFree, eligibility.PlanFree, ""},
		{eligibility.PlanFree, eligibility.PlanPro, eligibility.PlanPro},
		{eligibility.PlanFree, eligibility.PlanPayGo, eligibility.PlanPayGo},
		{eligibility.PlanPro, eligibility.PlanPro, ""},
		{eligibility.PlanPro, eligibility.PlanPayGo, eligibility.PlanPayGo},
		{eligibility.PlanPayGo, eligibility.PlanFree, ""},
		{eligibility.PlanPayGo, eligibility.PlanPayGo, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"->"+string(tt.required), func(t *testing.T) {
			got := eligibility.SuggestPlanUpgrade(tt.current, tt.required)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func model(id string, plan eligibility.Plan, active bool) eligibility.Model {
	return eligibility.Model{ID: id, Name: id, DisplayName: id, Provider: "openai", Category: "chat", RequiredPlan: plan, IsActive: active}
}

func TestCheckModelEligibility_Eligible(t *testing.T) {
	r := eligibility.CheckModelEligibility(model("gpt", eligibility.PlanPro, true), eligibility.PlanPro, true)

	assert.True(t, r.Eligible)
	assert.Empty(t, r.Reasons)
	assert.NotNil(t, r.Reasons)
	assert.Nil(t, r.SuggestedPlan)
	assert.Equal(t, "gpt", r.ModelID)
}

func TestCheckModelEligibility_ReasonsAccumulate(t *testing.T) {
	r := eligibility.CheckModelEligibility(model("opus", eligibility.PlanPayGo, false), eligibility.PlanFree, false)

	assert.False(t, r.Eligible)
	assert.Equal(t, []string{
		eligibility.ReasonInactive,
		eligibility.ReasonNeedsHigherTier,
		eligibility.ReasonNotEnabled,
	}, r.Reasons)
	require.NotNil(t, r.SuggestedPlan)
	assert.Equal(t, eligibility.PlanPayGo, *r.SuggestedPlan)
}

func TestCheckModelEligibility_PlanReasons(t *testing.T) {
	tests := []struct {
		user     eligibility.Plan
		required eligibility.Plan
		reason   string
	}{
		{eligibility.PlanFree, eligibility.PlanPro, eligibility.ReasonNeedsPro},
		{eligibility.PlanFree, eligibility.PlanPayGo, eligibility.ReasonNeedsHigherTier},
		{eligibility.PlanPro, eligibility.PlanPayGo, eligibility.ReasonNeedsPayGo},
	}

	for _, tt := range tests {
		r := eligibility.CheckModelEligibility(model("m", tt.required, true), tt.user, true)
		assert.Equal(t, []string{tt.reason}, r.Reasons)
	}
}

func TestCheckModelEligibility_OnlyWorkspaceDisabled(t *testing.T) {
	r := eligibility.CheckModelEligibility(model("m", eligibility.PlanFree, true), eligibility.PlanPayGo, false)

	assert.False(t, r.Eligible)
	assert.Equal(t, []string{eligibility.ReasonNotEnabled}, r.Reasons)
	assert.Nil(t, r.SuggestedPlan)
}

func TestFilterEligibleModels_PreservesOrder(t *testing.T) {
	models := []eligibility.Model{
		model("z", eligibility.PlanFree, true),
		model("a", eligibility.PlanFree, true),
		model("premium", eligibility.PlanPayGo, true),
		model("retired", eligibility.PlanFree, false),
		model("m", eligibility.PlanPro, true),
		model("off", eligibility.PlanFree, true),
	}
	enabled := map[string]bool{"z": true, "a": true, "premium": true, "retired": true, "m": true}

	got := eligibility.FilterEligibleModels(models, eligibility.PlanPro, enabled)

	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestAnnotate(t *testing.T) {
	models := []eligibility.Model{model("a", eligibility.PlanFree, true), model("b", eligibility.PlanPro, true)}

	got := eligibility.Annotate(models, eligibility.PlanFree, map[string]bool{"a": true, "b": true})

	require.Len(t, got, 2)
	assert.True(t, got[0].Eligible)
	assert.True(t, got[0].EnabledForWorkspace)
	assert.False(t, got[1].Eligible)
	assert.Equal(t, []string{eligibility.ReasonNeedsPro}, got[1].Reasons)
}
