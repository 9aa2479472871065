// Package eligibility decides whether a workspace member may use a model.
// A model is usable when it is active, the tenant's plan covers the model's
// required plan, and the workspace has enabled it. Every failing condition
// contributes its own reason.
package eligibility

import "time"

const (
	ReasonInactive           = "This model is no longer available or has been deprecated"
	ReasonNeedsPro           = "This model requires a Pro plan or higher. Upgrade to Pro to use it"
	ReasonNeedsHigherTier    = "This model requires a higher tier subscription (Pro or PayGo)"
	ReasonNeedsPayGo         = "This is a premium model. Upgrade to PayGo plan for unrestricted access"
	ReasonNotEnabled         = "This model is not enabled for your workspace. Contact your workspace admin"
	reasonPlanFallbackPrefix = "This model requires the "
)

// Model is a catalog entry.
type Model struct {
	ID           string
	Name         string
	DisplayName  string
	Provider     string
	Category     string
	RequiredPlan Plan
	IsActive     bool
	CreatedAt    time.Time
}

// Result is the outcome of an eligibility check. An ineligible model is a
// valid result, not an error.
type Result struct {
	ModelID       string   `json:"modelId"`
	ModelName     string   `json:"modelName"`
	Eligible      bool     `json:"eligible"`
	Reasons       []string `json:"reasons"`
	SuggestedPlan *Plan    `json:"suggestedPlan"`
}

// ModelStatus annotates a catalog model with a workspace's view of it.
type ModelStatus struct {
	Model
	EnabledForWorkspace bool
	Eligible            bool
	Reasons             []string
}

// CheckModelEligibility evaluates the three conditions independently.
func CheckModelEligibility(m Model, userPlan Plan, enabledForWorkspace bool) Result {
	reasons := []string{}

	if !m.IsActive {
		reasons = append(reasons, ReasonInactive)
	}
	if !IsPlanEligible(userPlan, m.RequiredPlan) {
		reasons = append(reasons, planReason(userPlan, m.RequiredPlan))
	}
	if !enabledForWorkspace {
		reasons = append(reasons, ReasonNotEnabled)
	}

	return Result{
		ModelID:       m.ID,
		ModelName:     m.DisplayName,
		Eligible:      len(reasons) == 0,
		Reasons:       reasons,
		SuggestedPlan: SuggestPlanUpgrade(userPlan, m.RequiredPlan),
	}
}

func planReason(userPlan, required Plan) string {
	switch {
	case userPlan == PlanFree && required == PlanPro:
		return ReasonNeedsPro
	case userPlan == PlanFree && required == PlanPayGo:
		return ReasonNeedsHigherTier
	case userPlan == PlanPro && required == PlanPayGo:
		return ReasonNeedsPayGo
	}
	return reasonPlanFallbackPrefix + string(required) + " plan"
}

// FilterEligibleModels returns the eligible subset of models in input order.
func FilterEligibleModels(models []Model, userPlan Plan, enabled map[string]bool) []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		if CheckModelEligibility(m, userPlan, enabled[m.ID]).Eligible {
			out = append(out, m)
		}
	}
	return out
}

// Annotate reports the status of every model in input order.
func Annotate(models []Model, userPlan Plan, enabled map[string]bool) []ModelStatus {
	out := make([]ModelStatus, 0, len(models))
	for _, m := range models {
		r := CheckModelEligibility(m, userPlan, enabled[m.ID])
		out = append(out, ModelStatus{
			Model:               m,
			EnabledForWorkspace: enabled[m.ID],
			Eligible:            r.Eligible,
			Reasons:             r.Reasons,
		})
	}
	return out
}
