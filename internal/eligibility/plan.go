package eligibility

import (
	"strings"

	"github.com/daap14/tenantauth/internal/apperr"
)

// Plan is a subscription tier. Plans are totally ordered free < pro < paygo.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanPayGo Plan = "paygo"
)

var ErrUnknownPlan = apperr.New(apperr.KindValidation, "UNKNOWN_PLAN", "plan must be one of free, pro, paygo")

var planRank = map[Plan]int{
	PlanFree:  0,
	PlanPro:   1,
	PlanPayGo: 2,
}

var plansByRank = []Plan{PlanFree, PlanPro, PlanPayGo}

// Rank returns the position of p in the plan order, or -1 if p is unknown.
func (p Plan) Rank() int {
	r, ok := planRank[p]
	if !ok {
		return -1
	}
	return r
}

func (p Plan) Valid() bool {
	return p.Rank() >= 0
}

// ParsePlan normalizes s and rejects unknown plans.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrUnknownPlan
	}
	return p, nil
}

// IsPlanEligible reports whether userPlan covers required. Unknown plans are
// never eligible and never satisfy anything.
func IsPlanEligible(userPlan, required Plan) bool {
	if !userPlan.Valid() || !required.Valid() {
		return false
	}
	return userPlan.Rank() >= required.Rank()
}

// SuggestPlanUpgrade returns the cheapest plan that satisfies required, or
// nil when current already does.
func SuggestPlanUpgrade(current, required Plan) *Plan {
	if !required.Valid() || IsPlanEligible(current, required) {
		return nil
	}
	for _, p := range plansByRank {
		if p.Rank() > current.Rank() && p.Rank() >= required.Rank() {
			return &p
		}
	}
	return nil
}
