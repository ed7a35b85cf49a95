package models

import "time"

// Plan is a named bundle of price, credit grant, and duration selectable
// at subscription time. The catalog is fixed in code.
type Plan struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	PriceCents int           `json:"price"`
	Credits    int           `json:"credits"`
	Duration   time.Duration `json:"-"`
	Features   []string      `json:"features"`
}

var plans = []Plan{
	{
		ID:         PlanBasic,
		Name:       "Basic",
		PriceCents: 999,
		Credits:    500,
		Duration:   30 * 24 * time.Hour,
		Features: []string{
			"500 edit credits",
			"Profile, education and skills sections",
			"30 day access",
		},
	},
	{
		ID:         PlanPremium,
		Name:       "Premium",
		PriceCents: 2999,
		Credits:    2000,
		Duration:   30 * 24 * time.Hour,
		Features: []string{
			"2000 edit credits",
			"All profile sections",
			"Priority support",
			"30 day access",
		},
	},
}

// AllPlans returns the plan catalog.
func AllPlans() []Plan {
	return plans
}

// PlanByType looks up a plan by its id (basic, premium).
func PlanByType(planType string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == planType {
			return p, true
		}
	}
	return Plan{}, false
}
