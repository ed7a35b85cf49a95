// Package gate decides whether a credit-costing action may proceed.
// It is pure policy: no I/O, no side effects.
package gate

import (
	"time"

	"github.com/craftfolio/backend/internal/models"
)

// EditCost is the fixed credit cost of every gated mutation.
const EditCost = 5

// Denial reasons, surfaced to clients so insufficient credits can prompt
// a top-up while other denials stay generic.
const (
	ReasonNoSubscription      = "no_subscription"
	ReasonExpired             = "expired"
	ReasonInsufficientCredits = "insufficient_credits"
)

type Decision struct {
	Allowed bool
	Reason  string
}

var allowed = Decision{Allowed: true}

// Evaluate applies the gating rules in order: existence, liveness,
// balance. sub may be nil (no active subscription).
func Evaluate(sub *models.Subscription, now time.Time) Decision {
	if sub == nil {
		return Decision{Reason: ReasonNoSubscription}
	}
	if !sub.Active || sub.Expired(now) {
		return Decision{Reason: ReasonExpired}
	}
	if sub.CreditsRemaining < EditCost {
		return Decision{Reason: ReasonInsufficientCredits}
	}
	return allowed
}

// Status is the derived subscription view surfaced to clients. It
// decouples gate policy from presentation: CanEdit mirrors Evaluate.
type Status struct {
	HasActiveSubscription bool   `json:"hasActiveSubscription"`
	PlanType              string `json:"planType,omitempty"`
	CreditsAllocated      int    `json:"creditsAllocated"`
	CreditsRemaining      int    `json:"creditsRemaining"`
	IsExpired             bool   `json:"isExpired"`
	DaysUntilExpiry       *int   `json:"daysUntilExpiry,omitempty"`
	CanEdit               bool   `json:"canEdit"`
}

// DeriveStatus computes the client-facing view of a subscription.
// DaysUntilExpiry is the ceiling of remaining whole days, nil when the
// subscription has no end date.
func DeriveStatus(sub *models.Subscription, now time.Time) Status {
	if sub == nil {
		return Status{}
	}
	st := Status{
		HasActiveSubscription: sub.Active,
		PlanType:              sub.PlanType,
		CreditsAllocated:      sub.CreditsAllocated,
		CreditsRemaining:      sub.CreditsRemaining,
		IsExpired:             sub.Expired(now),
		CanEdit:               Evaluate(sub, now).Allowed,
	}
	if sub.EndDate != nil {
		days := int((sub.EndDate.Sub(now) + 24*time.Hour - 1) / (24 * time.Hour))
		if days < 0 {
			days = 0
		}
		st.DaysUntilExpiry = &days
	}
	return st
}
