package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan type enums for subscriptions.plan_type.
const (
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// Subscription is the authoritative credit balance for an account.
// At most one row per account has Active = true (enforced by a partial
// unique index on subscriptions). EndDate == nil means no fixed expiry.
type Subscription struct {
	ID               uuid.UUID  `json:"id"`
	AccountID        uuid.UUID  `json:"account_id"`
	PlanType         string     `json:"plan_type"`
	CreditsAllocated int        `json:"credits_allocated"`
	CreditsRemaining int        `json:"credits_remaining"`
	Active           bool       `json:"active"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Expired reports whether the subscription's end date has passed.
// Subscriptions without an end date never expire.
func (s *Subscription) Expired(now time.Time) bool {
	return s.EndDate != nil && now.After(*s.EndDate)
}
