package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction is an append-only purchase record written on top-up.
// It is an audit trail only: balances live on Subscription and are never
// recomputed from these rows.
type CreditTransaction struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	CreditsGranted int       `json:"credits_granted"`
	AmountCents    int       `json:"amount_cents"`
	CreatedAt      time.Time `json:"created_at"`
}
