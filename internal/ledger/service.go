// Package ledger owns authoritative credit balances. It is the only
// component permitted to mutate subscription credit fields.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/craftfolio/backend/internal/models"
)

var (
	// ErrUnknownPlan is returned when subscribing to a plan type not in the catalog.
	ErrUnknownPlan = errors.New("unknown plan type")
	// ErrDuplicateActiveSubscription is returned when the account already has an active subscription.
	ErrDuplicateActiveSubscription = errors.New("account already has an active subscription")
	// ErrNoActiveSubscription is returned by balance operations when the account has no active subscription.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrInsufficientCredits is returned when a debit would take the balance below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Store is the persistence surface the ledger service needs.
type Store interface {
	GetActiveByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	Insert(ctx context.Context, s *models.Subscription) error
	DebitActive(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error)
	CreditActive(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error)
	InsertTransaction(ctx context.Context, t *models.CreditTransaction) error
	ListTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error)
}

type Service interface {
	GetActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, accountID uuid.UUID, planType string) (*models.Subscription, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error)
	BestEffortDebit(ctx context.Context, accountID uuid.UUID, amount int)
	TopUp(ctx context.Context, accountID uuid.UUID, credits, amountCents int) (*models.Subscription, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error)
}

type service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, log: log}
}

var _ Service = (*service)(nil)

func (s *service) GetActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return s.store.GetActiveByAccountID(ctx, accountID)
}

// CreateSubscription opens a subscription on the plan's credit grant.
// A second active subscription for the same account is rejected: the
// partial unique index on subscriptions surfaces the race as a unique
// violation even when two subscribe calls interleave.
func (s *service) CreateSubscription(ctx context.Context, accountID uuid.UUID, planType string) (*models.Subscription, error) {
	plan, ok := models.PlanByType(planType)
	if !ok {
		return nil, ErrUnknownPlan
	}
	now := time.Now()
	end := now.Add(plan.Duration)
	sub := &models.Subscription{
		ID:               uuid.New(),
		AccountID:        accountID,
		PlanType:         plan.ID,
		CreditsAllocated: plan.Credits,
		CreditsRemaining: plan.Credits,
		Active:           true,
		StartDate:        now,
		EndDate:          &end,
	}
	if err := s.store.Insert(ctx, sub); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateActiveSubscription
		}
		return nil, err
	}
	return sub, nil
}

// Debit atomically decrements the active balance. It never double-spends
// under concurrency and never drives the balance negative.
func (s *service) Debit(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	sub, err := s.store.DebitActive(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return sub, nil
	}
	// The conditional update matched nothing: distinguish an absent
	// subscription from a short balance for the caller's error message.
	existing, err := s.store.GetActiveByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNoActiveSubscription
	}
	return nil, ErrInsufficientCredits
}

// BestEffortDebit is the fail-open debit used after a committed domain
// write. Failures are logged, never propagated: a free edit is accepted
// rather than failing the response for a mutation that already happened.
func (s *service) BestEffortDebit(ctx context.Context, accountID uuid.UUID, amount int) {
	if _, err := s.Debit(ctx, accountID, amount); err != nil {
		s.log.Warn("best-effort debit failed",
			"account_id", accountID,
			"amount", amount,
			"error", err,
		)
	}
}

// TopUp adds purchased credits to the active subscription and appends a
// purchase record. The two writes are not one transaction; losing the
// audit row after a successful credit is an accepted durability gap.
func (s *service) TopUp(ctx context.Context, accountID uuid.UUID, credits, amountCents int) (*models.Subscription, error) {
	sub, err := s.store.CreditActive(ctx, accountID, credits)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}
	record := &models.CreditTransaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		CreditsGranted: credits,
		AmountCents:    amountCents,
	}
	if err := s.store.InsertTransaction(ctx, record); err != nil {
		s.log.Error("failed to record credit purchase",
			"account_id", accountID,
			"credits", credits,
			"error", err,
		)
	}
	return sub, nil
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	return s.store.ListTransactionsByAccountID(ctx, accountID)
}
