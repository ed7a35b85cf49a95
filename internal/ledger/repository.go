package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftfolio/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subscriptionColumns = `id, account_id, plan_type, credits_allocated, credits_remaining, active, start_date, end_date, created_at`

// GetActiveByAccountID returns the active subscription for the account,
// or nil when there is none. Should multiple active rows exist, the most
// recently created wins (defined tie-break).
func (r *Repository) GetActiveByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE account_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) Insert(ctx context.Context, s *models.Subscription) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (id, account_id, plan_type, credits_allocated, credits_remaining, active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, s.ID, s.AccountID, s.PlanType, s.CreditsAllocated, s.CreditsRemaining, s.Active, s.StartDate, s.EndDate).Scan(&s.CreatedAt)
}

// DebitActive atomically decrements credits_remaining on the account's
// active subscription, but only when the balance covers the amount.
// Returns nil when the conditional update matched no row: either there
// is no active subscription or the balance is short. The single
// conditional UPDATE is what serializes concurrent debits per account.
func (r *Repository) DebitActive(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subscriptions
		SET credits_remaining = credits_remaining - $2
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE account_id = $1 AND active
			ORDER BY created_at DESC
			LIMIT 1
		) AND credits_remaining >= $2
		RETURNING `+subscriptionColumns+`
	`, accountID, amount)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreditActive adds amount to the active subscription unconditionally.
// There is no cap against credits_allocated: a top-up may push the
// balance above the original grant.
func (r *Repository) CreditActive(ctx context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subscriptions
		SET credits_remaining = credits_remaining + $2
		WHERE id = (
			SELECT id FROM subscriptions
			WHERE account_id = $1 AND active
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING `+subscriptionColumns+`
	`, accountID, amount)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t *models.CreditTransaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, account_id, credits_granted, amount_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, t.ID, t.AccountID, t.CreditsGranted, t.AmountCents).Scan(&t.CreatedAt)
}

func (r *Repository) ListTransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, credits_granted, amount_cents, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.CreditsGranted, &t.AmountCents, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// DeactivateExpired flips active off for subscriptions whose end date has
// passed. Run by the periodic sweep job.
func (r *Repository) DeactivateExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET active = FALSE
		WHERE active AND end_date IS NOT NULL AND end_date < now()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.PlanType, &s.CreditsAllocated, &s.CreditsRemaining, &s.Active, &s.StartDate, &s.EndDate, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
