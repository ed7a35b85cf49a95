package ledger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/backend/internal/models"
)

// memStore mimics the repository's semantics in memory: the conditional
// decrement holds a lock across check and write, like the single SQL
// UPDATE does.
type memStore struct {
	mu           sync.Mutex
	subs         map[uuid.UUID][]*models.Subscription
	transactions []*models.CreditTransaction
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[uuid.UUID][]*models.Subscription)}
}

func (m *memStore) activeLocked(accountID uuid.UUID) *models.Subscription {
	var latest *models.Subscription
	for _, s := range m.subs[accountID] {
		if !s.Active {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	return latest
}

func (m *memStore) GetActiveByAccountID(_ context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.activeLocked(accountID)
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) Insert(_ context.Context, s *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Active && m.activeLocked(s.AccountID) != nil {
		return &pgconn.PgError{Code: "23505", ConstraintName: "subscriptions_one_active_per_account"}
	}
	s.CreatedAt = time.Now()
	m.subs[s.AccountID] = append(m.subs[s.AccountID], s)
	return nil
}

func (m *memStore) DebitActive(_ context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.activeLocked(accountID)
	if s == nil || s.CreditsRemaining < amount {
		return nil, nil
	}
	s.CreditsRemaining -= amount
	cp := *s
	return &cp, nil
}

func (m *memStore) CreditActive(_ context.Context, accountID uuid.UUID, amount int) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.activeLocked(accountID)
	if s == nil {
		return nil, nil
	}
	s.CreditsRemaining += amount
	cp := *s
	return &cp, nil
}

func (m *memStore) InsertTransaction(_ context.Context, t *models.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.CreatedAt = time.Now()
	m.transactions = append(m.transactions, t)
	return nil
}

func (m *memStore) ListTransactionsByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.CreditTransaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			list = append(list, t)
		}
	}
	return list, nil
}

func newTestService(t *testing.T) (Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, slog.Default()), store
}

func TestCreateSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := uuid.New()

	sub, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)
	assert.Equal(t, 500, sub.CreditsAllocated)
	assert.Equal(t, 500, sub.CreditsRemaining)
	assert.True(t, sub.Active)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *sub.EndDate, time.Minute)
}

func TestCreateSubscription_UnknownPlan(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateSubscription(context.Background(), uuid.New(), "platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCreateSubscription_DuplicateActive(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := uuid.New()

	_, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)

	_, err = svc.CreateSubscription(context.Background(), accountID, models.PlanPremium)
	assert.ErrorIs(t, err, ErrDuplicateActiveSubscription)
}

func TestDebit_Sequential(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := uuid.New()
	_, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)

	// 100 debits of 5 from 500 land exactly at zero.
	for i := 1; i <= 100; i++ {
		sub, err := svc.Debit(context.Background(), accountID, 5)
		require.NoError(t, err)
		assert.Equal(t, 500-i*5, sub.CreditsRemaining)
	}

	// The next debit is denied and changes nothing.
	_, err = svc.Debit(context.Background(), accountID, 5)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	sub, err := svc.GetActiveSubscription(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.CreditsRemaining)
}

func TestDebit_NoSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Debit(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestDebit_Concurrent(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := uuid.New()
	_, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)

	// Drain the balance to exactly one edit's worth.
	_, err = svc.Debit(context.Background(), accountID, 495)
	require.NoError(t, err)

	const k = 32
	results := make(chan error, k)
	var start sync.WaitGroup
	start.Add(1)
	for range k {
		go func() {
			start.Wait()
			_, err := svc.Debit(context.Background(), accountID, 5)
			results <- err
		}()
	}
	start.Done()

	var allowed, denied int
	for range k {
		switch err := <-results; {
		case err == nil:
			allowed++
		default:
			require.ErrorIs(t, err, ErrInsufficientCredits)
			denied++
		}
	}
	assert.Equal(t, 1, allowed, "exactly one concurrent debit may pass")
	assert.Equal(t, k-1, denied)

	sub, err := svc.GetActiveSubscription(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.CreditsRemaining, "balance must never go negative")
}

func TestBestEffortDebit_SwallowsDenial(t *testing.T) {
	svc, store := newTestService(t)
	accountID := uuid.New()
	_, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)
	_, err = svc.Debit(context.Background(), accountID, 497)
	require.NoError(t, err)

	// Balance 3 < 5: the debit is denied, logged, and not propagated.
	svc.BestEffortDebit(context.Background(), accountID, 5)

	sub, err := store.GetActiveByAccountID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.CreditsRemaining)
}

func TestTopUp(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := uuid.New()
	_, err := svc.CreateSubscription(context.Background(), accountID, models.PlanBasic)
	require.NoError(t, err)
	_, err = svc.Debit(context.Background(), accountID, 490)
	require.NoError(t, err)

	sub, err := svc.TopUp(context.Background(), accountID, 100, 499)
	require.NoError(t, err)
	assert.Equal(t, 110, sub.CreditsRemaining)

	records, err := svc.ListTransactions(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, records[0].CreditsGranted)
	assert.Equal(t, 499, records[0].AmountCents)

	// Top-up past the original allocation is not capped.
	sub, err = svc.TopUp(context.Background(), accountID, 1000, 4999)
	require.NoError(t, err)
	assert.Greater(t, sub.CreditsRemaining, sub.CreditsAllocated)
}

func TestTopUp_NoSubscription(t *testing.T) {
	svc, store := newTestService(t)
	_, err := svc.TopUp(context.Background(), uuid.New(), 100, 499)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	assert.Empty(t, store.transactions, "denied top-up must not record a purchase")
}
