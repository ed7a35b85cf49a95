package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/ledger"
	"github.com/craftfolio/backend/internal/models"
)

type fakeLedger struct {
	sub          *models.Subscription
	transactions []*models.CreditTransaction

	createErr error
	topUpErr  error
}

var _ ledger.Service = (*fakeLedger)(nil)

func (f *fakeLedger) GetActiveSubscription(context.Context, uuid.UUID) (*models.Subscription, error) {
	return f.sub, nil
}

func (f *fakeLedger) CreateSubscription(_ context.Context, accountID uuid.UUID, planType string) (*models.Subscription, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	plan, ok := models.PlanByType(planType)
	if !ok {
		return nil, ledger.ErrUnknownPlan
	}
	f.sub = &models.Subscription{
		ID:               uuid.New(),
		AccountID:        accountID,
		PlanType:         plan.ID,
		CreditsAllocated: plan.Credits,
		CreditsRemaining: plan.Credits,
		Active:           true,
	}
	return f.sub, nil
}

func (f *fakeLedger) Debit(context.Context, uuid.UUID, int) (*models.Subscription, error) {
	return f.sub, nil
}

func (f *fakeLedger) BestEffortDebit(context.Context, uuid.UUID, int) {}

func (f *fakeLedger) TopUp(_ context.Context, _ uuid.UUID, credits, _ int) (*models.Subscription, error) {
	if f.topUpErr != nil {
		return nil, f.topUpErr
	}
	f.sub.CreditsRemaining += credits
	return f.sub, nil
}

func (f *fakeLedger) ListTransactions(context.Context, uuid.UUID) ([]*models.CreditTransaction, error) {
	return f.transactions, nil
}

func authed(r *http.Request, accountID uuid.UUID) *http.Request {
	p := &auth.Principal{AccountID: accountID, Email: "sam@example.com"}
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func TestListPlans(t *testing.T) {
	h := NewHandler(&fakeLedger{}, nil)
	rec := httptest.NewRecorder()
	h.ListPlans(rec, httptest.NewRequest(http.MethodGet, "/v1/subscriptions/plans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool          `json:"success"`
		Plans   []models.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Plans, 2)
	assert.Equal(t, models.PlanBasic, body.Plans[0].ID)
	assert.Equal(t, 500, body.Plans[0].Credits)
}

func TestSubscribe(t *testing.T) {
	accountID := uuid.New()

	t.Run("valid plan", func(t *testing.T) {
		lgr := &fakeLedger{}
		h := NewHandler(lgr, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{"planType":"premium"}`)), accountID)
		h.Subscribe(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, lgr.sub)
		assert.Equal(t, 2000, lgr.sub.CreditsRemaining)
	})

	t.Run("unknown plan is a 400", func(t *testing.T) {
		h := NewHandler(&fakeLedger{}, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{"planType":"platinum"}`)), accountID)
		h.Subscribe(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate active subscription is a 409", func(t *testing.T) {
		h := NewHandler(&fakeLedger{createErr: ledger.ErrDuplicateActiveSubscription}, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{"planType":"basic"}`)), accountID)
		h.Subscribe(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing plan type fails validation", func(t *testing.T) {
		h := NewHandler(&fakeLedger{}, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{}`)), accountID)
		h.Subscribe(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTopUp(t *testing.T) {
	accountID := uuid.New()

	t.Run("credits the active subscription", func(t *testing.T) {
		lgr := &fakeLedger{sub: &models.Subscription{AccountID: accountID, Active: true, CreditsRemaining: 10}}
		h := NewHandler(lgr, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions/topup", strings.NewReader(`{"credits":100,"amount":499}`)), accountID)
		h.TopUp(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Success    bool `json:"success"`
			Credits    int  `json:"credits"`
			NewBalance int  `json:"newBalance"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 100, body.Credits)
		assert.Equal(t, 110, body.NewBalance)
	})

	t.Run("no active subscription is a 403", func(t *testing.T) {
		h := NewHandler(&fakeLedger{topUpErr: ledger.ErrNoActiveSubscription}, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions/topup", strings.NewReader(`{"credits":100,"amount":499}`)), accountID)
		h.TopUp(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects non-positive credits", func(t *testing.T) {
		h := NewHandler(&fakeLedger{}, nil)
		rec := httptest.NewRecorder()
		req := authed(httptest.NewRequest(http.MethodPost, "/v1/subscriptions/topup", strings.NewReader(`{"credits":-5,"amount":499}`)), accountID)
		h.TopUp(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCredits(t *testing.T) {
	accountID := uuid.New()

	t.Run("funded subscription", func(t *testing.T) {
		end := time.Now().Add(10 * 24 * time.Hour)
		lgr := &fakeLedger{sub: &models.Subscription{
			AccountID:        accountID,
			PlanType:         models.PlanBasic,
			CreditsAllocated: 500,
			CreditsRemaining: 495,
			Active:           true,
			EndDate:          &end,
		}}
		h := NewHandler(lgr, nil)
		rec := httptest.NewRecorder()
		h.Credits(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/subscriptions/credits", nil), accountID))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["hasActiveSubscription"])
		assert.Equal(t, true, body["canEdit"])
		assert.Equal(t, float64(495), body["creditsRemaining"])
		assert.Equal(t, float64(10), body["daysUntilExpiry"])
	})

	t.Run("no subscription", func(t *testing.T) {
		h := NewHandler(&fakeLedger{}, nil)
		rec := httptest.NewRecorder()
		h.Credits(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/subscriptions/credits", nil), accountID))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["hasActiveSubscription"])
		assert.Equal(t, false, body["canEdit"])
	})
}

func TestHistory(t *testing.T) {
	accountID := uuid.New()

	t.Run("empty history is an empty array", func(t *testing.T) {
		h := NewHandler(&fakeLedger{}, nil)
		rec := httptest.NewRecorder()
		h.History(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/subscriptions/credits/history", nil), accountID))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"transactions":[]`)
	})

	t.Run("returns purchases", func(t *testing.T) {
		lgr := &fakeLedger{transactions: []*models.CreditTransaction{
			{ID: uuid.New(), AccountID: accountID, CreditsGranted: 100, AmountCents: 499},
		}}
		h := NewHandler(lgr, nil)
		rec := httptest.NewRecorder()
		h.History(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/subscriptions/credits/history", nil), accountID))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Transactions []*models.CreditTransaction `json:"transactions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Transactions, 1)
		assert.Equal(t, 100, body.Transactions[0].CreditsGranted)
	})
}
