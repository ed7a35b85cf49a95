// Package subscription exposes the plan catalog, subscribe, top-up, and
// credit status endpoints.
package subscription

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/gate"
	"github.com/craftfolio/backend/internal/ledger"
	"github.com/craftfolio/backend/internal/models"
	"github.com/craftfolio/backend/internal/response"
)

type SubscribeRequest struct {
	PlanType string `json:"planType" validate:"required"`
}

type TopUpRequest struct {
	Credits int `json:"credits" validate:"required,gt=0"`
	Amount  int `json:"amount" validate:"required,gt=0"`
}

type Handler struct {
	ledger   ledger.Service
	log      *slog.Logger
	validate *validator.Validate
}

func NewHandler(ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: ledgerSvc, log: log, validate: validator.New()}
}

func (h *Handler) ListPlans(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, struct {
		Success bool          `json:"success"`
		Plans   []models.Plan `json:"plans"`
	}{Success: true, Plans: models.AllPlans()})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return
	}
	sub, err := h.ledger.CreateSubscription(r.Context(), p.AccountID, req.PlanType)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownPlan):
			response.Err(w, http.StatusBadRequest, "unknown plan type")
		case errors.Is(err, ledger.ErrDuplicateActiveSubscription):
			response.Err(w, http.StatusConflict, "account already has an active subscription")
		default:
			h.log.Error("subscribe failed", "error", err)
			response.Err(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	response.JSON(w, http.StatusOK, struct {
		Success      bool                 `json:"success"`
		Subscription *models.Subscription `json:"subscription"`
	}{Success: true, Subscription: sub})
}

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return
	}
	sub, err := h.ledger.TopUp(r.Context(), p.AccountID, req.Credits, req.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrNoActiveSubscription) {
			response.Err(w, http.StatusForbidden, "active subscription required")
			return
		}
		h.log.Error("top-up failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.JSON(w, http.StatusOK, struct {
		Success    bool `json:"success"`
		Credits    int  `json:"credits"`
		NewBalance int  `json:"newBalance"`
	}{Success: true, Credits: req.Credits, NewBalance: sub.CreditsRemaining})
}

func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sub, err := h.ledger.GetActiveSubscription(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("get subscription failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	st := gate.DeriveStatus(sub, time.Now())
	response.JSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		gate.Status
	}{Success: true, Status: st})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	list, err := h.ledger.ListTransactions(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []*models.CreditTransaction{}
	}
	response.JSON(w, http.StatusOK, struct {
		Success      bool                        `json:"success"`
		Transactions []*models.CreditTransaction `json:"transactions"`
	}{Success: true, Transactions: list})
}
