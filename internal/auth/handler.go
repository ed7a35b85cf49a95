package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"

	"github.com/craftfolio/backend/internal/models"
	"github.com/craftfolio/backend/internal/response"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	Success bool            `json:"success"`
	User    *models.Account `json:"user"`
	Token   string          `json:"token,omitempty"`
}

type Handler struct {
	svc           Service
	store         SessionStore
	issuer        *TokenIssuer
	strategy      Strategy
	sessionTTL    time.Duration
	tokenTTL      time.Duration
	secureCookies bool
	log           *slog.Logger
	validate      *validator.Validate
}

func NewHandler(svc Service, store SessionStore, issuer *TokenIssuer, strategy Strategy, sessionTTL, tokenTTL time.Duration, secureCookies bool, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc:           svc,
		store:         store,
		issuer:        issuer,
		strategy:      strategy,
		sessionTTL:    sessionTTL,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
		log:           log,
		validate:      validator.New(),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return
	}
	name := req.Username
	if name == "" {
		name = req.Email
	}
	acc, err := h.svc.Register(r.Context(), req.Email, name, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			response.Err(w, http.StatusBadRequest, "email already registered")
			return
		}
		h.log.Error("register failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.establish(w, r, acc, http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		response.Err(w, http.StatusBadRequest, "email or username is required")
		return
	}
	acc, err := h.svc.Login(r.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Err(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.establish(w, r, acc, http.StatusOK)
}

// establish issues the authentication artifacts the active strategy
// calls for: a server-side session unless token-only, a signed token
// unless session-only. Hybrid gets both.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request, acc *models.Account, status int) {
	p := Principal{AccountID: acc.ID, Email: acc.Email}
	resp := userResponse{Success: true, User: acc}

	if h.strategy != StrategyToken {
		handle, err := h.store.Create(r.Context(), p)
		if err != nil {
			h.log.Error("session create failed", "error", err)
			response.Err(w, http.StatusInternalServerError, "internal error")
			return
		}
		http.SetCookie(w, h.cookie(SessionCookie, handle, h.sessionTTL))
	}
	if h.strategy != StrategySession {
		token, err := h.issuer.Issue(p)
		if err != nil {
			h.log.Error("token issue failed", "error", err)
			response.Err(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Token = token
		http.SetCookie(w, h.cookie(TokenCookie, token, h.tokenTTL))
	}
	response.JSON(w, status, resp)
}

// Logout clears session and token artifacts. Idempotent: succeeds
// whether or not anything was there to clear.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if err := h.store.Delete(r.Context(), c.Value); err != nil {
			h.log.Warn("session delete failed", "error", err)
		}
	}
	http.SetCookie(w, h.expiredCookie(SessionCookie))
	http.SetCookie(w, h.expiredCookie(TokenCookie))
	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CurrentUser returns the account behind the authenticated principal.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	acc, err := h.svc.GetAccount(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("get account failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	if acc == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
		return
	}
	response.JSON(w, http.StatusOK, userResponse{Success: true, User: acc})
}

func (h *Handler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.secureCookies {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: sameSite,
	}
}

func (h *Handler) expiredCookie(name string) *http.Cookie {
	c := h.cookie(name, "", 0)
	c.MaxAge = -1
	return c
}
