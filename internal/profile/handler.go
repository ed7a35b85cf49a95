// Package profile implements the credit-costing profile section
// endpoints. Every create/update is hard-blocked behind the access gate
// and, once the domain write has committed, debited best-effort.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/gate"
	"github.com/craftfolio/backend/internal/ledger"
	"github.com/craftfolio/backend/internal/models"
	"github.com/craftfolio/backend/internal/response"
)

const dateLayout = "2006-01-02"

// Store is the persistence surface the handlers need.
type Store interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error

	ListEducation(ctx context.Context, accountID uuid.UUID) ([]*models.EducationEntry, error)
	CreateEducation(ctx context.Context, e *models.EducationEntry) error
	UpdateEducation(ctx context.Context, e *models.EducationEntry) error
	DeleteEducation(ctx context.Context, accountID, id uuid.UUID) error

	ListProjects(ctx context.Context, accountID uuid.UUID) ([]*models.ProjectEntry, error)
	CreateProject(ctx context.Context, p *models.ProjectEntry) error
	UpdateProject(ctx context.Context, p *models.ProjectEntry) error
	DeleteProject(ctx context.Context, accountID, id uuid.UUID) error

	ListSkills(ctx context.Context, accountID uuid.UUID) ([]*models.SkillEntry, error)
	CreateSkill(ctx context.Context, s *models.SkillEntry) error
	UpdateSkill(ctx context.Context, s *models.SkillEntry) error
	DeleteSkill(ctx context.Context, accountID, id uuid.UUID) error

	ListExperience(ctx context.Context, accountID uuid.UUID) ([]*models.ExperienceEntry, error)
	CreateExperience(ctx context.Context, e *models.ExperienceEntry) error
	UpdateExperience(ctx context.Context, e *models.ExperienceEntry) error
	DeleteExperience(ctx context.Context, accountID, id uuid.UUID) error
}

var _ Store = (*Repository)(nil)

type Handler struct {
	store    Store
	ledger   ledger.Service
	log      *slog.Logger
	validate *validator.Validate
}

func NewHandler(store Store, ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, ledger: ledgerSvc, log: log, validate: validator.New()}
}

// allowEdit applies the gate before any credit-costing write. On denial
// it writes the 403 and returns false; nothing has been mutated.
func (h *Handler) allowEdit(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) bool {
	sub, err := h.ledger.GetActiveSubscription(r.Context(), accountID)
	if err != nil {
		h.log.Error("get subscription failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if d := gate.Evaluate(sub, time.Now()); !d.Allowed {
		response.Err(w, http.StatusForbidden, denialMessage(d.Reason))
		return false
	}
	return true
}

func denialMessage(reason string) string {
	switch reason {
	case gate.ReasonInsufficientCredits:
		return "Insufficient credits"
	case gate.ReasonExpired:
		return "Subscription expired"
	default:
		return "Active subscription required"
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) *auth.Principal {
	p := auth.PrincipalFromCtx(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "authentication required")
	}
	return p
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// An unparseable id can never name an owned resource.
		response.Err(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, accountID uuid.UUID, key string, v any, err error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Err(w, http.StatusNotFound, "not found")
			return
		}
		h.log.Error("profile write failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	// The domain write committed; charge for it. Fail-open by design.
	h.ledger.BestEffortDebit(r.Context(), accountID, gate.EditCost)
	response.JSON(w, http.StatusOK, map[string]any{"success": true, key: v})
}

// --- profile document ---

type ProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Location string `json:"location"`
	Website  string `json:"website" validate:"omitempty,url"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	prof, err := h.store.GetProfile(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("get profile failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	if prof == nil {
		response.Err(w, http.StatusNotFound, "not found")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"success": true, "profile": prof})
}

func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	prof := &models.Profile{
		ID:        uuid.New(),
		AccountID: p.AccountID,
		FullName:  req.FullName,
		Headline:  req.Headline,
		Summary:   req.Summary,
		Location:  req.Location,
		Website:   req.Website,
	}
	h.writeResult(w, r, p.AccountID, "profile", prof, h.store.UpsertProfile(r.Context(), prof))
}

// --- education ---

type EducationRequest struct {
	School    string `json:"school" validate:"required"`
	Degree    string `json:"degree"`
	Field     string `json:"field"`
	StartYear int    `json:"start_year" validate:"required,gt=0"`
	EndYear   *int   `json:"end_year"`
}

func (h *Handler) ListEducation(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	list, err := h.store.ListEducation(r.Context(), p.AccountID)
	h.writeList(w, "education", listAny(list), err)
}

func (h *Handler) CreateEducation(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	req, ok := decodeValid[EducationRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.EducationEntry{
		ID:        uuid.New(),
		AccountID: p.AccountID,
		School:    req.School,
		Degree:    req.Degree,
		Field:     req.Field,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
	}
	h.writeResult(w, r, p.AccountID, "education", e, h.store.CreateEducation(r.Context(), e))
}

func (h *Handler) UpdateEducation(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeValid[EducationRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.EducationEntry{
		ID:        id,
		AccountID: p.AccountID,
		School:    req.School,
		Degree:    req.Degree,
		Field:     req.Field,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
	}
	h.writeResult(w, r, p.AccountID, "education", e, h.store.UpdateEducation(r.Context(), e))
}

func (h *Handler) DeleteEducation(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, h.store.DeleteEducation)
}

// --- projects ---

type ProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	URL         string `json:"url" validate:"omitempty,url"`
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	list, err := h.store.ListProjects(r.Context(), p.AccountID)
	h.writeList(w, "projects", listAny(list), err)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	req, ok := decodeValid[ProjectRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.ProjectEntry{
		ID:          uuid.New(),
		AccountID:   p.AccountID,
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
	}
	h.writeResult(w, r, p.AccountID, "project", e, h.store.CreateProject(r.Context(), e))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeValid[ProjectRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.ProjectEntry{
		ID:          id,
		AccountID:   p.AccountID,
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
	}
	h.writeResult(w, r, p.AccountID, "project", e, h.store.UpdateProject(r.Context(), e))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, h.store.DeleteProject)
}

// --- skills ---

type SkillRequest struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
}

func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	list, err := h.store.ListSkills(r.Context(), p.AccountID)
	h.writeList(w, "skills", listAny(list), err)
}

func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	req, ok := decodeValid[SkillRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.SkillEntry{
		ID:        uuid.New(),
		AccountID: p.AccountID,
		Name:      req.Name,
		Level:     req.Level,
	}
	h.writeResult(w, r, p.AccountID, "skill", e, h.store.CreateSkill(r.Context(), e))
}

func (h *Handler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeValid[SkillRequest](h, w, r)
	if !ok {
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.SkillEntry{
		ID:        id,
		AccountID: p.AccountID,
		Name:      req.Name,
		Level:     req.Level,
	}
	h.writeResult(w, r, p.AccountID, "skill", e, h.store.UpdateSkill(r.Context(), e))
}

func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, h.store.DeleteSkill)
}

// --- experience ---

type ExperienceRequest struct {
	Company     string `json:"company" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date"`
}

func (req *ExperienceRequest) dates() (time.Time, *time.Time, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	if req.EndDate == "" {
		return start, nil, nil
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	return start, &end, nil
}

func (h *Handler) ListExperience(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	list, err := h.store.ListExperience(r.Context(), p.AccountID)
	h.writeList(w, "experience", listAny(list), err)
}

func (h *Handler) CreateExperience(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	req, ok := decodeValid[ExperienceRequest](h, w, r)
	if !ok {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		response.Err(w, http.StatusBadRequest, "dates must use YYYY-MM-DD")
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.ExperienceEntry{
		ID:          uuid.New(),
		AccountID:   p.AccountID,
		Company:     req.Company,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
	}
	h.writeResult(w, r, p.AccountID, "experience", e, h.store.CreateExperience(r.Context(), e))
}

func (h *Handler) UpdateExperience(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := decodeValid[ExperienceRequest](h, w, r)
	if !ok {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		response.Err(w, http.StatusBadRequest, "dates must use YYYY-MM-DD")
		return
	}
	if !h.allowEdit(w, r, p.AccountID) {
		return
	}
	e := &models.ExperienceEntry{
		ID:          id,
		AccountID:   p.AccountID,
		Company:     req.Company,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
	}
	h.writeResult(w, r, p.AccountID, "experience", e, h.store.UpdateExperience(r.Context(), e))
}

func (h *Handler) DeleteExperience(w http.ResponseWriter, r *http.Request) {
	h.deleteEntry(w, r, h.store.DeleteExperience)
}

// --- shared plumbing ---

// deleteEntry removes an owned row. Deletes are authenticated and
// ownership-scoped but free: only create/update consume credits.
func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, accountID, id uuid.UUID) error) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := del(r.Context(), p.AccountID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Err(w, http.StatusNotFound, "not found")
			return
		}
		h.log.Error("delete failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) writeList(w http.ResponseWriter, key string, list any, err error) {
	if err != nil {
		h.log.Error("list failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"success": true, key: list})
}

// listAny normalizes a nil slice to an empty JSON array.
func listAny[T any](list []*T) []*T {
	if list == nil {
		return []*T{}
	}
	return list
}

func decodeValid[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationErr(w, err.(validator.ValidationErrors))
		return req, false
	}
	return req, true
}
