package requests

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/assettrack/internal/platform/httpx"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Handler exposes the request lifecycle over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermRequestsViewOwn, rbac.PermRequestsViewAll))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAny(rbac.PermRequestsSubmit)).Post("/", h.submit)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermRequestsDecide))
		r.Patch("/{id}", h.decide)
		r.Put("/{id}", h.decide)
	})
}

type submitForm struct {
	AssetID uuid.UUID `json:"assetId" validate:"required"`
}

// decisionForm accepts {"decision":"approve"} or {"status":"Approved"}.
type decisionForm struct {
	Decision string `json:"decision"`
	Status   string `json:"status"`
}

type listResponse struct {
	Items []ListItem `json:"items"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	items, err := h.service.List(r.Context(), p.UserID, p.Role)
	if err != nil {
		h.fail(w, "list requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	req, err := h.service.Get(r.Context(), id, p.UserID, p.Role)
	if err != nil {
		h.fail(w, "get request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var form submitForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	req, err := h.service.Submit(r.Context(), p.UserID, form.AssetID)
	if err != nil {
		h.fail(w, "submit request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form decisionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw := form.Decision
	if raw == "" {
		raw = form.Status
	}
	decision, err := ParseDecision(raw)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	req, err := h.service.Decide(r.Context(), id, decision, p.UserID, p.Role)
	if err != nil {
		h.fail(w, "decide request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid request id", shared.ErrValidation)
	}
	return id, nil
}
