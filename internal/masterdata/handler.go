package masterdata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/assettrack/internal/platform/httpx"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermLookupsView))
		r.Get("/locations", listHandler(h, "list locations", h.service.ListLocations))
		r.Get("/categories", listHandler(h, "list categories", h.service.ListCategories))
		r.Get("/suppliers", listHandler(h, "list suppliers", h.service.ListSuppliers))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermLookupsManage))
		r.Post("/locations", createHandler(h, "create location", h.service.CreateLocation))
		r.Post("/categories", createHandler(h, "create category", h.service.CreateCategory))
		r.Post("/suppliers", createHandler(h, "create supplier", h.service.CreateSupplier))
	})
}

type listResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
}

func listHandler[T any](h *Handler, op string, list func(context.Context, ListFilters) ([]T, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filters := ListFilters{Search: q.Get("search"), PageRequest: shared.PageFromQuery(q)}
		items, total, err := list(r.Context(), filters)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		resp := listResponse[T]{Items: items}
		if filters.PerPage > 0 {
			p := shared.NewPagination(filters.Page, filters.PerPage, total)
			resp.Pagination = &p
		}
		httpx.JSON(w, http.StatusOK, resp)
	}
}

func createHandler[T any](h *Handler, op string, create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, out)
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError && h.logger != nil {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
