package leave

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
)

// Handler exposes leave request HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	staff := middleware.RequireRole(identity.RoleFieldStaff, identity.RoleLab, identity.RoleDelivery,
		identity.RoleAccountant, identity.RoleManager, identity.RoleStaff)
	reviewers := middleware.RequireRole(identity.RoleManager, identity.RoleAdmin)

	r.Route("/api/leave-requests", func(r chi.Router) {
		r.Use(authn)
		r.With(staff).Post("/", h.create)                 // POST /api/leave-requests
		r.With(staff).Get("/my", h.mine)                  // GET  /api/leave-requests/my
		r.With(reviewers).Get("/", h.list)                // GET  /api/leave-requests?status=
		r.With(reviewers).Get("/{id}", h.get)             // GET  /api/leave-requests/{id}
		r.With(reviewers).Put("/{id}/approve", h.approve) // PUT  /api/leave-requests/{id}/approve
		r.With(reviewers).Put("/{id}/reject", h.reject)   // PUT  /api/leave-requests/{id}/reject
	})
}

func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	lr, err := h.service.Create(r.Context(), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, lr)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Mine(r.Context(), caller(r))
	respondList(w, items, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	respondList(w, items, err)
}

func respondList(w http.ResponseWriter, items []*Request, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Request{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	lr, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, lr)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.reviewWith(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.reviewWith(w, r, h.service.Reject)
}

type reviewFunc func(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*Request, error)

func (h *Handler) reviewWith(w http.ResponseWriter, r *http.Request, fn reviewFunc) {
	var review ReviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	lr, err := fn(r.Context(), chi.URLParam(r, "id"), review, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, lr)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrOverlap):
		code = http.StatusConflict
	case errors.Is(err, ErrSelfReview):
		code = http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case strings.Contains(msg, "required") || strings.Contains(msg, "invalid") || strings.Contains(msg, "cannot"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
