package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
	"github.com/hfpolymers/rubber-ops/internal/validation"
)

// Handler exposes staff management HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts public and authenticated staff routes. authn is the
// bearer-token middleware.
func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Post("/api/users/register", h.register)
	r.Post("/api/staff/invite/accept", h.acceptInvite)

	r.Group(func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(identity.RoleAdmin, identity.RoleManager))
		r.Post("/api/staff/invite", h.invite)
		r.Route("/api/user-management/staff", func(r chi.Router) {
			r.Get("/", h.listStaff)             // GET /api/user-management/staff?role=&status=
			r.Get("/{id}", h.getStaff)          // GET /api/user-management/staff/{id}
			r.Put("/{id}/approve", h.approve)   // PUT /api/user-management/staff/{id}/approve
			r.Put("/{id}/activate", h.activate) // PUT /api/user-management/staff/{id}/activate
			r.Put("/{id}/suspend", h.suspend)   // PUT /api/user-management/staff/{id}/suspend
		})
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := h.service.Invite(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (h *Handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := h.service.AcceptInvite(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Status: Status(strings.ToUpper(r.URL.Query().Get("status")))}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, ok := identity.ParseRole(raw)
		if !ok {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
			return
		}
		filter.Role = role
	}
	users, err := h.service.ListStaff(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	if users == nil {
		users = []*User{}
	}
	respond(w, http.StatusOK, users)
}

func (h *Handler) getStaff(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Approve)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Activate)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Suspend)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*User, error)) {
	u, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrAdminOnly):
		code = http.StatusForbidden
	case errors.Is(err, ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrInviteInvalid), errors.Is(err, validation.ErrStaffIDExhausted):
		code = http.StatusUnprocessableEntity
	case strings.Contains(msg, "required") || strings.Contains(msg, "invalid") || strings.Contains(msg, "must"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
