package barrel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
)

// Handler exposes barrel inventory HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	admin := middleware.RequireRole(identity.RoleAdmin)
	managers := middleware.RequireRole(identity.RoleManager, identity.RoleAdmin)
	handlers := middleware.RequireRole(identity.RoleFieldStaff, identity.RoleManager, identity.RoleAdmin)

	r.Route("/api/barrels", func(r chi.Router) {
		r.Use(authn)
		r.With(admin).Post("/", h.createBarrel) // POST /api/barrels
		r.With(middleware.RequireRole(identity.RoleAdmin, identity.RoleManager, identity.RoleFieldStaff,
			identity.RoleLab, identity.RoleDelivery, identity.RoleStaff)).Group(func(r chi.Router) {
			r.Get("/", h.listBarrels)   // GET /api/barrels?status=&assigned_to=
			r.Get("/{id}", h.getBarrel) // GET /api/barrels/{id}
		})
		r.With(managers).Put("/{id}/allocate", h.allocate)     // PUT /api/barrels/{id}/allocate
		r.With(managers).Put("/{id}/unallocate", h.unallocate) // PUT /api/barrels/{id}/unallocate
		r.With(handlers).Put("/{id}/use", h.use)               // PUT /api/barrels/{id}/use
		r.With(handlers).Put("/{id}/return", h.markReturned)   // PUT /api/barrels/{id}/return
		r.With(managers).Put("/{id}/restock", h.restock)       // PUT /api/barrels/{id}/restock
		r.With(middleware.RequireRole(identity.RoleManager, identity.RoleAdmin, identity.RoleLab)).
			Put("/{id}/damage", h.damage)
	})

	r.Route("/api/barrel-requests", func(r chi.Router) {
		r.Use(authn)
		r.With(managers).Post("/", h.requestCreation)        // POST /api/barrel-requests
		r.With(managers).Get("/", h.listRequests)            // GET  /api/barrel-requests?status=
		r.With(managers).Get("/{id}", h.getRequest)          // GET  /api/barrel-requests/{id}
		r.With(admin).Put("/{id}/approve", h.approveRequest) // PUT  /api/barrel-requests/{id}/approve
		r.With(admin).Put("/{id}/reject", h.rejectRequest)   // PUT  /api/barrel-requests/{id}/reject
	})
}

func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func (h *Handler) createBarrel(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.service.CreateBarrel(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, b)
}

func (h *Handler) listBarrels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	barrels, err := h.service.ListBarrels(r.Context(), Filter{
		Status:     Status(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	if barrels == nil {
		barrels = []*Barrel{}
	}
	respond(w, http.StatusOK, barrels)
}

func (h *Handler) getBarrel(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBarrel(r.Context(), chi.URLParam(r, "id"))
	respondBarrel(w, b, err)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.service.Allocate(r.Context(), chi.URLParam(r, "id"), req.StaffID)
	respondBarrel(w, b, err)
}

func (h *Handler) unallocate(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Unallocate(r.Context(), chi.URLParam(r, "id"))
	respondBarrel(w, b, err)
}

func (h *Handler) use(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Use(r.Context(), chi.URLParam(r, "id"), caller(r))
	respondBarrel(w, b, err)
}

func (h *Handler) markReturned(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Return(r.Context(), chi.URLParam(r, "id"), caller(r))
	respondBarrel(w, b, err)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Restock(r.Context(), chi.URLParam(r, "id"))
	respondBarrel(w, b, err)
}

func (h *Handler) damage(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Damage(r.Context(), chi.URLParam(r, "id"))
	respondBarrel(w, b, err)
}

func respondBarrel(w http.ResponseWriter, b *Barrel, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, b)
}

// ── Creation requests ─────────────────────────────────────────────────────────

func (h *Handler) requestCreation(w http.ResponseWriter, r *http.Request) {
	var req NewCreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	cr, err := h.service.RequestCreation(r.Context(), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, cr)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*CreationRequest{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	cr, err := h.service.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cr)
}

// decodeReview accepts an empty body.
func decodeReview(r *http.Request) (ReviewRequest, error) {
	var review ReviewRequest
	if r.ContentLength == 0 {
		return review, nil
	}
	err := json.NewDecoder(r.Body).Decode(&review)
	return review, err
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	review, err := decodeReview(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.service.ApproveRequest(r.Context(), chi.URLParam(r, "id"), review, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	review, err := decodeReview(r)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	cr, err := h.service.RejectRequest(r.Context(), chi.URLParam(r, "id"), review, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cr)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRequestNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, ErrNotAssignee):
		code = http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case strings.Contains(msg, "required") || strings.Contains(msg, "invalid"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
