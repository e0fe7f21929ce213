package shift

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
	"github.com/hfpolymers/rubber-ops/internal/validation"
)

// Handler exposes shift and attendance HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	planners := middleware.RequireRole(identity.RoleManager, identity.RoleAdmin)

	r.Route("/api/shifts", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.listShifts)                        // GET    /api/shifts
		r.With(planners).Post("/", h.createShift)       // POST   /api/shifts
		r.With(planners).Delete("/{id}", h.deleteShift) // DELETE /api/shifts/{id}
	})

	r.Route("/api/shift-assignments", func(r chi.Router) {
		r.Use(authn)
		r.With(planners).Get("/available-staff", h.availableStaff) // GET /api/shift-assignments/available-staff?date=&shift_id=
		r.With(planners).Post("/assign", h.assign)                 // POST /api/shift-assignments/assign
		r.With(planners).Get("/", h.listAssignments)               // GET /api/shift-assignments?date=&staff_id=
		r.Get("/my", h.myAssignments)                              // GET /api/shift-assignments/my
		r.Put("/{id}/check-in", h.checkIn)                         // PUT /api/shift-assignments/{id}/check-in
		r.Put("/{id}/check-out", h.checkOut)                       // PUT /api/shift-assignments/{id}/check-out
	})
}

func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func (h *Handler) listShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.service.ListShifts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if shifts == nil {
		shifts = []*Shift{}
	}
	respond(w, http.StatusOK, shifts)
}

func (h *Handler) createShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sh, err := h.service.CreateShift(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sh)
}

func (h *Handler) deleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) availableStaff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("date") == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "date is required"})
		return
	}
	staff, err := h.service.AvailableStaff(r.Context(), q.Get("date"), q.Get("shift_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, staff)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.service.Assign(r.Context(), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListAssignments(r.Context(), q.Get("date"), q.Get("staff_id"))
	respondList(w, items, err)
}

func (h *Handler) myAssignments(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.MyAssignments(r.Context(), caller(r))
	respondList(w, items, err)
}

func respondList(w http.ResponseWriter, items []*Assignment, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Assignment{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.CheckIn(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, a)
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.CheckOut(r.Context(), chi.URLParam(r, "id"), caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, a)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAssignmentNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrShiftInUse), errors.Is(err, ErrAlreadyAssigned):
		code = http.StatusConflict
	case errors.Is(err, ErrNotAssignee):
		code = http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, validation.ErrStartInPast),
		strings.Contains(msg, "required") || strings.Contains(msg, "invalid"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
