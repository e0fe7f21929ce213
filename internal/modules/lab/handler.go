package lab

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
)

// Handler exposes lab and accountant sample endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/api/lab", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(identity.RoleLab, identity.RoleManager, identity.RoleAdmin))
		r.Get("/incoming", h.listIncoming)    // GET  /api/lab/incoming
		r.Post("/samples/checkin", h.checkIn) // POST /api/lab/samples/checkin
		r.Get("/samples", h.listSamples)      // GET  /api/lab/samples?status=
		r.Get("/samples/{id}", h.getSample)   // GET  /api/lab/samples/{id}
	})
	r.Route("/api/accountant/samples", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(identity.RoleAccountant, identity.RoleAdmin))
		r.Get("/pending", h.listPending) // GET /api/accountant/samples/pending
		r.Put("/{id}/settle", h.settle)  // PUT /api/accountant/samples/{id}/settle
	})
}

func (h *Handler) listIncoming(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListIncoming(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Incoming{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id, _ := identity.FromContext(r.Context())
	sample, err := h.service.CheckIn(r.Context(), req, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sample)
}

func (h *Handler) listSamples(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSamples(r.Context(), r.URL.Query().Get("status"))
	h.respondList(w, items, err)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPending(r.Context())
	h.respondList(w, items, err)
}

func (h *Handler) respondList(w http.ResponseWriter, items []*Sample, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Sample{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) getSample(w http.ResponseWriter, r *http.Request) {
	sample, err := h.service.GetSample(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sample)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id, _ := identity.FromContext(r.Context())
	sample, err := h.service.Settle(r.Context(), chi.URLParam(r, "id"), req, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sample)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrIntakeNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrAlreadyCheckedIn):
		code = http.StatusConflict
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
