package salary

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
)

// Handler exposes salary HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/api/salary", func(r chi.Router) {
		r.Use(authn)
		r.Get("/my", h.mySalary) // GET /api/salary/my

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(identity.RoleAdmin, identity.RoleManager, identity.RoleAccountant))
			r.Post("/calculate", h.calculate)         // POST   /api/salary/calculate
			r.Post("/generate", h.generate)           // POST   /api/salary/generate
			r.Get("/records", h.listRecords)          // GET    /api/salary/records?month=&year=&status=&staff_id=
			r.Get("/records/{id}", h.getRecord)       // GET    /api/salary/records/{id}
			r.Put("/records/{id}", h.updateRecord)    // PUT    /api/salary/records/{id}
			r.Put("/records/{id}/approve", h.approve) // PUT    /api/salary/records/{id}/approve
			r.Put("/records/{id}/pay", h.pay)         // PUT    /api/salary/records/{id}/pay
			r.Delete("/records/{id}", h.deleteRecord) // DELETE /api/salary/records/{id}
		})
	})
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, h.service.Calculate(req))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var createdBy *uuid.UUID
	if id, ok := identity.FromContext(r.Context()); ok {
		createdBy = &id.UserID
	}
	res, err := h.service.Generate(r.Context(), req, createdBy)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		StaffID: strings.ToUpper(q.Get("staff_id")),
		Status:  Status(strings.ToUpper(q.Get("status"))),
	}
	filter.Month, _ = strconv.Atoi(q.Get("month"))
	filter.Year, _ = strconv.Atoi(q.Get("year"))
	h.list(w, r, filter)
}

func (h *Handler) mySalary(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if id.StaffID == "" {
		respond(w, http.StatusOK, []*Record{})
		return
	}
	h.list(w, r, Filter{StaffID: id.StaffID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter Filter) {
	records, err := h.service.ListRecords(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	if records == nil {
		records = []*Record{}
	}
	respond(w, http.StatusOK, records)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rec, err := h.service.UpdateRecord(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Pay(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "salary record deleted"})
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownStaff):
		code = http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "invalid"):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
