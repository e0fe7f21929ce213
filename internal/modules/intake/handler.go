package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
	"github.com/hfpolymers/rubber-ops/internal/validation"
)

// Handler exposes sell request, delivery and intake wizard endpoints.
type Handler struct {
	service  Service
	sessions *Sessions
}

func NewHandler(service Service, sessions *Sessions) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	reviewers := middleware.RequireRole(identity.RoleManager, identity.RoleAdmin)

	r.Route("/api/sell-requests", func(r chi.Router) {
		r.Use(authn)
		r.With(middleware.RequireRole(identity.RoleUser, identity.RoleFieldStaff, identity.RoleManager, identity.RoleAdmin)).
			Post("/", h.createSellRequest)
		r.With(middleware.RequireRole(identity.RoleManager, identity.RoleAdmin, identity.RoleDelivery, identity.RoleLab)).
			Get("/", h.listSellRequests)
		r.Get("/{id}", h.getSellRequest)
		r.With(reviewers).Put("/{id}/approve", h.approveSellRequest)
		r.With(reviewers).Put("/{id}/reject", h.rejectSellRequest)
		r.With(middleware.RequireRole(identity.RoleDelivery, identity.RoleLab, identity.RoleManager, identity.RoleAdmin)).
			Put("/{id}/deliver-to-lab", h.deliverToLab)
	})

	r.Route("/api/delivery", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(identity.RoleDelivery, identity.RoleManager, identity.RoleAdmin))
		r.Post("/barrels/intake", h.recordIntake)              // POST /api/delivery/barrels/intake
		r.Get("/barrels/intake", h.listIntakes)                // GET  /api/delivery/barrels/intake
		r.Get("/tasks", h.listTasks)                           // GET  /api/delivery/tasks
		r.Put("/{id}/status", h.updateTaskStatus)              // PUT  /api/delivery/{id}/status
		r.Post("/intake-wizard", h.startWizard)                // POST /api/delivery/intake-wizard
		r.Get("/intake-wizard/{id}", h.getWizard)              // GET  /api/delivery/intake-wizard/{id}
		r.Post("/intake-wizard/{id}/proceed", h.proceed)       // POST /api/delivery/intake-wizard/{id}/proceed
		r.Post("/intake-wizard/{id}/back", h.back)             // POST /api/delivery/intake-wizard/{id}/back
		r.Post("/intake-wizard/{id}/arrival", h.submitArrival) // POST /api/delivery/intake-wizard/{id}/arrival
		r.Post("/intake-wizard/{id}/send", h.send)             // POST /api/delivery/intake-wizard/{id}/send
	})
}

func caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// ── Sell requests ─────────────────────────────────────────────────────────────

func (h *Handler) createSellRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateSellRequest
	if !decode(w, r, &req) {
		return
	}
	sr, err := h.service.CreateSellRequest(r.Context(), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sr)
}

func (h *Handler) listSellRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSellRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*SellRequest{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) getSellRequest(w http.ResponseWriter, r *http.Request) {
	sr, err := h.service.GetSellRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	id := caller(r)
	if id.Role == identity.RoleUser && (sr.CustomerID == nil || *sr.CustomerID != id.UserID) {
		respond(w, http.StatusNotFound, map[string]string{"error": "sell request not found"})
		return
	}
	respond(w, http.StatusOK, sr)
}

func (h *Handler) approveSellRequest(w http.ResponseWriter, r *http.Request) {
	var req ApproveSellRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.service.ApproveSellRequest(r.Context(), chi.URLParam(r, "id"), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, task)
}

func (h *Handler) rejectSellRequest(w http.ResponseWriter, r *http.Request) {
	var req RejectSellRequest
	if !decode(w, r, &req) {
		return
	}
	sr, err := h.service.RejectSellRequest(r.Context(), chi.URLParam(r, "id"), req, caller(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

func (h *Handler) deliverToLab(w http.ResponseWriter, r *http.Request) {
	sr, err := h.service.MarkDeliveredToLab(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

// ── Delivery ──────────────────────────────────────────────────────────────────

func (h *Handler) recordIntake(w http.ResponseWriter, r *http.Request) {
	var req IntakeRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := h.service.RecordIntake(r.Context(), req, caller(r).StaffID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, in)
}

func (h *Handler) listIntakes(w http.ResponseWriter, r *http.Request) {
	filter := IntakeFilter{}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if id := caller(r); id.Role == identity.RoleDelivery {
		filter.RecordedBy = id.StaffID
	}
	items, err := h.service.ListIntakes(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Intake{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	assignedTo := strings.ToUpper(r.URL.Query().Get("assigned_to"))
	if id := caller(r); id.Role == identity.RoleDelivery {
		assignedTo = id.StaffID
	}
	tasks, err := h.service.ListTasks(r.Context(), assignedTo)
	if err != nil {
		respondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*DeliveryTask{}
	}
	respond(w, http.StatusOK, tasks)
}

func (h *Handler) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := h.service.UpdateTaskStatus(r.Context(), chi.URLParam(r, "id"), TaskStatus(strings.ToUpper(req.Status)))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, task)
}

// ── Intake wizard ─────────────────────────────────────────────────────────────

func (h *Handler) startWizard(w http.ResponseWriter, r *http.Request) {
	var p Params
	if !decode(w, r, &p) {
		return
	}
	wiz := h.sessions.Start(caller(r), p)
	respond(w, http.StatusCreated, wiz.View())
}

func (h *Handler) wizard(w http.ResponseWriter, r *http.Request) (*Wizard, bool) {
	wiz, err := h.sessions.Get(caller(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return wiz, true
}

func (h *Handler) getWizard(w http.ResponseWriter, r *http.Request) {
	if wiz, ok := h.wizard(w, r); ok {
		respond(w, http.StatusOK, wiz.View())
	}
}

func (h *Handler) proceed(w http.ResponseWriter, r *http.Request) {
	if wiz, ok := h.wizard(w, r); ok {
		v, err := wiz.Proceed()
		respondView(w, v, err)
	}
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	if wiz, ok := h.wizard(w, r); ok {
		v, err := wiz.Back()
		respondView(w, v, err)
	}
}

type arrivalRequest struct {
	ArrivalTime string `json:"arrival_time"`
}

func (h *Handler) submitArrival(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.wizard(w, r)
	if !ok {
		return
	}
	var req arrivalRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := wiz.SubmitArrival(r.Context(), req.ArrivalTime)
	respondView(w, v, err)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	if wiz, ok := h.wizard(w, r); ok {
		v, err := wiz.Send(r.Context())
		respondView(w, v, err)
	}
}

func respondView(w http.ResponseWriter, v View, err error) {
	if err != nil {
		code, _ := statusFor(err)
		respond(w, code, map[string]interface{}{"error": err.Error(), "wizard": v})
		return
	}
	respond(w, http.StatusOK, v)
}

func statusFor(err error) (int, string) {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, errWrongStep):
		return http.StatusUnprocessableEntity, msg
	case errors.Is(err, validation.ErrStaffIDFormat), errors.Is(err, validation.ErrStaffIDRequired):
		return http.StatusBadRequest, msg
	case strings.Contains(msg, "required") || strings.Contains(msg, "invalid") || strings.Contains(msg, "phone"):
		return http.StatusBadRequest, msg
	}
	return http.StatusInternalServerError, msg
}

func respondError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	respond(w, code, map[string]string{"error": msg})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
