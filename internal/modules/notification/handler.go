package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/middleware"
)

// Handler exposes notification HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux, authn func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.list)                    // GET /api/notifications?unread=true&limit=20
		r.Get("/unread-count", h.unreadCount) // GET /api/notifications/unread-count
		r.Put("/{id}/read", h.markRead)       // PUT /api/notifications/{id}/read
		r.Put("/read-all", h.markAllRead)     // PUT /api/notifications/read-all
		r.With(middleware.RequireRole(identity.RoleDelivery, identity.RoleManager, identity.RoleAdmin, identity.RoleFieldStaff)).
			Post("/staff-trip-event", h.staffTripEvent)
	})
}

func recipient(r *http.Request) Recipient {
	id, _ := identity.FromContext(r.Context())
	return Recipient{UserID: id.UserID, Role: id.Role}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{UnreadOnly: strings.EqualFold(q.Get("unread"), "true")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	items, err := h.service.List(r.Context(), recipient(r), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*Notification{}
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UnreadCount(r.Context(), recipient(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkRead(r.Context(), recipient(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "notification marked read"})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context(), recipient(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) staffTripEvent(w http.ResponseWriter, r *http.Request) {
	var req TripEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.service.StaffTripEvent(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
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
