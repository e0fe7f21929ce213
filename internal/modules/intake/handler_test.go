package intake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/rs/zerolog"
)

func as(id identity.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

type wizardAPI struct {
	t        *testing.T
	svc      Service
	sessions *Sessions
}

func newWizardAPI(t *testing.T, flow *fakeFlow, pub *fakePublisher) *wizardAPI {
	svc := NewService(newMemRepo(), pub, time.UTC, zerolog.Nop())
	return &wizardAPI{t: t, svc: svc, sessions: newTestSessions(flow, pub, newFakeClock())}
}

func (a *wizardAPI) do(caller identity.Identity, method, path, body string) (int, map[string]interface{}) {
	a.t.Helper()
	r := chi.NewRouter()
	NewHandler(a.svc, a.sessions).RegisterRoutes(r, as(caller))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestWizardEndpoints(t *testing.T) {
	flow := &fakeFlow{}
	pub := &fakePublisher{}
	api := newWizardAPI(t, flow, pub)

	body := `{"request_id":"` + uuid.NewString() + `","task_id":"` + uuid.NewString() + `","customer_name":"Joseph","customer_phone":"9876543210","barrel_count":4}`
	code, view := api.do(driver, http.MethodPost, "/api/delivery/intake-wizard", body)
	if code != http.StatusCreated || view["step"] != "REVIEW" {
		t.Fatalf("start: %d %v", code, view)
	}
	base := "/api/delivery/intake-wizard/" + view["id"].(string)

	if code, _ := api.do(driver, http.MethodPost, base+"/send", ""); code != http.StatusUnprocessableEntity {
		t.Fatalf("send at review: status %d", code)
	}
	if code, _ := api.do(driver, http.MethodPost, base+"/arrival", `{"arrival_time":"10:30"}`); code != http.StatusUnprocessableEntity {
		t.Fatalf("arrival at review: status %d", code)
	}

	other := identity.Identity{UserID: uuid.New(), Role: identity.RoleDelivery, StaffID: "STF-2025-009"}
	if code, _ := api.do(other, http.MethodGet, base, ""); code != http.StatusNotFound {
		t.Fatalf("foreign session: status %d", code)
	}
	if code, _ := api.do(other, http.MethodPost, base+"/proceed", ""); code != http.StatusNotFound {
		t.Fatalf("foreign proceed: status %d", code)
	}
	if code, _ := api.do(driver, http.MethodGet, "/api/delivery/intake-wizard/not-a-uuid", ""); code != http.StatusNotFound {
		t.Fatalf("bad id: status %d", code)
	}

	steps := []struct {
		path, body, want string
	}{
		{"/proceed", "", "TIME_ENTRY"},
		{"/back", "", "REVIEW"},
		{"/proceed", "", "TIME_ENTRY"},
		{"/arrival", `{"arrival_time":"10:30"}`, "CONFIRM"},
		{"/send", "", "DONE"},
	}
	for _, s := range steps {
		code, view := api.do(driver, http.MethodPost, base+s.path, s.body)
		if code != http.StatusOK || view["step"] != s.want {
			t.Fatalf("%s: %d %v, want %s", s.path, code, view, s.want)
		}
	}
	if len(flow.recorded) != 1 || len(pub.sent) != 2 {
		t.Fatalf("expected 1 intake and 2 notifications, got %d/%d", len(flow.recorded), len(pub.sent))
	}

	code, body2 := api.do(driver, http.MethodPost, base+"/back", "")
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("back after done: status %d", code)
	}
	if wiz, ok := body2["wizard"].(map[string]interface{}); !ok || wiz["step"] != "DONE" {
		t.Fatalf("error body should carry the wizard view, got %v", body2)
	}
}

func TestWizardProceedRequiresCustomer(t *testing.T) {
	api := newWizardAPI(t, &fakeFlow{}, &fakePublisher{})
	_, view := api.do(driver, http.MethodPost, "/api/delivery/intake-wizard", `{"barrel_count":2}`)
	code, _ := api.do(driver, http.MethodPost, "/api/delivery/intake-wizard/"+view["id"].(string)+"/proceed", "")
	if code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", code)
	}
}

func TestDeliveryRouteRoles(t *testing.T) {
	api := newWizardAPI(t, &fakeFlow{}, &fakePublisher{})
	tests := []struct {
		role identity.Role
		want int
	}{
		{identity.RoleDelivery, http.StatusCreated},
		{identity.RoleManager, http.StatusCreated},
		{identity.RoleLab, http.StatusForbidden},
		{identity.RoleFieldStaff, http.StatusForbidden},
		{identity.RoleUser, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			caller := identity.Identity{UserID: uuid.New(), Role: tt.role}
			code, _ := api.do(caller, http.MethodPost, "/api/delivery/intake-wizard", `{"customer_name":"A","customer_phone":"9876543210"}`)
			if code != tt.want {
				t.Fatalf("status %d, want %d", code, tt.want)
			}
		})
	}
}
