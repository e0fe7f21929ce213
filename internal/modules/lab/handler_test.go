package lab

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/rs/zerolog"
)

func asRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.Identity{UserID: uuid.New(), Role: role, StaffID: "HFP04"}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func serve(svc Service, role identity.Role, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asRole(role))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestLabRouteRoles(t *testing.T) {
	svc := NewService(newMemRepo(intakeFixture()), nil, zerolog.Nop())
	tests := []struct {
		role identity.Role
		path string
		want int
	}{
		{identity.RoleLab, "/api/lab/incoming", http.StatusOK},
		{identity.RoleManager, "/api/lab/incoming", http.StatusOK},
		{identity.RoleAccountant, "/api/lab/incoming", http.StatusForbidden},
		{identity.RoleDelivery, "/api/lab/samples", http.StatusForbidden},
		{identity.RoleAccountant, "/api/accountant/samples/pending", http.StatusOK},
		{identity.RoleAdmin, "/api/accountant/samples/pending", http.StatusOK},
		{identity.RoleLab, "/api/accountant/samples/pending", http.StatusForbidden},
		{identity.RoleManager, "/api/accountant/samples/pending", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+tt.path, func(t *testing.T) {
			if rec := serve(svc, tt.role, http.MethodGet, tt.path, ""); rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCheckInAndSettleEndpoints(t *testing.T) {
	in := intakeFixture()
	svc := NewService(newMemRepo(in), nil, zerolog.Nop())

	body := `{"intake_id":"` + in.IntakeID.String() + `","latex_quantity_kg":200,"drc_percent":35}`
	rec := serve(svc, identity.RoleLab, http.MethodPost, "/api/lab/samples/checkin", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in: status %d: %s", rec.Code, rec.Body.String())
	}
	var sample Sample
	if err := json.NewDecoder(rec.Body).Decode(&sample); err != nil {
		t.Fatal(err)
	}
	if rec := serve(svc, identity.RoleLab, http.MethodPost, "/api/lab/samples/checkin", body); rec.Code != http.StatusConflict {
		t.Fatalf("second check-in: status %d", rec.Code)
	}

	settle := "/api/accountant/samples/" + sample.ID.String() + "/settle"
	if rec := serve(svc, identity.RoleLab, http.MethodPut, settle, `{"rate_per_kg":150}`); rec.Code != http.StatusForbidden {
		t.Fatalf("lab settling: status %d", rec.Code)
	}
	rec = serve(svc, identity.RoleAccountant, http.MethodPut, settle, `{"rate_per_kg":150}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"amount":10500`) {
		t.Fatalf("settle: status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(svc, identity.RoleAccountant, http.MethodPut, settle, `{"rate_per_kg":150}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("double settle: status %d", rec.Code)
	}
}
