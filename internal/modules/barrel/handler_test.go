package barrel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/rs/zerolog"
)

func asRole(role identity.Role, staffID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identity.Identity{UserID: uuid.New(), Role: role, StaffID: staffID}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func serve(svc Service, role identity.Role, staffID, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asRole(role, staffID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestBarrelRouteRoles(t *testing.T) {
	tests := []struct {
		name   string
		role   identity.Role
		method string
		action string
		body   string
		want   int
	}{
		{"admin creates", identity.RoleAdmin, http.MethodPost, "", `{"material_name":"Latex"}`, http.StatusCreated},
		{"manager cannot create", identity.RoleManager, http.MethodPost, "", `{"material_name":"Latex"}`, http.StatusForbidden},
		{"manager allocates", identity.RoleManager, http.MethodPut, "/allocate", `{"staff_id":"HFP03"}`, http.StatusOK},
		{"field staff cannot allocate", identity.RoleFieldStaff, http.MethodPut, "/allocate", `{"staff_id":"HFP03"}`, http.StatusForbidden},
		{"lab cannot allocate", identity.RoleLab, http.MethodPut, "/allocate", `{"staff_id":"HFP03"}`, http.StatusForbidden},
		{"lab damages", identity.RoleLab, http.MethodPut, "/damage", "", http.StatusOK},
		{"delivery cannot damage", identity.RoleDelivery, http.MethodPut, "/damage", "", http.StatusForbidden},
		{"field staff cannot damage", identity.RoleFieldStaff, http.MethodPut, "/damage", "", http.StatusForbidden},
		{"end user cannot list", identity.RoleUser, http.MethodGet, "", "", http.StatusForbidden},
		{"delivery lists", identity.RoleDelivery, http.MethodGet, "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMemRepo(), zerolog.Nop())
			b, err := svc.CreateBarrel(context.Background(), CreateRequest{MaterialName: "Latex"})
			if err != nil {
				t.Fatal(err)
			}
			path := "/api/barrels"
			if tt.action != "" {
				path += "/" + b.BarrelID + tt.action
			}
			if rec := serve(svc, tt.role, "", tt.method, path, tt.body); rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUseEndpointChecksAssignee(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()
	b, _ := svc.CreateBarrel(ctx, CreateRequest{MaterialName: "Latex"})
	if _, err := svc.Allocate(ctx, b.BarrelID, "HFP03"); err != nil {
		t.Fatal(err)
	}
	path := "/api/barrels/" + b.BarrelID + "/use"
	if rec := serve(svc, identity.RoleFieldStaff, "HFP04", http.MethodPut, path, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("other field staff: status %d", rec.Code)
	}
	rec := serve(svc, identity.RoleFieldStaff, "HFP03", http.MethodPut, path, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"IN_USE"`) {
		t.Fatalf("assignee: status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBarrelRequestApprovalIsAdminOnly(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	rec := serve(svc, identity.RoleManager, "MGR01", http.MethodPost, "/api/barrel-requests", `{"quantity":2,"material_name":"Latex"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("request: status %d: %s", rec.Code, rec.Body.String())
	}
	reqs, _ := svc.ListRequests(context.Background(), "")
	approve := "/api/barrel-requests/" + reqs[0].ID.String() + "/approve"
	if rec := serve(svc, identity.RoleManager, "MGR01", http.MethodPut, approve, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("manager approving: status %d", rec.Code)
	}
	if rec := serve(svc, identity.RoleAdmin, "", http.MethodPut, approve, ""); rec.Code != http.StatusOK {
		t.Fatalf("admin approving: status %d: %s", rec.Code, rec.Body.String())
	}
	if list, _ := svc.ListBarrels(context.Background(), Filter{}); len(list) != 2 {
		t.Fatalf("expected 2 barrels, got %d", len(list))
	}
}
