package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
		{"Bearer a b", ""},
	}
	for _, tt := range cases {
		if got := BearerToken(tt.header); got != tt.want {
			t.Fatalf("BearerToken(%q)=%q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	managerID := uuid.New()
	verify := func(token string) (identity.Identity, error) {
		switch token {
		case "manager-token":
			return identity.Identity{UserID: managerID, Role: identity.RoleManager}, nil
		case "lab-token":
			return identity.Identity{UserID: uuid.New(), Role: identity.RoleLab}, nil
		}
		return identity.Identity{}, errors.New("bad token")
	}

	var seen identity.Identity
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(verify)(RequireRole(identity.RoleManager, identity.RoleAdmin)(final))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer lab-token", http.StatusForbidden},
		{"allowed", "Bearer manager-token", http.StatusNoContent},
	}
	for _, tt := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/shifts", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("%s: status=%d, want %d", tt.name, rec.Code, tt.status)
		}
	}
	if seen.UserID != managerID {
		t.Fatalf("identity not propagated, got %v", seen.UserID)
	}
}
