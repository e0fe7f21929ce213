package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hfpolymers/rubber-ops/internal/modules/salary"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithEnv(t, nil, args...)
}

func runWithEnv(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"OPSCTL_TOKEN", "OPSCTL_API_URL", "TOKEN", "API_URL"} {
		t.Setenv(key, env[key])
	}
	cfg := filepath.Join(t.TempDir(), "opsctl.yaml")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestWageCalc(t *testing.T) {
	out, err := run(t, "wage", "calc", "--daily-wage", "500", "--days", "26", "--ot-hours", "10", "--ot-rate", "75", "--pf", "1200")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "13750.00") || !strings.Contains(out, "12550.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestValidateStaffID(t *testing.T) {
	out, err := run(t, "validate", "staff-id", "--role", "accountant", " acc07 ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "valid: ACC07") {
		t.Fatalf("got %q", out)
	}
	if _, err := run(t, "validate", "staff-id", "--role", "manager", "HFP01"); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := run(t, "validate", "staff-id", "--role", "pilot", "X1"); err == nil {
		t.Fatal("expected unknown role error")
	}
}

func TestValidateLeave(t *testing.T) {
	out, err := run(t, "validate", "leave", "--today", "2025-06-01", "2025-06-10", "2025-06-12")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3 day(s)") {
		t.Fatalf("got %q", out)
	}
	if _, err := run(t, "validate", "leave", "--today", "2025-06-01", "2025-05-30", "2025-06-02"); err == nil {
		t.Fatal("expected past start to be rejected")
	}
}

func TestSalaryListRequiresToken(t *testing.T) {
	_, err := run(t, "salary", "list")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("err = %v", err)
	}
}

func salaryServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("status"); got != "DRAFT" {
			t.Errorf("status query = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]*salary.Record{{
			StaffID: "HFP01", StaffName: "Asha", Month: 6, Year: 2025, Status: salary.StatusDraft,
			Breakdown: salary.Breakdown{GrossSalary: 13750, TotalDeductions: 1200, NetSalary: 12550},
		}})
	}))
}

func TestSalaryList(t *testing.T) {
	srv := salaryServer(t)
	defer srv.Close()

	out, err := run(t, "--api-url", srv.URL, "--token", "tok", "salary", "list", "--status", "draft")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "HFP01") || !strings.Contains(out, "06/2025") || !strings.Contains(out, "12550.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	srv := salaryServer(t)
	defer srv.Close()

	envs := []map[string]string{
		{"API_URL": srv.URL, "TOKEN": "tok"},
		{"OPSCTL_API_URL": srv.URL, "OPSCTL_TOKEN": "tok"},
		{"OPSCTL_API_URL": srv.URL, "OPSCTL_TOKEN": "tok", "TOKEN": "stale"},
	}
	for _, env := range envs {
		out, err := runWithEnv(t, env, "salary", "list", "--status", "draft")
		if err != nil {
			t.Fatalf("env %v: %v", env, err)
		}
		if !strings.Contains(out, "HFP01") {
			t.Fatalf("env %v: unexpected output:\n%s", env, out)
		}
	}
}
