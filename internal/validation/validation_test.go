package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/identity"
)

func TestMatchStaffIDRaw(t *testing.T) {
	cases := []struct {
		role  identity.Role
		id    string
		valid bool
	}{
		{identity.RoleFieldStaff, "HFP01", true},
		{identity.RoleLab, "HFP01", true},
		{identity.RoleFieldStaff, "hfp01", false},
		{identity.RoleFieldStaff, "HFP1", false},
		{identity.RoleFieldStaff, "HFP001", false},
		{identity.RoleAccountant, "ACC07", true},
		{identity.RoleAccountant, "HFP07", false},
		{identity.RoleManager, "MGR10", true},
		{identity.RoleDelivery, "STF-2025-005", true},
		{identity.RoleDelivery, "STF-25-5", false},
		{identity.RoleAdmin, "", true},
	}
	for _, tt := range cases {
		if got := MatchStaffID(tt.role, tt.id); got != tt.valid {
			t.Fatalf("MatchStaffID(%s, %q)=%v, want %v", tt.role, tt.id, got, tt.valid)
		}
	}
}

func TestValidateStaffIDNormalizes(t *testing.T) {
	id, err := ValidateStaffID(identity.RoleFieldStaff, " hfp01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "HFP01" {
		t.Fatalf("id=%q, want HFP01", id)
	}

	if _, err := ValidateStaffID(identity.RoleFieldStaff, "HFP1"); !errors.Is(err, ErrStaffIDFormat) {
		t.Fatalf("HFP1: err=%v, want ErrStaffIDFormat", err)
	}
	if _, err := ValidateStaffID(identity.RoleFieldStaff, "HF P01"); !errors.Is(err, ErrStaffIDWhitespace) {
		t.Fatalf("HF P01: err=%v, want ErrStaffIDWhitespace", err)
	}
	if _, err := ValidateStaffID(identity.RoleDelivery, ""); !errors.Is(err, ErrStaffIDRequired) {
		t.Fatalf("empty: err=%v, want ErrStaffIDRequired", err)
	}
	if _, err := ValidateStaffID(identity.RoleDelivery, "stf-2025-005"); err != nil {
		t.Fatalf("stf-2025-005: unexpected error %v", err)
	}
}

func TestValidateStaffIDRolesWithoutScheme(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleUser} {
		if id, err := ValidateStaffID(role, "  "); err != nil || id != "" {
			t.Fatalf("%s empty: got %q, %v", role, id, err)
		}
		if _, err := ValidateStaffID(role, "whatever-I-like"); !errors.Is(err, ErrStaffIDFormat) {
			t.Fatalf("%s: err=%v, want ErrStaffIDFormat", role, err)
		}
	}
}

func TestNextStaffID(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := NextStaffID(identity.RoleLab, []string{"HFP01", "hfp07", "ACC09", "HFPxx"}, now)
	if err != nil || got != "HFP08" {
		t.Fatalf("got %q, %v; want HFP08", got, err)
	}

	got, err = NextStaffID(identity.RoleAccountant, nil, now)
	if err != nil || got != "ACC01" {
		t.Fatalf("got %q, %v; want ACC01", got, err)
	}

	if _, err := NextStaffID(identity.RoleManager, []string{"MGR99"}, now); !errors.Is(err, ErrStaffIDExhausted) {
		t.Fatalf("err=%v, want ErrStaffIDExhausted", err)
	}

	got, err = NextStaffID(identity.RoleDelivery, []string{"STF-2025-040", "STF-2026-004"}, now)
	if err != nil || got != "STF-2026-005" {
		t.Fatalf("got %q, %v; want STF-2026-005", got, err)
	}
}

func TestNextSequentialIDUnbounded(t *testing.T) {
	got, err := NextSequentialID("BHFP", []string{"BHFP99"}, 2, 0)
	if err != nil || got != "BHFP100" {
		t.Fatalf("got %q, %v; want BHFP100", got, err)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		err  error
	}{
		{"9876543210", "9876543210", nil},
		{"98765 43210", "9876543210", nil},
		{"+919876543210", "+919876543210", nil},
		{"0987654321", "", ErrPhoneLeadingZero},
		{"+0987654321", "", ErrPhoneLeadingZero},
		{"123", "", ErrPhoneLength},
		{"1234567890123456", "", ErrPhoneLength},
		{"98765-43210", "", ErrPhoneDigits},
		{"", "", ErrPhoneRequired},
	}
	for _, tt := range cases {
		got, err := NormalizePhone(tt.raw)
		if !errors.Is(err, tt.err) {
			t.Fatalf("NormalizePhone(%q) err=%v, want %v", tt.raw, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("NormalizePhone(%q)=%q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestValidateDateRange(t *testing.T) {
	today := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	day := func(offsetDays int) time.Time { return Day(today).AddDate(0, 0, offsetDays) }

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  error
	}{
		{"today to tomorrow", day(0), day(1), nil},
		{"single day", day(3), day(3), nil},
		{"start yesterday", day(-1), day(2), ErrStartInPast},
		{"end before start", day(5), day(4), ErrEndBeforeStart},
		{"start three years out", today.AddDate(3, 0, 0), today.AddDate(3, 0, 1), ErrStartTooFar},
		{"end past horizon", day(1), today.AddDate(2, 0, 1), ErrEndTooFar},
		{"end on horizon", day(1), today.AddDate(2, 0, 0), nil},
	}
	for _, tt := range cases {
		if err := ValidateDateRange(tt.start, tt.end, today); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err=%v, want %v", tt.name, err, tt.want)
		}
	}
}
