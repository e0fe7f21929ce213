package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hfpolymers/rubber-ops/internal/identity"
)

var (
	ErrStaffIDRequired   = errors.New("staff_id is required")
	ErrStaffIDWhitespace = errors.New("staff_id must not contain spaces")
	ErrStaffIDFormat     = errors.New("invalid staff_id format")
	ErrStaffIDExhausted  = errors.New("no staff ids left for this prefix")
)

type staffIDScheme struct {
	prefix  string
	pattern *regexp.Regexp
	example string
}

var (
	schemeHFP = staffIDScheme{prefix: "HFP", pattern: regexp.MustCompile(`^HFP\d{2}$`), example: "HFP01"}
	schemeACC = staffIDScheme{prefix: "ACC", pattern: regexp.MustCompile(`^ACC\d{2}$`), example: "ACC01"}
	schemeMGR = staffIDScheme{prefix: "MGR", pattern: regexp.MustCompile(`^MGR\d{2}$`), example: "MGR01"}
	schemeSTF = staffIDScheme{prefix: "STF-", pattern: regexp.MustCompile(`^STF-\d{4}-\d{3}$`), example: "STF-2025-001"}
)

func schemeFor(role identity.Role) (staffIDScheme, bool) {
	switch role {
	case identity.RoleFieldStaff, identity.RoleLab, identity.RoleStaff:
		return schemeHFP, true
	case identity.RoleAccountant:
		return schemeACC, true
	case identity.RoleManager:
		return schemeMGR, true
	case identity.RoleDelivery:
		return schemeSTF, true
	}
	return staffIDScheme{}, false
}

// NormalizeStaffID trims and upper-cases a staff id.
func NormalizeStaffID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// MatchStaffID reports whether id already matches the role's pattern exactly.
// No normalisation is applied.
func MatchStaffID(role identity.Role, id string) bool {
	scheme, ok := schemeFor(role)
	if !ok {
		return id == ""
	}
	return scheme.pattern.MatchString(id)
}

// ValidateStaffID normalises raw and checks it against the role's pattern.
// It returns the normalised id.
func ValidateStaffID(role identity.Role, raw string) (string, error) {
	id := NormalizeStaffID(raw)
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return "", ErrStaffIDWhitespace
	}
	scheme, ok := schemeFor(role)
	if !ok {
		if id != "" {
			return "", fmt.Errorf("%w: role %s does not take a staff_id", ErrStaffIDFormat, role)
		}
		return "", nil
	}
	if id == "" {
		return "", ErrStaffIDRequired
	}
	if !scheme.pattern.MatchString(id) {
		return "", fmt.Errorf("%w for role %s (expected like %s)", ErrStaffIDFormat, role, scheme.example)
	}
	return id, nil
}

// NextStaffID returns the next free staff id for role given the ids already
// issued. Two-digit schemes stop at 99; the delivery scheme is per year and
// stops at 999.
func NextStaffID(role identity.Role, existing []string, now time.Time) (string, error) {
	scheme, ok := schemeFor(role)
	if !ok {
		return "", nil
	}
	if scheme.prefix == schemeSTF.prefix {
		return NextSequentialID(fmt.Sprintf("STF-%04d-", now.Year()), existing, 3, 999)
	}
	return NextSequentialID(scheme.prefix, existing, 2, 99)
}

// NextSequentialID scans existing for ids of the form prefix+digits, takes the
// largest numeric suffix and returns prefix+(max+1) zero-padded to width.
// max <= 0 means unbounded.
func NextSequentialID(prefix string, existing []string, width, max int) (string, error) {
	highest := 0
	for _, raw := range existing {
		id := NormalizeStaffID(raw)
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(prefix):])
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	next := highest + 1
	if max > 0 && next > max {
		return "", fmt.Errorf("%w %s", ErrStaffIDExhausted, prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, width, next), nil
}
