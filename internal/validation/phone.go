package validation

import (
	"errors"
	"strings"
)

var (
	ErrPhoneRequired    = errors.New("phone is required")
	ErrPhoneDigits      = errors.New("phone must contain digits only")
	ErrPhoneLeadingZero = errors.New("phone must not start with 0")
	ErrPhoneLength      = errors.New("phone must be 10 to 15 digits")
)

// NormalizePhone strips spaces and validates the number. An optional leading
// "+" is kept.
func NormalizePhone(raw string) (string, error) {
	phone := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if phone == "" {
		return "", ErrPhoneRequired
	}
	digits := strings.TrimPrefix(phone, "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrPhoneDigits
		}
	}
	if digits == "" {
		return "", ErrPhoneDigits
	}
	if digits[0] == '0' {
		return "", ErrPhoneLeadingZero
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrPhoneLength
	}
	return phone, nil
}
