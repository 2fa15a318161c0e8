package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// rxEthiopianLocalPhone matches the local mobile format the payment provider
// expects: a 09/07 prefix followed by eight digits.
var rxEthiopianLocalPhone = regexp.MustCompile(`^(09|07)\d{8}$`)

// ValidateEthiopianPhone checks that the given string is a local Ethiopian
// mobile number (09XXXXXXXX or 07XXXXXXXX).
func ValidateEthiopianPhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number cannot be empty")
	}

	if !rxEthiopianLocalPhone.MatchString(phone) {
		return fmt.Errorf("the provided phone number is not a valid Ethiopian mobile number")
	}

	return nil
}

// SanitizeEthiopianPhone normalizes a phone number to the local Ethiopian
// mobile format. It accepts local numbers as-is and international forms
// (+2519..., 2517..., etc.), and returns "" when the number cannot be
// normalized to a valid local one.
func SanitizeEthiopianPhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}

	if rxEthiopianLocalPhone.MatchString(trimmed) {
		return trimmed
	}

	parsed, err := phonenumbers.Parse(trimmed, "ET")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}

	local := fmt.Sprintf("0%d", parsed.GetNationalNumber())
	if !rxEthiopianLocalPhone.MatchString(local) {
		return ""
	}
	return local
}
