package http

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const (
	minNameLen     = 2
	maxNameLen     = 50
	minPasswordLen = 6
)

// validateName checks the 2-50 character display name rule.
func validateName(name string) []string {
	n := len(strings.TrimSpace(name))
	if n < minNameLen || n > maxNameLen {
		return []string{fmt.Sprintf("name must be between %d and %d characters", minNameLen, maxNameLen)}
	}
	return nil
}

func validateEmail(email string) []string {
	email = strings.TrimSpace(email)
	if email == "" {
		return []string{"email is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return []string{"email is not a valid address"}
	}
	return nil
}

// validatePassword enforces length plus at least one uppercase, one
// lowercase and one digit.
func validatePassword(password string) []string {
	var errs []string
	if len(password) < minPasswordLen {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		errs = append(errs, "password must contain an uppercase letter, a lowercase letter and a digit")
	}
	return errs
}

// validateOTP requires exactly 4 numeric characters.
func validateOTP(code string) []string {
	if len(code) != 4 {
		return []string{"otp must be exactly 4 digits"}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return []string{"otp must be exactly 4 digits"}
		}
	}
	return nil
}
