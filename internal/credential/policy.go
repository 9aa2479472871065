package credential

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/daap14/tenantauth/internal/apperr"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// ErrWeakPassword is returned when a password fails the password policy.
// Details carry the list of unmet rules.
var ErrWeakPassword = apperr.New(apperr.KindValidation, "WEAK_PASSWORD", "Password does not meet requirements")

var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"passw0rd":  {},
	"123456":    {},
	"12345678":  {},
	"qwerty":    {},
	"qwerty123": {},
	"admin":     {},
	"admin123":  {},
	"letmein":   {},
	"welcome1":  {},
	"iloveyou":  {},
}

// ValidatePassword checks p against the password policy.
func ValidatePassword(p string) error {
	var problems []string

	n := utf8.RuneCountInString(p)
	if n < MinPasswordLength {
		problems = append(problems, "must be at least 8 characters")
	}
	if n > MaxPasswordLength {
		problems = append(problems, "must be at most 128 characters")
	}

	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a digit")
	}
	if _, ok := commonPasswords[strings.ToLower(p)]; ok {
		problems = append(problems, "is too common")
	}

	if len(problems) > 0 {
		return ErrWeakPassword.WithDetails(problems)
	}
	return nil
}
