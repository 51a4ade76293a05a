// Package validate checks registration and login fields, producing the
// error items the auth endpoints return as a 400 envelope.
package validate

import (
	"unicode"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
)

const (
	usernameMin = 3
	usernameMax = 32
	passwordMin = 6
	passwordMax = 32
)

// Username checks length bounds on a username.
func Username(username string) []apperr.Item {
	var errs []apperr.Item

	if username == "" {
		errs = append(errs, apperr.Item{Code: apperr.CodeUsernameRequired})
	}
	if len(username) < usernameMin {
		errs = append(errs, apperr.Item{Code: apperr.CodeUsernameTooShort, Details: map[string]int{"min": usernameMin}})
	}
	if len(username) > usernameMax {
		errs = append(errs, apperr.Item{Code: apperr.CodeUsernameTooLong, Details: map[string]int{"max": usernameMax}})
	}

	return errs
}

// Password checks length bounds and character-class strength.
func Password(password string) []apperr.Item {
	var errs []apperr.Item

	if password == "" {
		errs = append(errs, apperr.Item{Code: apperr.CodePasswordRequired})
	}
	if len(password) < passwordMin {
		errs = append(errs, apperr.Item{Code: apperr.CodePasswordTooShort, Details: map[string]int{"min": passwordMin}})
	}
	if len(password) > passwordMax {
		errs = append(errs, apperr.Item{Code: apperr.CodePasswordTooLong, Details: map[string]int{"max": passwordMax}})
	}

	var lower, upper, digit, special bool
	for _, c := range password {
		switch {
		case unicode.IsLower(c):
			lower = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		default:
			special = true
		}
	}
	if !(lower && upper && digit && special) {
		errs = append(errs, apperr.Item{Code: apperr.CodePasswordTooWeak, Details: map[string]bool{
			"number_required":            true,
			"special_character_required": true,
			"uppercase_required":         true,
			"lowercase_required":         true,
		}})
	}

	return errs
}

// ConfirmPassword checks that the confirmation matches.
func ConfirmPassword(password, confirm string) []apperr.Item {
	var errs []apperr.Item

	if confirm == "" {
		errs = append(errs, apperr.Item{Code: apperr.CodeConfirmPasswordRequired})
	}
	if password != confirm {
		errs = append(errs, apperr.Item{Code: apperr.CodePasswordConflict})
	}

	return errs
}
