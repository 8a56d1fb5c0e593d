// Package validate holds the pre-network form checks. A failed check
// never produces an API call.
package validate

import (
	"regexp"
	"strings"
)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 6

// FieldError points an error message at the offending form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email reports whether s looks like a well-formed address.
func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Login checks the sign-in form.
func Login(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &FieldError{Field: "password", Message: "Заполните все поля"}
	}
	return nil
}

// Registration checks the sign-up form. Checks run in the same order
// the form surfaces them: required fields, confirmation match, length,
// email shape.
func Registration(username, email, password, passwordConfirm string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" || passwordConfirm == "" {
		return &FieldError{Field: "password", Message: "Заполните все поля"}
	}
	if password != passwordConfirm {
		return &FieldError{Field: "password_confirm", Message: "Пароли не совпадают"}
	}
	if len([]rune(password)) < MinPasswordLen {
		return &FieldError{Field: "password", Message: "Пароль должен быть не менее 6 символов"}
	}
	if !Email(email) {
		return &FieldError{Field: "email", Message: "Введите корректный email"}
	}
	return nil
}
