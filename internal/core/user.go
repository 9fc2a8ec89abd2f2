package core

import (
	"net/mail"
	"strings"
)

const MinPasswordLength = 6

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if len(in.Name) > 100 {
		return invalid("name", "too long (max 100 characters)")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return invalid("email", "is not a valid address")
	}
	if in.Password == "" {
		return invalid("password", "is required")
	}
	if len(in.Password) < MinPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	return nil
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" {
		return invalid("email", "is required")
	}
	if in.Password == "" {
		return invalid("password", "is required")
	}
	return nil
}

// LoginResult is what a successful login returns to the client.
type LoginResult struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}
