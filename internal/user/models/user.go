package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "authgate/pkg/domain-errors"
)

// User is an authenticated principal. Only the hash of the password is kept.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
}

// Credentials is the sign-in payload posted to the authenticate endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Normalize trims the username. Passwords are compared verbatim.
func (c *Credentials) Normalize() {
	c.Username = strings.TrimSpace(c.Username)
}

// Validate rejects credentials missing either field.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	if c.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	return nil
}
