// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUserIDTooLong   = errors.New("user id too long")
)

type UserID string

// Identity is what a connection declares about itself on join/start.
// Nothing verifies it; several connections may claim the same UserID.
type Identity struct {
	UserID UserID `json:"userId"`
	Name   string `json:"userName"`
}

// NewIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewIdentity(id, name string) (Identity, error) {
	if len(id) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	if len(name) > MaxUsernameLen {
		return Identity{}, ErrUsernameTooLong
	}
	return Identity{UserID: UserID(id), Name: name}, nil
}
