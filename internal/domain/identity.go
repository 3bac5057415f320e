// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const (
	MaxUserNameLen = 36
)

var (
	ErrUserNameEmpty   = errors.New("user name empty")
	ErrUserNameTooLong = errors.New("user name too long")
)

type (
	UserID   string
	UserName string
)

// Identity is a read-only snapshot owned by the user directory.
// The core holds it by value and never mutates it.
type Identity struct {
	ID          UserID   `json:"id"`
	UserName    UserName `json:"userName"`
	DisplayName string   `json:"displayName"`
	AvatarRef   string   `json:"avatarRef,omitempty"`
}

func ValidateUserName(name UserName) error {
	if len(name) == 0 {
		return ErrUserNameEmpty
	}
	if len(name) > MaxUserNameLen {
		return ErrUserNameTooLong
	}
	return nil
}
