// Package models holds the persistence-level types shared by repositories
// and services.
package models

import (
	"fmt"
	"time"
)

// Role is the single authority a user holds. It is a closed set: unknown
// values are rejected at the persistence boundary instead of being carried
// around as arbitrary strings.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a stored role value.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Enabled      bool
	Role         Role
	CreatedAt    time.Time
}
