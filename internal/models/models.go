package models

import "time"

// UserStatus represents the lifecycle state of a directory user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents a human in the directory store.
// ExternalID is the subject identifier from the linked SSO/identity system;
// it is the "linked identifier" that correlation rows may carry.
type User struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Name       *string    `json:"name,omitempty"`
	ExternalID *string    `json:"external_id,omitempty"`
	Team       *string    `json:"team,omitempty"`
	Role       string     `json:"role"`
	Status     UserStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DirectoryEntry is the projection of a user the identity resolver consumes:
// one row per user carrying the keys it can be looked up by and the display name.
type DirectoryEntry struct {
	LinkedID string // external SSO subject, may be empty
	Email    string
	Name     string
}
