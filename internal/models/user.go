package models

import "time"

// Role names, ordered from least to most privileged
const (
	RoleViewer  = "viewer"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// RoleRank orders roles so that a check for "manager" admits admins too
var RoleRank = map[string]int{
	RoleViewer:  1,
	RoleManager: 2,
	RoleAdmin:   3,
}

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) Identity() string    { return u.Username }
func (u *User) Touch(now time.Time) { u.UpdatedAt = now }

// Public is the user without its password hash
func (u User) Public() map[string]interface{} {
	return map[string]interface{}{
		"username":  u.Username,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}
