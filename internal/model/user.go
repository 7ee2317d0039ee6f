package model

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a file owner. BlockedCountries is the owner-global geofence list;
// it is unioned with each file's own list at evaluation time.
type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Role             Role       `db:"role"`
	BlockedCountries StringList `db:"blocked_countries"`
	CreatedAt        time.Time  `db:"created_at"`
}
