package domain

import "time"

// Role is the user type assigned to an account. Roles flagged
// VisibleInSignup are offered on the public registration form.
type Role struct {
	ID              string
	Name            string // unique
	VisibleInSignup bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CreatedBy       string
	UpdatedBy       string
}
