package domain

import "time"

// RolePermission grants a set of menu actions to every user of a role.
// One row per (role, menu) pair.
type RolePermission struct {
	ID        string
	RoleID    string
	MenuID    string
	ActionIDs []string // ordered as granted
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// UserPermissionGroup names a set of users receiving extra grants beyond
// their role.
type UserPermissionGroup struct {
	ID        string
	Name      string // unique
	UserIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// UserPermissionGrant grants a set of menu actions to a group. One row per
// (group, menu) pair.
type UserPermissionGrant struct {
	ID        string
	GroupID   string
	MenuID    string
	ActionIDs []string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// Grant is a resolved permission on one menu, the unit the aggregator
// merges.
type Grant struct {
	MenuID    string
	ActionIDs []string
}

// EffectivePermission is the per-menu union of role and user grants,
// resolved for presentation.
type EffectivePermission struct {
	Menu    Menu
	Actions []MenuAction
}
