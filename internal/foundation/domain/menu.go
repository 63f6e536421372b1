package domain

import "time"

// Menu is a navigation node. Menus are reference data: deletion is blocked
// while any permission record references them.
type Menu struct {
	ID                   string
	Name                 string // unique
	Slug                 string // derived from Name
	URL                  string
	ParentID             *string // nullable self reference
	Depth                int
	SortOrder            int
	VisibleAuthenticated bool
	VisibleAnonymous     bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CreatedBy            string
	UpdatedBy            string
}

// MenuAction is an operation that can be granted on a menu, such as "view"
// or "delete". Reference data with the same delete protection as Menu.
type MenuAction struct {
	ID        string
	Code      string // unique short code
	CSSClass  string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}
