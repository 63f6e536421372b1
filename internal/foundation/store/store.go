package store

import (
	"context"
	"errors"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrReferenced is returned when deleting reference data that other
	// records still point at.
	ErrReferenced = errors.New("store: row is referenced")
)

// Store is the root data access interface. Concrete drivers implement it.
// Sub-repositories are exposed as methods so transactional and plain access
// share one surface.
type Store interface {
	Users() Users
	Roles() Roles
	AuthOptions() AuthOptions
	Menus() Menus
	MenuActions() MenuActions
	RolePermissions() RolePermissions
	UserPermissions() UserPermissions
	Currencies() Currencies
	CurrencyRates() CurrencyRates
	RefreshTokens() RefreshTokens
	PasswordResets() PasswordResets

	ApplyMigrations() error

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Multi-step writes (delete with
	// reference check, OTP consumption, registration) must go through it.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts a new user (id provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	UpdateUser(ctx context.Context, u domain.User) error
	UpdatePasswordHash(ctx context.Context, userID, newHash, updatedBy string) error

	// StampLastLogin sets last_login_at to now.
	StampLastLogin(ctx context.Context, userID string, at time.Time) error

	// DeleteUser cascades to auth_options, refresh_tokens and password_resets.
	DeleteUser(ctx context.Context, userID string) error

	// CountByRole reports how many users reference a role.
	CountByRole(ctx context.Context, roleID string) (int, error)
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoles returns all roles; signupOnly restricts to those offered on
	// the public registration form.
	ListRoles(ctx context.Context, signupOnly bool) ([]domain.Role, error)

	CreateRole(ctx context.Context, r domain.Role) error
	UpdateRole(ctx context.Context, r domain.Role) error
	DeleteRole(ctx context.Context, roleID string) error
}

type AuthOptions interface {
	GetByUserID(ctx context.Context, userID string) (domain.AuthOption, error)

	// GetActiveByOTP finds the auth record holding the exact outstanding
	// code, restricted to active users.
	GetActiveByOTP(ctx context.Context, code string) (domain.AuthOption, error)

	CreateAuthOption(ctx context.Context, a domain.AuthOption) error
	UpdateFlags(ctx context.Context, a domain.AuthOption) error

	// SetOTP stores a freshly issued code and its expiry.
	SetOTP(ctx context.Context, optionID, code string, expiresAt time.Time) error

	// ConsumeOTP clears the code only if it still matches, reporting whether
	// this call won. Concurrent verifies of one code serialize here.
	ConsumeOTP(ctx context.Context, optionID, code string) (bool, error)

	SetTOTPSecret(ctx context.Context, optionID string, secret *string) error

	// ClearExpiredOTPs is housekeeping for codes expired before cutoff.
	ClearExpiredOTPs(ctx context.Context, cutoff time.Time) error
}

type Menus interface {
	GetMenuByID(ctx context.Context, id string) (domain.Menu, error)
	ListMenus(ctx context.Context) ([]domain.Menu, error)
	CreateMenu(ctx context.Context, m domain.Menu) error
	UpdateMenu(ctx context.Context, m domain.Menu) error
	DeleteMenu(ctx context.Context, id string) error

	// CountChildren reports direct child menus, part of delete protection.
	CountChildren(ctx context.Context, id string) (int, error)
}

type MenuActions interface {
	GetMenuActionByID(ctx context.Context, id string) (domain.MenuAction, error)
	ListMenuActions(ctx context.Context) ([]domain.MenuAction, error)
	CreateMenuAction(ctx context.Context, a domain.MenuAction) error
	UpdateMenuAction(ctx context.Context, a domain.MenuAction) error
	DeleteMenuAction(ctx context.Context, id string) error
}

type RolePermissions interface {
	ListByRole(ctx context.Context, roleID string) ([]domain.RolePermission, error)

	// UpsertRolePermission replaces the action set for a (role, menu) pair.
	UpsertRolePermission(ctx context.Context, p domain.RolePermission) error

	DeleteRolePermission(ctx context.Context, roleID, menuID string) error
	DeleteByRole(ctx context.Context, roleID string) error

	// Reference counts backing protect-on-delete for menus and actions.
	CountByMenu(ctx context.Context, menuID string) (int, error)
	CountByAction(ctx context.Context, actionID string) (int, error)
}

type UserPermissions interface {
	GetGroupByID(ctx context.Context, id string) (domain.UserPermissionGroup, error)
	ListGroups(ctx context.Context) ([]domain.UserPermissionGroup, error)
	CreateGroup(ctx context.Context, g domain.UserPermissionGroup) error
	UpdateGroup(ctx context.Context, g domain.UserPermissionGroup) error
	DeleteGroup(ctx context.Context, id string) error

	ListGrantsByGroup(ctx context.Context, groupID string) ([]domain.UserPermissionGrant, error)

	// ListGrantsForUser resolves grants of every group the user belongs to.
	ListGrantsForUser(ctx context.Context, userID string) ([]domain.UserPermissionGrant, error)

	UpsertGrant(ctx context.Context, g domain.UserPermissionGrant) error
	DeleteGrant(ctx context.Context, groupID, menuID string) error

	CountByMenu(ctx context.Context, menuID string) (int, error)
	CountByAction(ctx context.Context, actionID string) (int, error)
}

type Currencies interface {
	GetCurrencyByID(ctx context.Context, id string) (domain.Currency, error)
	GetCurrencyByCode(ctx context.Context, code string) (domain.Currency, error)
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
	CreateCurrency(ctx context.Context, c domain.Currency) error
	UpdateCurrency(ctx context.Context, c domain.Currency) error
	DeleteCurrency(ctx context.Context, id string) error

	// ClearDefault unsets is_default on every row, keeping the
	// single-default invariant when another row claims it.
	ClearDefault(ctx context.Context, updatedBy string) error
}

type CurrencyRates interface {
	GetRateByID(ctx context.Context, id string) (domain.CurrencyRate, error)
	ListRates(ctx context.Context) ([]domain.CurrencyRate, error)
	CreateRate(ctx context.Context, r domain.CurrencyRate) error
	DeleteRate(ctx context.Context, id string) error

	// LatestRate returns the row with the greatest effective_at not after
	// asOf for the exact (from, to) pair, ties broken by highest id.
	LatestRate(ctx context.Context, fromID, toID string, asOf time.Time) (domain.CurrencyRate, error)

	// CountByCurrency reports rows referencing a currency on either side.
	CountByCurrency(ctx context.Context, currencyID string) (int, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, p domain.PasswordReset) error

	// GetActivePasswordResetByHash returns a not-used, not-expired record.
	GetActivePasswordResetByHash(ctx context.Context, hash string) (domain.PasswordReset, error)

	MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error
	DeleteExpiredPasswordResets(ctx context.Context) error
}
