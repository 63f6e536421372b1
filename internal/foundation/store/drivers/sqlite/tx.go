package sqlite

import (
	"context"
	"database/sql"

	"github.com/cobaltgrid/foundation/internal/foundation/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open

// Ping is a no-op inside a transaction.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // applied before any tx starts

func (t *txStore) Users() store.Users                     { return &usersRepo{q: t.tx} }
func (t *txStore) Roles() store.Roles                     { return &rolesRepo{q: t.tx} }
func (t *txStore) AuthOptions() store.AuthOptions         { return &authOptionsRepo{q: t.tx} }
func (t *txStore) Menus() store.Menus                     { return &menusRepo{q: t.tx} }
func (t *txStore) MenuActions() store.MenuActions         { return &menuActionsRepo{q: t.tx} }
func (t *txStore) RolePermissions() store.RolePermissions { return &rolePermissionsRepo{q: t.tx} }
func (t *txStore) UserPermissions() store.UserPermissions { return &userPermissionsRepo{q: t.tx} }
func (t *txStore) Currencies() store.Currencies           { return &currenciesRepo{q: t.tx} }
func (t *txStore) CurrencyRates() store.CurrencyRates     { return &currencyRatesRepo{q: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens     { return &refreshTokensRepo{q: t.tx} }
func (t *txStore) PasswordResets() store.PasswordResets   { return &passwordResetsRepo{q: t.tx} }
