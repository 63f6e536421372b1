package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type passwordResetsRepo struct {
	q queryer
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, p domain.PasswordReset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.TokenHash, p.ExpiresAt, mapOptionalTime(p.UsedAt), p.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *passwordResetsRepo) GetActivePasswordResetByHash(ctx context.Context, hash string) (domain.PasswordReset, error) {
	var (
		p      domain.PasswordReset
		usedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		hash, time.Now().UTC(),
	).Scan(&p.ID, &p.UserID, &p.TokenHash, &p.ExpiresAt, &usedAt, &p.CreatedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}
	p.UsedAt = mapNullTimePtr(usedAt)
	return p, nil
}

func (r *passwordResetsRepo) MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *passwordResetsRepo) DeleteExpiredPasswordResets(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ?`, time.Now().UTC())
	return err
}
