package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
)

type authOptionsRepo struct {
	q queryer
}

const authOptionColumns = `id, user_id, two_step_verification, device_authenticator,
	otp_verification, otp, otp_expires_at, totp_secret,
	created_at, updated_at, created_by, updated_by`

func scanAuthOption(row interface{ Scan(...any) error }) (domain.AuthOption, error) {
	var (
		a          domain.AuthOption
		otp        sql.NullString
		otpExpires sql.NullTime
		totpSecret sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.TwoStepVerification, &a.DeviceAuthenticator,
		&a.OTPVerification, &otp, &otpExpires, &totpSecret,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy,
	)
	if err != nil {
		return domain.AuthOption{}, err
	}
	a.OTP = mapNullStringPtr(otp)
	a.OTPExpiresAt = mapNullTimePtr(otpExpires)
	a.TOTPSecret = mapNullStringPtr(totpSecret)
	return a, nil
}

func (r *authOptionsRepo) GetByUserID(ctx context.Context, userID string) (domain.AuthOption, error) {
	a, err := scanAuthOption(r.q.QueryRowContext(ctx,
		`SELECT `+authOptionColumns+` FROM auth_options WHERE user_id = ?`, userID))
	return a, mapNotFound(err)
}

// GetActiveByOTP matches the exact outstanding code, restricted to active
// users. Expiry is checked by the caller so an expired match can be reported
// distinctly from no match.
func (r *authOptionsRepo) GetActiveByOTP(ctx context.Context, code string) (domain.AuthOption, error) {
	a, err := scanAuthOption(r.q.QueryRowContext(ctx, `
		SELECT `+prefixColumns("ao", authOptionColumns)+`
		FROM auth_options ao
		JOIN users u ON u.id = ao.user_id
		WHERE ao.otp = ? AND u.active = 1`, code))
	return a, mapNotFound(err)
}

func (r *authOptionsRepo) CreateAuthOption(ctx context.Context, a domain.AuthOption) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO auth_options (id, user_id, two_step_verification, device_authenticator,
			otp_verification, otp, otp_expires_at, totp_secret,
			created_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.TwoStepVerification, a.DeviceAuthenticator,
		a.OTPVerification, mapOptionalString(a.OTP), mapOptionalTime(a.OTPExpiresAt),
		mapOptionalString(a.TOTPSecret),
		a.CreatedAt, a.UpdatedAt, a.CreatedBy, a.UpdatedBy,
	)
	return mapConstraint(err)
}

func (r *authOptionsRepo) UpdateFlags(ctx context.Context, a domain.AuthOption) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auth_options
		SET two_step_verification = ?, device_authenticator = ?, otp_verification = ?,
			updated_at = ?, updated_by = ?
		WHERE id = ?`,
		a.TwoStepVerification, a.DeviceAuthenticator, a.OTPVerification,
		time.Now().UTC(), a.UpdatedBy, a.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *authOptionsRepo) SetOTP(ctx context.Context, optionID, code string, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auth_options SET otp = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?`,
		code, expiresAt, time.Now().UTC(), optionID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeOTP clears the code only when it still matches. Rows-affected 0
// means a concurrent verify already consumed it.
func (r *authOptionsRepo) ConsumeOTP(ctx context.Context, optionID, code string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auth_options
		SET otp = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE id = ? AND otp = ?`,
		time.Now().UTC(), optionID, code,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *authOptionsRepo) SetTOTPSecret(ctx context.Context, optionID string, secret *string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE auth_options SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(secret), time.Now().UTC(), optionID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *authOptionsRepo) ClearExpiredOTPs(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE auth_options
		SET otp = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE otp IS NOT NULL AND otp_expires_at < ?`,
		time.Now().UTC(), cutoff,
	)
	return err
}
