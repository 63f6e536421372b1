package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// DefaultResetTTL is how long a reset link stays valid.
const DefaultResetTTL = 30 * time.Minute

// PasswordResetService issues single-use reset tokens and applies new
// passwords. Tokens are stored only as fingerprints.
type PasswordResetService struct {
	Store    store.Store
	Tokens   *TokenService
	Dispatch Enqueuer
	TTL      time.Duration
	LinkBase string // e.g. https://app.example.com/reset
}

func (s *PasswordResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultResetTTL
}

// Request creates a reset token for an active account and emails the link.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email", ErrRequiredField)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Do not leak which emails exist.
			slogx.FromContext(ctx).Info("password reset for unknown email")
			return nil
		}
		return err
	}
	if !user.Active {
		return ErrAccountInactive
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordReset{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	return s.Dispatch.Enqueue(notify.Message{
		Channel:   notify.ChannelEmail,
		Recipient: user.Email,
		Subject:   "Reset your password",
		Body: fmt.Sprintf("<p>Use this link to reset your password: %s?token=%s</p>",
			s.LinkBase, token),
	})
}

// Confirm consumes the token, updates the hash, and revokes every session of
// the user.
func (s *PasswordResetService) Confirm(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("%w: token", ErrRequiredField)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, minPasswordLength)
	}
	if allNumeric(newPassword) {
		return fmt.Errorf("%w: entirely numeric", ErrWeakPassword)
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	fingerprint := cryptox.FingerprintToken(token)
	now := time.Now().UTC()

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		reset, err := tx.PasswordResets().GetActivePasswordResetByHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}

		if err := tx.PasswordResets().MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, reset.UserID, hash, reset.UserID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, reset.UserID)
	})
}
