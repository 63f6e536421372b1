package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/idx"
	"github.com/cobaltgrid/foundation/pkg/jwtx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// TokenService mints access/refresh pairs and handles rotation and
// revocation. Access tokens are EdDSA JWTs; refresh tokens are opaque
// 256-bit values stored only as SHA-256 fingerprints.
type TokenService struct {
	Signer     jwtx.Signer
	Store      store.Store
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueTokens creates a fresh session for an authenticated user. amr records
// how the user authenticated.
func (s *TokenService) IssueTokens(ctx context.Context, user domain.User, amr []string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	sessionID := idx.New().String()

	userType, scopes, err := s.resolveRole(ctx, user)
	if err != nil {
		return nil, err
	}

	access, err := s.Signer.Sign(jwtx.NewAccessClaims(
		user.ID, sessionID,
		scopes, amr,
		s.AccessTTL,
		s.Issuer, s.Audience,
		user.Email, userType,
		now,
	))
	if err != nil {
		return nil, err
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		SessionID: sessionID,
		AMR:       amr,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued under the same session ID.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	hash := cryptox.FingerprintToken(refreshToken)

	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if record.Revoked || now.After(record.ExpiresAt) {
			return ErrInvalidRefresh
		}

		user, err := tx.Users().GetUserByID(ctx, record.UserID)
		if err != nil {
			return err
		}
		if !user.Active {
			return ErrAccountDisabled
		}

		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
			return err
		}

		userType, scopes, err := s.resolveRoleTx(ctx, tx, user)
		if err != nil {
			return err
		}

		access, err := s.Signer.Sign(jwtx.NewAccessClaims(
			user.ID, record.SessionID,
			scopes, record.AMR,
			s.AccessTTL,
			s.Issuer, s.Audience,
			user.Email, userType,
			now,
		))
		if err != nil {
			return err
		}

		next, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    user.ID,
			TokenHash: cryptox.FingerprintToken(next),
			SessionID: record.SessionID,
			AMR:       record.AMR,
			ExpiresAt: now.Add(s.RefreshTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		pair = &domain.TokenPair{
			AccessToken:  access,
			RefreshToken: next,
			TokenType:    "Bearer",
			ExpiresIn:    s.AccessTTL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Revoke invalidates one refresh token (logout).
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(refreshToken))
	if errors.Is(err, store.ErrNotFound) {
		// Revoking an unknown token is not an error worth surfacing.
		slogx.FromContext(ctx).Debug("revoke of unknown refresh token")
		return nil
	}
	return err
}

// RevokeAll invalidates every session of a user, used after password resets.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}

func (s *TokenService) resolveRole(ctx context.Context, user domain.User) (string, []string, error) {
	return roleScopes(ctx, s.Store.Roles(), user)
}

func (s *TokenService) resolveRoleTx(ctx context.Context, tx store.Tx, user domain.User) (string, []string, error) {
	return roleScopes(ctx, tx.Roles(), user)
}

// roleScopes derives the user_type claim and scope list from the user's
// role. Users without a role get no scopes.
func roleScopes(ctx context.Context, roles store.Roles, user domain.User) (string, []string, error) {
	if user.RoleID == nil {
		return "", nil, nil
	}
	role, err := roles.GetRoleByID(ctx, *user.RoleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, nil
		}
		return "", nil, err
	}
	slug := strings.ToLower(strings.ReplaceAll(role.Name, " ", "-"))
	return slug, []string{slug}, nil
}
