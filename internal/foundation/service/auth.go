package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// TokenIssuer is the capability the login flow uses to mint tokens once a
// user is fully authenticated.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, user domain.User, amr []string) (*domain.TokenPair, error)
}

// AuthService drives the two-step login flow: password check first, then
// either immediate token issuance or a second-factor challenge.
type AuthService struct {
	Store  store.Store
	Tokens TokenIssuer
}

// Login validates credentials and decides between issuing tokens and
// returning a challenge. Tokens and challenge are mutually exclusive.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	user, err := s.CheckCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	opt, err := s.Store.AuthOptions().GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// No configuration, or two-step switched off: straight to tokens.
	if errors.Is(err, store.ErrNotFound) || !opt.TwoStepVerification {
		return s.finishLogin(ctx, user, []string{"pwd"})
	}

	slogx.FromContext(ctx).Info("login requires second factor",
		slog.String("user_id", user.ID),
	)
	return &domain.LoginResult{
		User: &user,
		Challenge: &domain.Challenge{
			TwoStepVerification: true,
			DeviceAuthenticator: opt.DeviceAuthenticator,
			OTPVerification:     opt.OTPVerification,
		},
	}, nil
}

// CheckCredentials verifies email+password and account state without
// advancing the flow. OTP issue re-uses it.
func (s *AuthService) CheckCredentials(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so missing users cost the same as
			// wrong passwords.
			_ = cryptox.VerifyPassword(password, dummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if user.PasswordHash == "" || cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		log.Info("password verification failed", slog.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.Active {
		return domain.User{}, ErrAccountDisabled
	}
	return user, nil
}

// finishLogin stamps last-login and issues the token pair.
func (s *AuthService) finishLogin(ctx context.Context, user domain.User, amr []string) (*domain.LoginResult, error) {
	now := time.Now().UTC()
	if err := s.Store.Users().StampLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	tokens, err := s.Tokens.IssueTokens(ctx, user, amr)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{User: &user, Tokens: tokens}, nil
}

// dummyHash is a valid argon2id hash of an unguessable value, used to
// equalize timing when the account does not exist.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$nQfocvEmWDWmZpQ4b3wF9doU/X2PbCBwdvUqMNpMiiA"
