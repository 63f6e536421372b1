package service

import (
	"context"
	"errors"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/pquerna/otp/totp"
)

// TOTPService handles the device-authenticator factor: enrolling an
// authenticator app and verifying its codes during the two-step flow.
type TOTPService struct {
	Store  store.Store
	Auth   *AuthService
	Issuer string
}

// Enroll generates a fresh TOTP secret for an authenticated user and stores
// it on their auth record. The returned otpauth URL feeds a QR code.
func (s *TOTPService) Enroll(ctx context.Context, userID string) (*domain.TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	opt, err := s.Store.AuthOptions().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, err
	}

	secret := key.Secret()
	if err := s.Store.AuthOptions().SetTOTPSecret(ctx, opt.ID, &secret); err != nil {
		return nil, err
	}

	return &domain.TOTPEnrollment{
		Secret:  secret,
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Email,
	}, nil
}

// Verify completes a device-authenticator challenge: credentials are
// re-checked, then the code is validated against the stored secret.
func (s *TOTPService) Verify(ctx context.Context, email, password, code string) (*domain.LoginResult, error) {
	user, err := s.Auth.CheckCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}

	opt, err := s.Store.AuthOptions().GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	if !opt.DeviceAuthenticator || opt.TOTPSecret == nil {
		return nil, ErrInvalidOTP
	}

	if !totp.Validate(code, *opt.TOTPSecret) {
		return nil, ErrInvalidOTP
	}

	return s.Auth.finishLogin(ctx, user, []string{"pwd", "totp"})
}
