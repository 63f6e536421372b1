package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTOTP(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)
	auth := &AuthService{Store: st, Tokens: tokens}
	svc := &TOTPService{Store: st, Auth: auth, Issuer: "foundation"}

	user := seedUser(t, st, "alice@example.com", "correct horse battery")
	seedAuthOption(t, st, user.ID, true, true, false)

	enrollment, err := svc.Enroll(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://")

	t.Run("valid authenticator code finishes the login", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		result, err := svc.Verify(ctx, "alice@example.com", "correct horse battery", code)
		require.NoError(t, err)
		require.True(t, result.Authenticated())
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice@example.com", "correct horse battery", "000000")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("wrong password never reaches code validation", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "alice@example.com", "wrong", code)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("user without a secret cannot verify", func(t *testing.T) {
		bob := seedUser(t, st, "bob@example.com", "correct horse battery")
		seedAuthOption(t, st, bob.ID, true, true, false)

		_, err := svc.Verify(ctx, "bob@example.com", "correct horse battery", "123456")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})
}
