package service

import (
	"context"
	"testing"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)

	capture := &captureEnqueuer{}
	svc := &RegistrationService{Store: st, Tokens: tokens, Dispatch: capture}

	t.Run("creates the account and logs it in", func(t *testing.T) {
		result, err := svc.Register(ctx, RegisterRequest{
			Email:    "Alice@Example.com",
			Name:     "Alice",
			Password: "correct horse battery",
		})
		require.NoError(t, err)
		require.True(t, result.Authenticated())
		require.Equal(t, "alice@example.com", result.User.Email)
		require.Equal(t, domain.LanguageEnglish, result.User.Language)

		// Welcome mail enqueued after commit.
		require.NotEmpty(t, capture.messages)
		require.Equal(t, "alice@example.com", capture.messages[len(capture.messages)-1].Recipient)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "ALICE@example.com",
			Name:     "Alice Again",
			Password: "correct horse battery",
		})
		require.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Password: "correct horse battery"})
		require.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "short"})
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("entirely numeric password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "b@example.com", Password: "12345678901"})
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("two-step requires at least one factor", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{
			Email:               "b@example.com",
			Password:            "correct horse battery",
			TwoStepVerification: true,
		})
		require.ErrorIs(t, err, ErrTwoStepConfig)
	})

	t.Run("two-step config is stored alongside the user", func(t *testing.T) {
		result, err := svc.Register(ctx, RegisterRequest{
			Email:               "carol@example.com",
			Name:                "Carol",
			Password:            "correct horse battery",
			TwoStepVerification: true,
			OTPVerification:     true,
		})
		require.NoError(t, err)

		opt, err := st.AuthOptions().GetByUserID(ctx, result.User.ID)
		require.NoError(t, err)
		require.True(t, opt.TwoStepVerification)
		require.True(t, opt.OTPVerification)
		require.False(t, opt.DeviceAuthenticator)
	})

	t.Run("unknown role id rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "dave@example.com",
			Password: "correct horse battery",
			RoleID:   "no-such-role",
		})
		require.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("unsupported language falls back to english", func(t *testing.T) {
		result, err := svc.Register(ctx, RegisterRequest{
			Email:    "eve@example.com",
			Password: "correct horse battery",
			Language: "xx",
		})
		require.NoError(t, err)
		require.Equal(t, domain.LanguageEnglish, result.User.Language)
	})
}
