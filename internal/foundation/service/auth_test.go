package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)
	svc := &AuthService{Store: st, Tokens: tokens}

	seedUser(t, st, "alice@example.com", "correct horse battery")

	t.Run("issues tokens when two-step is not configured", func(t *testing.T) {
		result, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
		require.NoError(t, err)
		require.True(t, result.Authenticated())
		require.Nil(t, result.Challenge)
		require.NotEmpty(t, result.Tokens.AccessToken)
		require.NotEmpty(t, result.Tokens.RefreshToken)
		require.NotNil(t, result.User.LastLoginAt)
	})

	t.Run("email match is case-insensitive", func(t *testing.T) {
		result, err := svc.Login(ctx, "ALICE@Example.COM", "correct horse battery")
		require.NoError(t, err)
		require.True(t, result.Authenticated())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		disabled := seedUser(t, st, "bob@example.com", "correct horse battery")
		disabled.Active = false
		require.NoError(t, st.Users().UpdateUser(ctx, disabled))

		_, err := svc.Login(ctx, "bob@example.com", "correct horse battery")
		require.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("two-step enabled returns a challenge without tokens", func(t *testing.T) {
		carol := seedUser(t, st, "carol@example.com", "correct horse battery")
		seedAuthOption(t, st, carol.ID, true, false, true)

		result, err := svc.Login(ctx, "carol@example.com", "correct horse battery")
		require.NoError(t, err)
		require.False(t, result.Authenticated())
		require.Nil(t, result.Tokens)
		require.NotNil(t, result.Challenge)
		require.True(t, result.Challenge.TwoStepVerification)
		require.True(t, result.Challenge.OTPVerification)
		require.False(t, result.Challenge.DeviceAuthenticator)
	})

	t.Run("two-step disabled on existing record goes straight through", func(t *testing.T) {
		dave := seedUser(t, st, "dave@example.com", "correct horse battery")
		seedAuthOption(t, st, dave.ID, false, false, true)

		result, err := svc.Login(ctx, "dave@example.com", "correct horse battery")
		require.NoError(t, err)
		require.True(t, result.Authenticated())
	})
}
