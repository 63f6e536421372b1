package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	identity domain.ExternalIdentity
	err      error
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	return p.identity, p.err
}

func TestSocialLogin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)

	google := &stubProvider{identity: domain.ExternalIdentity{
		Provider: domain.ProviderGoogle,
		Subject:  "google-sub-1",
		Email:    "Alice@Example.com",
		Name:     "Alice",
	}}
	svc := &SocialLoginService{
		Providers: map[domain.SocialProvider]Provider{domain.ProviderGoogle: google},
		Store:     st,
		Tokens:    tokens,
		Dispatch:  &captureEnqueuer{},
	}

	t.Run("first login creates the account", func(t *testing.T) {
		result, err := svc.Login(ctx, domain.ProviderGoogle, "auth-code")
		require.NoError(t, err)
		require.True(t, result.Authenticated())
		require.Equal(t, "alice@example.com", result.User.Email)
		require.Empty(t, result.User.PasswordHash)
	})

	t.Run("second login reuses the account", func(t *testing.T) {
		first, err := st.Users().GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)

		result, err := svc.Login(ctx, domain.ProviderGoogle, "auth-code")
		require.NoError(t, err)
		require.Equal(t, first.ID, result.User.ID)
	})

	t.Run("matches an existing password account by email", func(t *testing.T) {
		existing := seedUser(t, st, "carol@example.com", "correct horse battery")
		google.identity = domain.ExternalIdentity{
			Provider: domain.ProviderGoogle,
			Subject:  "google-sub-2",
			Email:    "carol@example.com",
		}

		result, err := svc.Login(ctx, domain.ProviderGoogle, "auth-code")
		require.NoError(t, err)
		require.Equal(t, existing.ID, result.User.ID)
	})

	t.Run("exchange failure maps to invalid credentials", func(t *testing.T) {
		google.err = errors.New("provider said no")
		t.Cleanup(func() { google.err = nil })

		_, err := svc.Login(ctx, domain.ProviderGoogle, "auth-code")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.ProviderApple, "auth-code")
		require.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("disabled account stays locked out", func(t *testing.T) {
		user, err := st.Users().GetUserByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		user.Active = false
		require.NoError(t, st.Users().UpdateUser(ctx, user))

		_, err = svc.Login(ctx, domain.ProviderGoogle, "auth-code")
		require.ErrorIs(t, err, ErrAccountDisabled)
	})
}
