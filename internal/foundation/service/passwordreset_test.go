package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)
	auth := &AuthService{Store: st, Tokens: tokens}

	capture := &captureEnqueuer{}
	svc := &PasswordResetService{
		Store:    st,
		Tokens:   tokens,
		Dispatch: capture,
		LinkBase: "https://app.test/reset",
	}

	user := seedUser(t, st, "alice@example.com", "old password 123")

	// extractToken pulls the raw token back out of the emailed link.
	extractToken := func(t *testing.T, body string) string {
		t.Helper()
		_, after, found := strings.Cut(body, "?token=")
		require.True(t, found, "mail body carries the reset link")
		return strings.TrimSuffix(after, "</p>")
	}

	t.Run("request emails a single-use link", func(t *testing.T) {
		require.NoError(t, svc.Request(ctx, "alice@example.com"))
		require.Len(t, capture.messages, 1)
		require.Equal(t, user.Email, capture.messages[0].Recipient)
		require.Contains(t, capture.messages[0].Body, "https://app.test/reset?token=")
	})

	t.Run("unknown email is silently accepted", func(t *testing.T) {
		require.NoError(t, svc.Request(ctx, "nobody@example.com"))
		require.Len(t, capture.messages, 1)
	})

	t.Run("confirm swaps the password and kills sessions", func(t *testing.T) {
		pair, err := tokens.IssueTokens(ctx, user, []string{"pwd"})
		require.NoError(t, err)

		token := extractToken(t, capture.messages[0].Body)
		require.NoError(t, svc.Confirm(ctx, token, "brand new password"))

		_, err = auth.CheckCredentials(ctx, "alice@example.com", "old password 123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = auth.CheckCredentials(ctx, "alice@example.com", "brand new password")
		require.NoError(t, err)

		_, err = tokens.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)

		// Single use.
		require.ErrorIs(t, svc.Confirm(ctx, token, "another password x"), ErrInvalidResetToken)
	})

	t.Run("weak replacement password rejected", func(t *testing.T) {
		require.ErrorIs(t, svc.Confirm(ctx, "whatever", "short"), ErrWeakPassword)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expiring := &PasswordResetService{
			Store:    st,
			Tokens:   tokens,
			Dispatch: capture,
			TTL:      time.Nanosecond,
			LinkBase: "https://app.test/reset",
		}
		require.NoError(t, expiring.Request(ctx, "alice@example.com"))

		token := extractToken(t, capture.messages[len(capture.messages)-1].Body)
		time.Sleep(10 * time.Millisecond)
		require.ErrorIs(t, svc.Confirm(ctx, token, "brand new password"), ErrInvalidResetToken)
	})

	t.Run("inactive account cannot request", func(t *testing.T) {
		disabled := seedUser(t, st, "bob@example.com", "old password 123")
		disabled.Active = false
		require.NoError(t, st.Users().UpdateUser(ctx, disabled))

		require.ErrorIs(t, svc.Request(ctx, "bob@example.com"), ErrAccountInactive)
	})
}
