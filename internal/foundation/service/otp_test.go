package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func TestOTPIssue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)
	auth := &AuthService{Store: st, Tokens: tokens}

	user := seedUser(t, st, "alice@example.com", "correct horse battery")
	seedAuthOption(t, st, user.ID, true, false, true)

	t.Run("persists a code and enqueues email delivery", func(t *testing.T) {
		capture := &captureEnqueuer{}
		svc := &OTPService{Store: st, Auth: auth, Dispatch: capture}

		require.NoError(t, svc.Issue(ctx, "alice@example.com", "correct horse battery", domain.OTPMethodEmail))

		stored, err := st.AuthOptions().GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.OTPPending())
		require.Len(t, *stored.OTP, 6)

		require.Len(t, capture.messages, 1)
		require.Equal(t, notify.ChannelEmail, capture.messages[0].Channel)
		require.Equal(t, user.Email, capture.messages[0].Recipient)
		require.Contains(t, capture.messages[0].Body, *stored.OTP)
	})

	t.Run("sms delivery goes to the phone number", func(t *testing.T) {
		capture := &captureEnqueuer{}
		svc := &OTPService{Store: st, Auth: auth, Dispatch: capture}

		require.NoError(t, svc.Issue(ctx, "alice@example.com", "correct horse battery", domain.OTPMethodSMS))
		require.Len(t, capture.messages, 1)
		require.Equal(t, notify.ChannelWhatsApp, capture.messages[0].Channel)
		require.Equal(t, user.Phone, capture.messages[0].Recipient)
	})

	t.Run("wrong password never issues a code", func(t *testing.T) {
		capture := &captureEnqueuer{}
		svc := &OTPService{Store: st, Auth: auth, Dispatch: capture}

		err := svc.Issue(ctx, "alice@example.com", "wrong", domain.OTPMethodEmail)
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.Empty(t, capture.messages)
	})

	t.Run("unknown delivery method", func(t *testing.T) {
		svc := &OTPService{Store: st, Auth: auth, Dispatch: &captureEnqueuer{}}

		err := svc.Issue(ctx, "alice@example.com", "correct horse battery", "carrier_pigeon")
		require.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("dispatch failure keeps the code in place", func(t *testing.T) {
		failing := &captureEnqueuer{fail: errors.New("queue full")}
		svc := &OTPService{Store: st, Auth: auth, Dispatch: failing}

		err := svc.Issue(ctx, "alice@example.com", "correct horse battery", domain.OTPMethodEmail)
		require.ErrorIs(t, err, ErrSendOTP)

		stored, err := st.AuthOptions().GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.OTPPending())
	})
}

func TestOTPVerify(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTestTokens(t, st)
	auth := &AuthService{Store: st, Tokens: tokens}
	svc := &OTPService{Store: st, Auth: auth, Dispatch: &captureEnqueuer{}}

	user := seedUser(t, st, "alice@example.com", "correct horse battery")
	opt := seedAuthOption(t, st, user.ID, true, false, true)

	setCode := func(t *testing.T, code string, expiresAt time.Time) {
		t.Helper()
		require.NoError(t, st.AuthOptions().SetOTP(ctx, opt.ID, code, expiresAt))
	}

	t.Run("valid code finishes the login", func(t *testing.T) {
		setCode(t, "123456", time.Now().UTC().Add(5*time.Minute))

		result, err := svc.Verify(ctx, "123456")
		require.NoError(t, err)
		require.True(t, result.Authenticated())
		require.Equal(t, user.ID, result.User.ID)

		stored, err := st.AuthOptions().GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, stored.OTPPending())
	})

	t.Run("a code verifies at most once", func(t *testing.T) {
		setCode(t, "222222", time.Now().UTC().Add(5*time.Minute))

		_, err := svc.Verify(ctx, "222222")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, "222222")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("expired code reports expiry and is not cleared", func(t *testing.T) {
		setCode(t, "333333", time.Now().UTC().Add(-time.Second))

		_, err := svc.Verify(ctx, "333333")
		require.ErrorIs(t, err, ErrOTPExpired)

		stored, err := st.AuthOptions().GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.OTPPending())

		_, err = svc.Verify(ctx, "333333")
		require.ErrorIs(t, err, ErrOTPExpired)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.Verify(ctx, "999999")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("empty code", func(t *testing.T) {
		_, err := svc.Verify(ctx, "")
		require.ErrorIs(t, err, ErrRequiredField)
	})

	t.Run("consume is an atomic compare-and-clear", func(t *testing.T) {
		setCode(t, "444444", time.Now().UTC().Add(5*time.Minute))

		won, err := st.AuthOptions().ConsumeOTP(ctx, opt.ID, "444444")
		require.NoError(t, err)
		require.True(t, won)

		won, err = st.AuthOptions().ConsumeOTP(ctx, opt.ID, "444444")
		require.NoError(t, err)
		require.False(t, won)
	})

	t.Run("concurrent verifies of one code settle to a single winner", func(t *testing.T) {
		// File-backed store so each goroutine's pooled connection sees the
		// same database.
		dsn := "file:" + filepath.Join(t.TempDir(), "otp.db") +
			"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
		fst, err := sqlite.NewStore(dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = fst.Close() })
		require.NoError(t, fst.ApplyMigrations())

		ftokens := newTestTokens(t, fst)
		fauth := &AuthService{Store: fst, Tokens: ftokens}
		fsvc := &OTPService{Store: fst, Auth: fauth, Dispatch: &captureEnqueuer{}}

		fuser := seedUser(t, fst, "race@example.com", "correct horse battery")
		fopt := seedAuthOption(t, fst, fuser.ID, true, false, true)
		require.NoError(t, fst.AuthOptions().SetOTP(ctx, fopt.ID, "777777", time.Now().UTC().Add(5*time.Minute)))

		const attempts = 4
		results := make([]error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = fsvc.Verify(ctx, "777777")
			}(i)
		}
		wg.Wait()

		var wins int
		for _, err := range results {
			if err == nil {
				wins++
			} else {
				require.ErrorIs(t, err, ErrInvalidOTP)
			}
		}
		require.Equal(t, 1, wins)
	})

	t.Run("disabled users cannot verify", func(t *testing.T) {
		setCode(t, "555555", time.Now().UTC().Add(5*time.Minute))

		user.Active = false
		require.NoError(t, st.Users().UpdateUser(ctx, user))
		t.Cleanup(func() {
			user.Active = true
			require.NoError(t, st.Users().UpdateUser(ctx, user))
		})

		_, err := svc.Verify(ctx, "555555")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})
}
