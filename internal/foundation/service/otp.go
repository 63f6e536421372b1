package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 5 * time.Minute

// Enqueuer is the capability used to hand a message to the async dispatcher.
type Enqueuer interface {
	Enqueue(msg notify.Message) error
}

// OTPService issues and verifies delivered one-time codes, the second step
// of a two-step login.
type OTPService struct {
	Store    store.Store
	Auth     *AuthService
	Dispatch Enqueuer
	TTL      time.Duration
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultOTPTTL
}

// Issue re-verifies credentials, persists a fresh code, then enqueues
// delivery. The code is persisted before dispatch: a delivery failure leaves
// a valid but undelivered code behind, which mirrors the intended
// at-most-once, no-rollback contract.
func (s *OTPService) Issue(ctx context.Context, email, password, method string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Auth.CheckCredentials(ctx, email, password)
	if err != nil {
		return err
	}

	opt, err := s.Store.AuthOptions().GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	code, err := cryptox.GenerateOTP()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.ttl())

	if err := s.Store.AuthOptions().SetOTP(ctx, opt.ID, code, expiresAt); err != nil {
		return err
	}

	switch method {
	case domain.OTPMethodEmail:
		err = s.Dispatch.Enqueue(notify.Message{
			Channel:   notify.ChannelEmail,
			Recipient: user.Email,
			Subject:   "Your verification code",
			Body:      fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in %d minutes.</p>", code, int(s.ttl().Minutes())),
		})
	case domain.OTPMethodSMS:
		if user.Phone == "" {
			log.Error("sms delivery requested but user has no phone",
				slog.String("user_id", user.ID),
			)
			return ErrSendOTP
		}
		err = s.Dispatch.Enqueue(notify.Message{
			Channel:   notify.ChannelWhatsApp,
			Recipient: user.Phone,
			Body:      fmt.Sprintf("Your verification code is %s", code),
		})
	case domain.OTPMethodVoiceCall:
		// Accepted but never dispatched; the code is still live.
		log.Warn("voice_call delivery requested but no provider is wired",
			slog.String("user_id", user.ID),
		)
	default:
		return fmt.Errorf("%w: method", ErrRequiredField)
	}
	if err != nil {
		// Record stays in place so the user may still receive the code
		// through a retry.
		log.Error("failed to enqueue otp delivery", slog.Any("err", err))
		return ErrSendOTP
	}
	return nil
}

// Verify consumes a code and finishes the login. Exactly one of two
// concurrent calls with the same valid code succeeds: consumption is an
// atomic compare-and-clear.
func (s *OTPService) Verify(ctx context.Context, code string) (*domain.LoginResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: otp", ErrRequiredField)
	}

	opt, err := s.Store.AuthOptions().GetActiveByOTP(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	if opt.OTPExpiresAt == nil || time.Now().UTC().After(*opt.OTPExpiresAt) {
		// Expired codes stay in place; only successful consumption clears.
		return nil, ErrOTPExpired
	}

	won, err := s.Store.AuthOptions().ConsumeOTP(ctx, opt.ID, code)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrInvalidOTP
	}

	user, err := s.Store.Users().GetUserByID(ctx, opt.UserID)
	if err != nil {
		return nil, err
	}

	return s.Auth.finishLogin(ctx, user, []string{"pwd", "otp"})
}
