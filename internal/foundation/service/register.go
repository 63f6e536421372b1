package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/idx"
)

const minPasswordLength = 8

// RegisterRequest carries the signup payload after transport decoding.
type RegisterRequest struct {
	Email    string
	Name     string
	Phone    string
	Password string
	Language string
	RoleID   string

	TwoStepVerification bool
	DeviceAuthenticator bool
	OTPVerification     bool
}

// RegistrationService creates accounts. User and auth options are written in
// one transaction; the welcome email is enqueued afterwards.
type RegistrationService struct {
	Store    store.Store
	Tokens   TokenIssuer
	Dispatch Enqueuer
}

// Register validates, creates the user, and returns the user with a token
// pair so signup doubles as a first login.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*domain.LoginResult, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Active:       true,
		Language:     language(req.Language),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// New accounts stamp themselves as the acting identity.
	user.CreatedBy = user.ID
	user.UpdatedBy = user.ID
	if req.RoleID != "" {
		user.RoleID = &req.RoleID
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByEmail(ctx, user.Email); err == nil {
			return ErrEmailExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if user.RoleID != nil {
			if _, err := tx.Roles().GetRoleByID(ctx, *user.RoleID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: role_id", ErrRequiredField)
				}
				return err
			}
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailExists
			}
			return err
		}

		if req.TwoStepVerification || req.DeviceAuthenticator || req.OTPVerification {
			return tx.AuthOptions().CreateAuthOption(ctx, domain.AuthOption{
				ID:                  idx.New().String(),
				UserID:              user.ID,
				TwoStepVerification: req.TwoStepVerification,
				DeviceAuthenticator: req.DeviceAuthenticator,
				OTPVerification:     req.OTPVerification,
				CreatedAt:           now,
				UpdatedAt:           now,
				CreatedBy:           user.ID,
				UpdatedBy:           user.ID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best effort; registration already succeeded.
	_ = s.Dispatch.Enqueue(notify.Message{
		Channel:   notify.ChannelEmail,
		Recipient: user.Email,
		Subject:   "Welcome",
		Body:      fmt.Sprintf("<p>Hi %s, your account is ready.</p>", user.Name),
	})

	tokens, err := s.Tokens.IssueTokens(ctx, user, []string{"pwd"})
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{User: &user, Tokens: tokens}, nil
}

func validateRegistration(req RegisterRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return fmt.Errorf("%w: email", ErrRequiredField)
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password", ErrRequiredField)
	}
	if len(req.Password) < minPasswordLength {
		return fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, minPasswordLength)
	}
	if allNumeric(req.Password) {
		return fmt.Errorf("%w: entirely numeric", ErrWeakPassword)
	}
	if req.TwoStepVerification && !req.DeviceAuthenticator && !req.OTPVerification {
		return ErrTwoStepConfig
	}
	return nil
}

func allNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func language(lang string) string {
	switch lang {
	case domain.LanguageEnglish, domain.LanguageFrench, domain.LanguageGerman, domain.LanguageItalian:
		return lang
	}
	return domain.LanguageEnglish
}
