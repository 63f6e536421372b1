package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/idx"
)

// Provider exchanges an OAuth authorization code for an external identity.
// One implementation per SocialProvider value; selection is a fixed enum
// switch, never reflection.
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (domain.ExternalIdentity, error)
}

// SocialLoginService logs users in through Google or Apple, creating the
// account on first sight of a new email. Social logins bypass the two-step
// challenge.
type SocialLoginService struct {
	Providers map[domain.SocialProvider]Provider
	Store     store.Store
	Tokens    TokenIssuer
	Dispatch  Enqueuer
}

// Login exchanges the code and resolves a local user, creating one when the
// email is unknown.
func (s *SocialLoginService) Login(ctx context.Context, providerName domain.SocialProvider, code string) (*domain.LoginResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code", ErrRequiredField)
	}

	provider, ok := s.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: provider", ErrRequiredField)
	}

	identity, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if identity.Email == "" {
		return nil, ErrInvalidCredentials
	}

	email := strings.ToLower(identity.Email)
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user, err = s.createFromIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !user.Active:
		return nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := s.Store.Users().StampLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	tokens, err := s.Tokens.IssueTokens(ctx, user, []string{"social"})
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{User: &user, Tokens: tokens}, nil
}

func (s *SocialLoginService) createFromIdentity(ctx context.Context, identity domain.ExternalIdentity) (domain.User, error) {
	now := time.Now().UTC()
	user := domain.User{
		ID:        idx.New().String(),
		Email:     strings.ToLower(identity.Email),
		Name:      identity.Name,
		Active:    true,
		Language:  domain.LanguageEnglish,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.CreatedBy = user.ID
	user.UpdatedBy = user.ID

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	_ = s.Dispatch.Enqueue(notify.Message{
		Channel:   notify.ChannelEmail,
		Recipient: user.Email,
		Subject:   "Welcome",
		Body:      fmt.Sprintf("<p>Hi %s, your account is ready.</p>", user.Name),
	})
	return user, nil
}
