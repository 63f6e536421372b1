package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/idx"
)

// UserService manages accounts and roles outside the login path.
type UserService struct {
	Store store.Store
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// UpdateUser applies profile changes. Password and auth settings have their
// own flows and are not touched here.
func (s *UserService) UpdateUser(ctx context.Context, actingID string, u domain.User) error {
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email", ErrRequiredField)
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name", ErrRequiredField)
	}

	current, err := s.Store.Users().GetUserByID(ctx, u.ID)
	if err != nil {
		return err
	}

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.PasswordHash = current.PasswordHash
	u.LastLoginAt = current.LastLoginAt
	u.CreatedAt = current.CreatedAt
	u.CreatedBy = current.CreatedBy
	u.UpdatedBy = actingID

	if u.Email != current.Email {
		if _, err := s.Store.Users().GetUserByEmail(ctx, u.Email); err == nil {
			return ErrEmailExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	err = s.Store.Users().UpdateUser(ctx, u)
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrEmailExists
	}
	return err
}

// DeleteUser removes the account. Dependent auth and session rows cascade in
// the store; group memberships are detached first so stale member lists
// never linger.
func (s *UserService) DeleteUser(ctx context.Context, actingID, id string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, id); err != nil {
			return err
		}

		groups, err := tx.UserPermissions().ListGroups(ctx)
		if err != nil {
			return err
		}
		for _, g := range groups {
			trimmed := g.UserIDs[:0:0]
			for _, memberID := range g.UserIDs {
				if memberID != id {
					trimmed = append(trimmed, memberID)
				}
			}
			if len(trimmed) == len(g.UserIDs) {
				continue
			}
			g.UserIDs = trimmed
			g.UpdatedBy = actingID
			if err := tx.UserPermissions().UpdateGroup(ctx, g); err != nil {
				return err
			}
		}

		return tx.Users().DeleteUser(ctx, id)
	})
}

// UpdateAuthOptions replaces a user's two-step configuration. The row is
// created on first use and updated afterwards. Enabling two-step without a
// second factor is rejected, the same rule registration applies.
func (s *UserService) UpdateAuthOptions(ctx context.Context, actingID, userID string, twoStep, device, otp bool) (domain.AuthOption, error) {
	if twoStep && !device && !otp {
		return domain.AuthOption{}, ErrTwoStepConfig
	}

	var out domain.AuthOption
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		opt, err := tx.AuthOptions().GetByUserID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			out = domain.AuthOption{
				ID:                  idx.New().String(),
				UserID:              userID,
				TwoStepVerification: twoStep,
				DeviceAuthenticator: device,
				OTPVerification:     otp,
				CreatedAt:           now,
				UpdatedAt:           now,
				CreatedBy:           actingID,
				UpdatedBy:           actingID,
			}
			return tx.AuthOptions().CreateAuthOption(ctx, out)
		}
		if err != nil {
			return err
		}

		opt.TwoStepVerification = twoStep
		opt.DeviceAuthenticator = device
		opt.OTPVerification = otp
		opt.UpdatedAt = now
		opt.UpdatedBy = actingID
		out = opt
		return tx.AuthOptions().UpdateFlags(ctx, opt)
	})
	if err != nil {
		return domain.AuthOption{}, err
	}
	return out, nil
}

func (s *UserService) GetRole(ctx context.Context, id string) (domain.Role, error) {
	return s.Store.Roles().GetRoleByID(ctx, id)
}

func (s *UserService) ListRoles(ctx context.Context, signupOnly bool) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx, signupOnly)
}

func (s *UserService) CreateRole(ctx context.Context, actingID string, r domain.Role) (domain.Role, error) {
	if strings.TrimSpace(r.Name) == "" {
		return domain.Role{}, fmt.Errorf("%w: name", ErrRequiredField)
	}

	now := time.Now().UTC()
	r.ID = idx.New().String()
	r.Name = strings.TrimSpace(r.Name)
	r.CreatedAt = now
	r.UpdatedAt = now
	r.CreatedBy = actingID
	r.UpdatedBy = actingID

	if err := s.Store.Roles().CreateRole(ctx, r); err != nil {
		return domain.Role{}, err
	}
	return r, nil
}

func (s *UserService) UpdateRole(ctx context.Context, actingID string, r domain.Role) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name", ErrRequiredField)
	}
	r.Name = strings.TrimSpace(r.Name)
	r.UpdatedBy = actingID
	return s.Store.Roles().UpdateRole(ctx, r)
}

// DeleteRole refuses while users or role permissions reference the role.
func (s *UserService) DeleteRole(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Roles().GetRoleByID(ctx, id); err != nil {
			return err
		}

		users, err := tx.Users().CountByRole(ctx, id)
		if err != nil {
			return err
		}
		if users > 0 {
			return store.ErrReferenced
		}

		if err := tx.RolePermissions().DeleteByRole(ctx, id); err != nil {
			return err
		}
		return tx.Roles().DeleteRole(ctx, id)
	})
}
