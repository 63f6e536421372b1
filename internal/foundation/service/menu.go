package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/pkg/idx"
)

// MenuService manages navigation menus and their actions. Both are
// reference data: deletes are blocked while permission records point at
// them, checked in the same transaction as the delete.
type MenuService struct {
	Store store.Store
}

func (s *MenuService) GetMenu(ctx context.Context, id string) (domain.Menu, error) {
	return s.Store.Menus().GetMenuByID(ctx, id)
}

func (s *MenuService) ListMenus(ctx context.Context) ([]domain.Menu, error) {
	return s.Store.Menus().ListMenus(ctx)
}

func (s *MenuService) CreateMenu(ctx context.Context, actingID string, m domain.Menu) (domain.Menu, error) {
	if strings.TrimSpace(m.Name) == "" {
		return domain.Menu{}, fmt.Errorf("%w: name", ErrRequiredField)
	}

	now := time.Now().UTC()
	m.ID = idx.New().String()
	m.Slug = slugify(m.Name)
	m.CreatedAt = now
	m.UpdatedAt = now
	m.CreatedBy = actingID
	m.UpdatedBy = actingID

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if m.ParentID != nil {
			parent, err := tx.Menus().GetMenuByID(ctx, *m.ParentID)
			if err != nil {
				return err
			}
			m.Depth = parent.Depth + 1
		}
		return tx.Menus().CreateMenu(ctx, m)
	})
	if err != nil {
		return domain.Menu{}, err
	}
	return m, nil
}

func (s *MenuService) UpdateMenu(ctx context.Context, actingID string, m domain.Menu) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name", ErrRequiredField)
	}
	m.Slug = slugify(m.Name)
	m.UpdatedBy = actingID

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if m.ParentID != nil {
			parent, err := tx.Menus().GetMenuByID(ctx, *m.ParentID)
			if err != nil {
				return err
			}
			m.Depth = parent.Depth + 1
		} else {
			m.Depth = 0
		}
		return tx.Menus().UpdateMenu(ctx, m)
	})
}

// DeleteMenu refuses while role or user permissions, or child menus, still
// reference the row.
func (s *MenuService) DeleteMenu(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Menus().GetMenuByID(ctx, id); err != nil {
			return err
		}

		roleRefs, err := tx.RolePermissions().CountByMenu(ctx, id)
		if err != nil {
			return err
		}
		userRefs, err := tx.UserPermissions().CountByMenu(ctx, id)
		if err != nil {
			return err
		}
		children, err := tx.Menus().CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if roleRefs+userRefs+children > 0 {
			return store.ErrReferenced
		}
		return tx.Menus().DeleteMenu(ctx, id)
	})
}

func (s *MenuService) GetAction(ctx context.Context, id string) (domain.MenuAction, error) {
	return s.Store.MenuActions().GetMenuActionByID(ctx, id)
}

func (s *MenuService) ListActions(ctx context.Context) ([]domain.MenuAction, error) {
	return s.Store.MenuActions().ListMenuActions(ctx)
}

func (s *MenuService) CreateAction(ctx context.Context, actingID string, a domain.MenuAction) (domain.MenuAction, error) {
	if strings.TrimSpace(a.Code) == "" {
		return domain.MenuAction{}, fmt.Errorf("%w: code", ErrRequiredField)
	}

	now := time.Now().UTC()
	a.ID = idx.New().String()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.CreatedBy = actingID
	a.UpdatedBy = actingID

	if err := s.Store.MenuActions().CreateMenuAction(ctx, a); err != nil {
		return domain.MenuAction{}, err
	}
	return a, nil
}

func (s *MenuService) UpdateAction(ctx context.Context, actingID string, a domain.MenuAction) error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("%w: code", ErrRequiredField)
	}
	a.UpdatedBy = actingID
	return s.Store.MenuActions().UpdateMenuAction(ctx, a)
}

// DeleteAction refuses while any permission record grants the action.
func (s *MenuService) DeleteAction(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.MenuActions().GetMenuActionByID(ctx, id); err != nil {
			return err
		}

		roleRefs, err := tx.RolePermissions().CountByAction(ctx, id)
		if err != nil {
			return err
		}
		userRefs, err := tx.UserPermissions().CountByAction(ctx, id)
		if err != nil {
			return err
		}
		if roleRefs+userRefs > 0 {
			return store.ErrReferenced
		}
		return tx.MenuActions().DeleteMenuAction(ctx, id)
	})
}

// slugify lowercases and dashes a display name.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
