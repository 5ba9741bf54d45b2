package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridian-portal/meridian-portal/internal/authz"
	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// RepositoryPort is the storage contract for menu and catalogue lifecycle.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListMenus(ctx context.Context) ([]Menu, error)
	ListCatalogues(ctx context.Context, menuID int64) ([]Catalogue, error)
}

// TxRepository exposes the mutations that must share one transaction.
type TxRepository interface {
	MenuByID(ctx context.Context, id int64) (Menu, error)
	CatalogueByID(ctx context.Context, id int64) (Catalogue, error)
	ActiveCatalogueCount(ctx context.Context, menuID int64) (int, error)
	InsertMenu(ctx context.Context, m Menu) (Menu, error)
	UpdateMenu(ctx context.Context, m Menu) error
	SetMenuActive(ctx context.Context, id int64, active bool) error
	InsertCatalogue(ctx context.Context, c Catalogue) (Catalogue, error)
	UpdateCatalogue(ctx context.Context, c Catalogue) error
	SetCatalogueEnabled(ctx context.Context, id int64, enabled bool) error
	SetCatalogueActive(ctx context.Context, id int64, active bool) error
	SetCatalogueMenu(ctx context.Context, id, menuID int64) error
}

// AuditPort records administrative lifecycle changes.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

// Service owns the menu and catalogue lifecycle.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
}

func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, audit: audit}
}

// ListMenus returns every menu, active or not.
func (s *Service) ListMenus(ctx context.Context) ([]Menu, error) {
	return s.repo.ListMenus(ctx)
}

// ListCatalogues returns every catalogue under a menu, active or not.
func (s *Service) ListCatalogues(ctx context.Context, menuID int64) ([]Catalogue, error) {
	return s.repo.ListCatalogues(ctx, menuID)
}

type MenuInput struct {
	Name         string
	Icon         string
	DisplayOrder int
}

func (s *Service) CreateMenu(ctx context.Context, in MenuInput) (Menu, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Menu{}, fmt.Errorf("menu name is required")
	}
	var created Menu
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.InsertMenu(ctx, Menu{
			Name:         name,
			Icon:         in.Icon,
			DisplayOrder: in.DisplayOrder,
			IsActive:     true,
		})
		return err
	})
	if err != nil {
		return Menu{}, err
	}
	s.record(ctx, "menu.create", "menu", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) UpdateMenu(ctx context.Context, id int64, in MenuInput) (Menu, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Menu{}, fmt.Errorf("menu name is required")
	}
	var updated Menu
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.MenuByID(ctx, id)
		if err != nil {
			return err
		}
		m.Name = name
		m.Icon = in.Icon
		m.DisplayOrder = in.DisplayOrder
		if err := tx.UpdateMenu(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return Menu{}, err
	}
	s.record(ctx, "menu.update", "menu", id, map[string]any{"name": updated.Name})
	return updated, nil
}

// DeactivateMenu soft-deletes a menu. It refuses while any active
// catalogue still belongs to the menu, so administrators never leave
// catalogues stranded under a menu the resolver will hide anyway.
func (s *Service) DeactivateMenu(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.MenuByID(ctx, id)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return nil
		}
		n, err := tx.ActiveCatalogueCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d remaining", ErrMenuHasActiveCatalogues, n)
		}
		return tx.SetMenuActive(ctx, id, false)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "menu.deactivate", "menu", id, nil)
	return nil
}

func (s *Service) ReactivateMenu(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.MenuByID(ctx, id); err != nil {
			return err
		}
		return tx.SetMenuActive(ctx, id, true)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "menu.reactivate", "menu", id, nil)
	return nil
}

type CatalogueInput struct {
	Name         string
	DisplayOrder int
	IsEnabled    bool
	Metadata     map[string]any
}

func (s *Service) CreateCatalogue(ctx context.Context, menuID int64, in CatalogueInput) (Catalogue, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Catalogue{}, fmt.Errorf("catalogue name is required")
	}
	var created Catalogue
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.MenuByID(ctx, menuID); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertCatalogue(ctx, Catalogue{
			MenuID:       menuID,
			Name:         name,
			DisplayOrder: in.DisplayOrder,
			IsEnabled:    in.IsEnabled,
			IsActive:     true,
			Metadata:     in.Metadata,
		})
		return err
	})
	if err != nil {
		return Catalogue{}, err
	}
	s.record(ctx, "catalogue.create", "catalogue", created.ID, map[string]any{"name": created.Name, "menu_id": menuID})
	return created, nil
}

func (s *Service) UpdateCatalogue(ctx context.Context, id int64, in CatalogueInput) (Catalogue, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Catalogue{}, fmt.Errorf("catalogue name is required")
	}
	var updated Catalogue
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.CatalogueByID(ctx, id)
		if err != nil {
			return err
		}
		c.Name = name
		c.DisplayOrder = in.DisplayOrder
		c.IsEnabled = in.IsEnabled
		c.Metadata = in.Metadata
		if err := tx.UpdateCatalogue(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return Catalogue{}, err
	}
	s.record(ctx, "catalogue.update", "catalogue", id, map[string]any{"name": updated.Name})
	return updated, nil
}

// SetCatalogueEnabled flips the rollout flag without touching grants.
func (s *Service) SetCatalogueEnabled(ctx context.Context, id int64, enabled bool) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.CatalogueByID(ctx, id); err != nil {
			return err
		}
		return tx.SetCatalogueEnabled(ctx, id, enabled)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "catalogue.set_enabled", "catalogue", id, map[string]any{"enabled": enabled})
	return nil
}

func (s *Service) DeactivateCatalogue(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.CatalogueByID(ctx, id); err != nil {
			return err
		}
		return tx.SetCatalogueActive(ctx, id, false)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "catalogue.deactivate", "catalogue", id, nil)
	return nil
}

func (s *Service) ReactivateCatalogue(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.CatalogueByID(ctx, id)
		if err != nil {
			return err
		}
		// The parent must be alive again first, otherwise the catalogue
		// would reactivate into a hidden subtree by accident.
		m, err := tx.MenuByID(ctx, c.MenuID)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return fmt.Errorf("%w: menu %d is inactive", ErrNotFound, c.MenuID)
		}
		return tx.SetCatalogueActive(ctx, id, true)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "catalogue.reactivate", "catalogue", id, nil)
	return nil
}

// MoveCatalogue reparents a catalogue under another active menu.
func (s *Service) MoveCatalogue(ctx context.Context, id, menuID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.CatalogueByID(ctx, id); err != nil {
			return err
		}
		m, err := tx.MenuByID(ctx, menuID)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return fmt.Errorf("%w: menu %d is inactive", ErrNotFound, menuID)
		}
		return tx.SetCatalogueMenu(ctx, id, menuID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "catalogue.move", "catalogue", id, map[string]any{"menu_id": menuID})
	return nil
}

func (s *Service) record(ctx context.Context, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  authz.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}
