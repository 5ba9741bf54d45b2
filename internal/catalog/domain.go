package catalog

import (
	"errors"
	"time"
)

// Menu is a navigation group under management.
type Menu struct {
	ID           int64
	Name         string
	Icon         string
	DisplayOrder int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Catalogue is a portal feature page under management. IsEnabled is the
// rollout flag an administrator flips while a catalogue is still in
// development; IsActive is the soft-delete flag.
type Catalogue struct {
	ID           int64
	MenuID       int64
	Name         string
	DisplayOrder int
	IsEnabled    bool
	IsActive     bool
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrNotFound indicates the menu or catalogue does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrMenuHasActiveCatalogues blocks menu deactivation while active
	// catalogues still reference it; they must be deactivated or moved
	// first so no catalogue is ever orphaned under a dead menu.
	ErrMenuHasActiveCatalogues = errors.New("catalog: menu still has active catalogues")
)
