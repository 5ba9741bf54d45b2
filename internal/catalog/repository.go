package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-portal/meridian-portal/internal/platform/db"
)

// Repository implements RepositoryPort on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

var _ RepositoryPort = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) ListMenus(ctx context.Context) ([]Menu, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, icon, display_order, is_active, created_at, updated_at
		FROM menus
		ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.Icon, &m.DisplayOrder, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

func (r *Repository) ListCatalogues(ctx context.Context, menuID int64) ([]Catalogue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, menu_id, name, display_order, is_enabled, is_active, metadata, created_at, updated_at
		FROM catalogues
		WHERE menu_id = $1
		ORDER BY display_order, id`, menuID)
	if err != nil {
		return nil, fmt.Errorf("list catalogues: %w", err)
	}
	defer rows.Close()

	var cats []Catalogue
	for rows.Next() {
		c, err := scanCatalogue(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) MenuByID(ctx context.Context, id int64) (Menu, error) {
	var m Menu
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, icon, display_order, is_active, created_at, updated_at
		FROM menus WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Icon, &m.DisplayOrder, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Menu{}, fmt.Errorf("%w: menu %d", ErrNotFound, id)
	}
	return m, err
}

func (t *txRepository) CatalogueByID(ctx context.Context, id int64) (Catalogue, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, menu_id, name, display_order, is_enabled, is_active, metadata, created_at, updated_at
		FROM catalogues WHERE id = $1`, id)
	c, err := scanCatalogue(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Catalogue{}, fmt.Errorf("%w: catalogue %d", ErrNotFound, id)
	}
	return c, err
}

func (t *txRepository) ActiveCatalogueCount(ctx context.Context, menuID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM catalogues WHERE menu_id = $1 AND is_active`, menuID).Scan(&n)
	return n, err
}

func (t *txRepository) InsertMenu(ctx context.Context, m Menu) (Menu, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO menus (name, icon, display_order, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		m.Name, m.Icon, m.DisplayOrder, m.IsActive).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (t *txRepository) UpdateMenu(ctx context.Context, m Menu) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE menus SET name = $2, icon = $3, display_order = $4, updated_at = NOW()
		WHERE id = $1`, m.ID, m.Name, m.Icon, m.DisplayOrder)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu %d", ErrNotFound, m.ID)
	}
	return nil
}

func (t *txRepository) SetMenuActive(ctx context.Context, id int64, active bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE menus SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu %d", ErrNotFound, id)
	}
	return nil
}

func (t *txRepository) InsertCatalogue(ctx context.Context, c Catalogue) (Catalogue, error) {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return Catalogue{}, err
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO catalogues (menu_id, name, display_order, is_enabled, is_active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.MenuID, c.Name, c.DisplayOrder, c.IsEnabled, c.IsActive, meta).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (t *txRepository) UpdateCatalogue(ctx context.Context, c Catalogue) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE catalogues SET name = $2, display_order = $3, is_enabled = $4, metadata = $5, updated_at = NOW()
		WHERE id = $1`, c.ID, c.Name, c.DisplayOrder, c.IsEnabled, meta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: catalogue %d", ErrNotFound, c.ID)
	}
	return nil
}

func (t *txRepository) SetCatalogueEnabled(ctx context.Context, id int64, enabled bool) error {
	return t.setCatalogueFlag(ctx, id, "is_enabled", enabled)
}

func (t *txRepository) SetCatalogueActive(ctx context.Context, id int64, active bool) error {
	return t.setCatalogueFlag(ctx, id, "is_active", active)
}

func (t *txRepository) setCatalogueFlag(ctx context.Context, id int64, column string, value bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE catalogues SET `+column+` = $2, updated_at = NOW() WHERE id = $1`, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: catalogue %d", ErrNotFound, id)
	}
	return nil
}

func (t *txRepository) SetCatalogueMenu(ctx context.Context, id, menuID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE catalogues SET menu_id = $2, updated_at = NOW() WHERE id = $1`, id, menuID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: catalogue %d", ErrNotFound, id)
	}
	return nil
}

func scanCatalogue(row pgx.Row) (Catalogue, error) {
	var (
		c    Catalogue
		meta []byte
	)
	err := row.Scan(&c.ID, &c.MenuID, &c.Name, &c.DisplayOrder, &c.IsEnabled, &c.IsActive, &meta, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Catalogue{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return Catalogue{}, fmt.Errorf("catalogue %d metadata: %w", c.ID, err)
		}
	}
	return c, nil
}
