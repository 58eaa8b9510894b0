package menu

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// FindItem returns one menu item. Orders snapshot name and price from here at
// creation time; later menu edits never touch order history.
func (r *MySQLRepository) FindItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	query := `
		SELECT id, name, price, category_id, description, available, created_at, updated_at
		FROM menu_items
		WHERE id = ?
	`

	var item domain.MenuItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.Price, &item.CategoryID,
		&item.Description, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("menu item %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying menu item: %w", err)
	}

	return &item, nil
}

func (r *MySQLRepository) ListItems(ctx context.Context) ([]domain.MenuItem, error) {
	query := `
		SELECT id, name, price, category_id, description, available, created_at, updated_at
		FROM menu_items
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		var item domain.MenuItem
		err := rows.Scan(
			&item.ID, &item.Name, &item.Price, &item.CategoryID,
			&item.Description, &item.Available, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning menu item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu item rows: %w", err)
	}
	return items, nil
}

func (r *MySQLRepository) InsertItem(ctx context.Context, item *domain.MenuItem) (int64, error) {
	query := `
		INSERT INTO menu_items (name, price, category_id, description, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		item.Name, item.Price, item.CategoryID, item.Description, item.Available, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting menu item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting inserted menu item id: %w", err)
	}
	return id, nil
}

func (r *MySQLRepository) UpdateItem(ctx context.Context, item *domain.MenuItem) error {
	query := `
		UPDATE menu_items
		SET name = ?, price = ?, category_id = ?, description = ?, available = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		item.Name, item.Price, item.CategoryID, item.Description, item.Available,
		time.Now().UTC(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating menu item: %w", err)
	}

	return requireRow(result, fmt.Sprintf("menu item %d not found", item.ID))
}

func (r *MySQLRepository) DeleteItem(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting menu item: %w", err)
	}
	return requireRow(result, fmt.Sprintf("menu item %d not found", id))
}

func (r *MySQLRepository) ListCategories(ctx context.Context) ([]domain.MenuCategory, error) {
	query := `SELECT id, name, sort_order, created_at FROM menu_categories ORDER BY sort_order ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying menu categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.MenuCategory
	for rows.Next() {
		var cat domain.MenuCategory
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.SortOrder, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning menu category row: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu category rows: %w", err)
	}
	return categories, nil
}

func (r *MySQLRepository) InsertCategory(ctx context.Context, cat *domain.MenuCategory) (int64, error) {
	query := `INSERT INTO menu_categories (name, sort_order, created_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, cat.Name, cat.SortOrder, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("inserting menu category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting inserted category id: %w", err)
	}
	return id, nil
}

func (r *MySQLRepository) DeleteCategory(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM menu_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting menu category: %w", err)
	}
	return requireRow(result, fmt.Sprintf("menu category %d not found", id))
}

func (r *MySQLRepository) ListSources(ctx context.Context) ([]domain.OrderSource, error) {
	query := `SELECT id, name, icon, active, sort_order, created_at FROM order_sources ORDER BY sort_order ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying order sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.OrderSource
	for rows.Next() {
		var src domain.OrderSource
		if err := rows.Scan(&src.ID, &src.Name, &src.Icon, &src.Active, &src.SortOrder, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order source row: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order source rows: %w", err)
	}
	return sources, nil
}

func (r *MySQLRepository) InsertSource(ctx context.Context, src *domain.OrderSource) (int64, error) {
	query := `INSERT INTO order_sources (name, icon, active, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, src.Name, src.Icon, src.Active, src.SortOrder, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("inserting order source: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting inserted source id: %w", err)
	}
	return id, nil
}

func (r *MySQLRepository) UpdateSource(ctx context.Context, src *domain.OrderSource) error {
	query := `UPDATE order_sources SET name = ?, icon = ?, active = ?, sort_order = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, src.Name, src.Icon, src.Active, src.SortOrder, src.ID)
	if err != nil {
		return fmt.Errorf("updating order source: %w", err)
	}
	return requireRow(result, fmt.Sprintf("order source %d not found", src.ID))
}

func requireRow(result sql.Result, notFoundMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(notFoundMsg)
	}
	return nil
}
