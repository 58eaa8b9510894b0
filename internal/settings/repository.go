package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

// settingsRowID: restaurant_settings is a singleton table.
const settingsRowID = 1

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) Get(ctx context.Context) (*domain.RestaurantSettings, error) {
	query := `
		SELECT id, name, address, logo_url, currency_symbol, tax_percent,
		       business_hours, table_count, kitchen_enabled,
		       kitchen_printer, cash_printer, updated_at
		FROM restaurant_settings
		WHERE id = ?
	`

	var s domain.RestaurantSettings
	err := r.db.QueryRowContext(ctx, query, settingsRowID).Scan(
		&s.ID, &s.Name, &s.Address, &s.LogoURL, &s.CurrencySymbol, &s.TaxPercent,
		&s.BusinessHours, &s.TableCount, &s.KitchenEnabled,
		&s.KitchenPrinter, &s.CashPrinter, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("restaurant settings not configured")
	}
	if err != nil {
		return nil, fmt.Errorf("querying restaurant settings: %w", err)
	}

	return &s, nil
}

func (r *MySQLRepository) Update(ctx context.Context, s *domain.RestaurantSettings) error {
	query := `
		UPDATE restaurant_settings
		SET name = ?, address = ?, logo_url = ?, currency_symbol = ?, tax_percent = ?,
		    business_hours = ?, table_count = ?, kitchen_enabled = ?,
		    kitchen_printer = ?, cash_printer = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		s.Name, s.Address, s.LogoURL, s.CurrencySymbol, s.TaxPercent,
		s.BusinessHours, s.TableCount, s.KitchenEnabled,
		s.KitchenPrinter, s.CashPrinter, time.Now().UTC(),
		settingsRowID,
	)
	if err != nil {
		return fmt.Errorf("updating restaurant settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError("restaurant settings not configured")
	}
	return nil
}
