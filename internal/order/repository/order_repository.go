package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

const orderColumns = `
	o.id, o.table_number, o.source_id, s.name, o.customer_name,
	o.subtotal, o.tax, o.total, o.status, o.paid, o.payment_method,
	o.printed_at, o.created_at, o.updated_at
`

const orderFrom = `
	FROM orders o
	LEFT JOIN order_sources s ON s.id = o.source_id
`

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	var order domain.Order
	var sourceName sql.NullString

	err := row.Scan(
		&order.ID, &order.TableNumber, &order.SourceID, &sourceName, &order.CustomerName,
		&order.Subtotal, &order.Tax, &order.Total, &order.Status, &order.Paid, &order.PaymentMethod,
		&order.PrintedAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceName.Valid {
		order.SourceName = sourceName.String
	}
	return &order, nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + orderFrom + `WHERE o.id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

// ListSince returns orders created at or after the given time, newest first.
func (r *MySQLOrderRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + orderFrom + `WHERE o.created_at >= ? ORDER BY o.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying recent orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListUnprinted returns orders without a printed marker, ascending by
// creation time so the startup sweep processes oldest first.
func (r *MySQLOrderRepository) ListUnprinted(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + orderFrom + `WHERE o.printed_at IS NULL ORDER BY o.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying unprinted orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}
	return orders, nil
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, table_number, source_id, customer_name,
		                    subtotal, tax, total, status, paid, payment_method,
		                    printed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		order.ID, order.TableNumber, order.SourceID, order.CustomerName,
		order.Subtotal, order.Tax, order.Total, order.Status, order.Paid, order.PaymentMethod,
		order.PrintedAt, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	return requireRow(result, id)
}

// UpdateTotals rewrites the money columns and status inside a transaction,
// used when items are added to an existing order.
func (r *MySQLOrderRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, id string, subtotal, tax, total decimal.Decimal, status string) error {
	query := `UPDATE orders SET subtotal = ?, tax = ?, total = ?, status = ?, updated_at = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, subtotal, tax, total, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating order totals: %w", err)
	}

	return requireRow(result, id)
}

func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, id string, method string) error {
	query := `UPDATE orders SET paid = 1, payment_method = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, method, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking order paid: %w", err)
	}

	return requireRow(result, id)
}

func (r *MySQLOrderRepository) MarkPrinted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE orders SET printed_at = ? WHERE id = ? AND printed_at IS NULL`

	// Affecting zero rows here is fine: another instance may have marked the
	// order between dispatch and this write.
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("marking order printed: %w", err)
	}

	return nil
}

func requireRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	return nil
}
