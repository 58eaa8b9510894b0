package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB configura una base de datos de prueba
// Espera que exista una BD MySQL en localhost:3306 llamada 'comanda_test'
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/comanda_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Verify connection
	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB limpia la BD de prueba
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"order_items", "orders", "menu_items", "menu_categories", "order_sources", "restaurant_settings"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables crea las tablas necesarias para los tests
func SetupTestTables(t *testing.T, db *sql.DB) {
	createMenuCategoriesTable := `
	CREATE TABLE IF NOT EXISTS menu_categories (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createMenuItemsTable := `
	CREATE TABLE IF NOT EXISTS menu_items (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		category_id BIGINT,
		description TEXT,
		available TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_category (category_id)
	)`

	createOrderSourcesTable := `
	CREATE TABLE IF NOT EXISTS order_sources (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		icon VARCHAR(100),
		active TINYINT(1) NOT NULL DEFAULT 1,
		sort_order INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) NOT NULL PRIMARY KEY,
		table_number INT,
		source_id BIGINT,
		customer_name VARCHAR(150),
		subtotal DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		tax DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		total DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		paid TINYINT(1) NOT NULL DEFAULT 0,
		payment_method VARCHAR(30),
		printed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_table (table_number),
		INDEX idx_source (source_id),
		INDEX idx_printed (printed_at),
		INDEX idx_created (created_at)
	)`

	createOrderItemsTable := `
	CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		menu_item_id BIGINT,
		name VARCHAR(255) NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		notes TEXT,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		INDEX idx_order (order_id)
	)`

	createSettingsTable := `
	CREATE TABLE IF NOT EXISTS restaurant_settings (
		id INT NOT NULL PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		address VARCHAR(255) NOT NULL DEFAULT '',
		logo_url VARCHAR(500),
		currency_symbol VARCHAR(10) NOT NULL DEFAULT '$',
		tax_percent DECIMAL(5,2) NOT NULL DEFAULT 0.00,
		business_hours VARCHAR(150) NOT NULL DEFAULT '',
		table_count INT NOT NULL DEFAULT 0,
		kitchen_enabled TINYINT(1) NOT NULL DEFAULT 1,
		kitchen_printer VARCHAR(150) NOT NULL DEFAULT '',
		cash_printer VARCHAR(150) NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"menu_categories", createMenuCategoriesTable},
		{"menu_items", createMenuItemsTable},
		{"order_sources", createOrderSourcesTable},
		{"orders", createOrdersTable},
		{"order_items", createOrderItemsTable},
		{"restaurant_settings", createSettingsTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}

// SeedSettings inserta la fila singleton de configuracion
func SeedSettings(t *testing.T, db *sql.DB) {
	query := `
	INSERT INTO restaurant_settings
		(id, name, address, currency_symbol, tax_percent, business_hours,
		 table_count, kitchen_enabled, kitchen_printer, cash_printer)
	VALUES (1, 'Test Restaurant', '123 Main St', '$', 10.00, '9-22', 8, 1, 'kitchen', 'cash')
	ON DUPLICATE KEY UPDATE name = VALUES(name)`

	if _, err := db.Exec(query); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}
}
