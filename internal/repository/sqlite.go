package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Businesses (tenants)
	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		api_key_hash TEXT UNIQUE NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_businesses_api_key_hash ON businesses(api_key_hash);

	-- Devices (one sync cursor per device)
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		device_id TEXT NOT NULL,
		device_name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_sync_at DATETIME,
		sync_cursor TEXT,
		paired_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(business_id, device_id)
	);

	CREATE INDEX IF NOT EXISTS idx_devices_business_id ON devices(business_id);

	-- Pairing tokens (single use, short expiry)
	CREATE TABLE IF NOT EXISTS pairing_tokens (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		secret_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL,
		used INTEGER NOT NULL DEFAULT 0,
		used_at DATETIME,
		used_by_device TEXT
	);

	-- Append-only change log; seq breaks sync_timestamp ties in insertion order
	CREATE TABLE IF NOT EXISTS sync_change_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		business_id TEXT NOT NULL,
		device_id TEXT,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		sync_timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_log_business_ts ON sync_change_log(business_id, sync_timestamp);
	CREATE INDEX IF NOT EXISTS idx_change_log_entity ON sync_change_log(business_id, entity_type, entity_id, sync_timestamp);
	CREATE INDEX IF NOT EXISTS idx_change_log_device ON sync_change_log(business_id, device_id);

	-- Domain stores backing the entity appliers
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		sku TEXT,
		barcode TEXT,
		purchase_price REAL NOT NULL DEFAULT 0,
		sale_price REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'pcs',
		current_stock REAL NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		description TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_business_id ON items(business_id);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_customers_business_id ON customers(business_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		customer_id TEXT,
		invoice_number TEXT NOT NULL,
		invoice_type TEXT NOT NULL DEFAULT 'sale',
		date DATETIME NOT NULL,
		subtotal REAL NOT NULL DEFAULT 0,
		tax_amount REAL NOT NULL DEFAULT 0,
		discount_amount REAL NOT NULL DEFAULT 0,
		total_amount REAL NOT NULL DEFAULT 0,
		paid_amount REAL NOT NULL DEFAULT 0,
		remarks TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_business_id ON invoices(business_id);

	CREATE TABLE IF NOT EXISTS cash_transactions (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount REAL NOT NULL,
		date DATETIME NOT NULL,
		source TEXT,
		remarks TEXT,
		reference_id TEXT,
		reference_type TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cash_business_date ON cash_transactions(business_id, date);
	`

	_, err := db.Exec(schema)
	return err
}
