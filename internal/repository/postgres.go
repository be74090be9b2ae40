package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database
func NewPostgresDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := createTablesPostgres(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTablesPostgres(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		api_key_hash TEXT UNIQUE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_businesses_api_key_hash ON businesses(api_key_hash);

	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		device_id TEXT NOT NULL,
		device_name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_sync_at TIMESTAMPTZ,
		sync_cursor TEXT,
		paired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(business_id, device_id)
	);

	CREATE INDEX IF NOT EXISTS idx_devices_business_id ON devices(business_id);

	CREATE TABLE IF NOT EXISTS pairing_tokens (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		secret_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		used_at TIMESTAMPTZ,
		used_by_device TEXT
	);

	CREATE TABLE IF NOT EXISTS sync_change_log (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT UNIQUE NOT NULL,
		business_id TEXT NOT NULL,
		device_id TEXT,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		sync_timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_change_log_business_ts ON sync_change_log(business_id, sync_timestamp);
	CREATE INDEX IF NOT EXISTS idx_change_log_entity ON sync_change_log(business_id, entity_type, entity_id, sync_timestamp);
	CREATE INDEX IF NOT EXISTS idx_change_log_device ON sync_change_log(business_id, device_id);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		sku TEXT,
		barcode TEXT,
		purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		sale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT 'pcs',
		current_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_items_business_id ON items(business_id);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_customers_business_id ON customers(business_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		customer_id TEXT,
		invoice_number TEXT NOT NULL,
		invoice_type TEXT NOT NULL DEFAULT 'sale',
		date TIMESTAMPTZ NOT NULL,
		subtotal DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		discount_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		paid_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		remarks TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_business_id ON invoices(business_id);

	CREATE TABLE IF NOT EXISTS cash_transactions (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		source TEXT,
		remarks TEXT,
		reference_id TEXT,
		reference_type TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_cash_business_date ON cash_transactions(business_id, date);
	`

	_, err := db.Exec(schema)
	return err
}
