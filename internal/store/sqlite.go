package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		symbol TEXT NOT NULL,
		company_name TEXT NOT NULL DEFAULT '',
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('BUY', 'SELL', 'DIVIDEND')),
		shares REAL NOT NULL,
		price_per_share REAL NOT NULL,
		total_amount REAL NOT NULL,
		currency TEXT NOT NULL DEFAULT '',
		transaction_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_symbol ON transactions(user_id, symbol);

	CREATE VIEW IF NOT EXISTS portfolio_holdings AS
	SELECT
		user_id,
		symbol,
		MAX(company_name) AS company_name,
		MAX(currency) AS currency,
		SUM(CASE transaction_type WHEN 'BUY' THEN shares WHEN 'SELL' THEN -shares ELSE 0 END) AS total_shares,
		SUM(CASE transaction_type WHEN 'BUY' THEN total_amount WHEN 'SELL' THEN -total_amount ELSE 0 END) AS total_invested
	FROM transactions
	GROUP BY user_id, symbol
	HAVING SUM(CASE transaction_type WHEN 'BUY' THEN shares WHEN 'SELL' THEN -shares ELSE 0 END) > 0;
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}
