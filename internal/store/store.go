// Package store persists the transaction ledger and derives holdings from it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/portfolio"
)

// ErrInvalid is returned for transactions that cannot be recorded.
var ErrInvalid = errors.New("invalid transaction")

const dateLayout = "2006-01-02"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func validate(tx portfolio.Transaction) error {
	switch {
	case tx.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalid)
	case !tx.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, tx.Type)
	case tx.Shares <= 0:
		return fmt.Errorf("%w: shares must be positive", ErrInvalid)
	case tx.PricePerShare < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	return nil
}

// AddTransaction records tx with a new id. The symbol is upper-cased and the
// total is shares times price.
func (s *SQLiteStore) AddTransaction(ctx context.Context, tx portfolio.Transaction) (portfolio.Transaction, error) {
	tx.Symbol = asset.Canonical(tx.Symbol)
	tx.Type = portfolio.TxType(strings.ToUpper(string(tx.Type)))
	if err := validate(tx); err != nil {
		return portfolio.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	tx.TotalAmount = tx.Shares * tx.PricePerShare
	tx.CreatedAt = s.now().UTC()
	if tx.Date.IsZero() {
		tx.Date = tx.CreatedAt
	}
	tx.Date = time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, symbol, company_name, transaction_type, shares,
			price_per_share, total_amount, currency, transaction_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Symbol, tx.CompanyName, string(tx.Type), tx.Shares,
		tx.PricePerShare, tx.TotalAmount, currencyFor(tx.Symbol), tx.Date.Format(dateLayout),
		tx.Notes, tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return portfolio.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func currencyFor(symbol string) string {
	return asset.DefaultCurrency(asset.Classify(symbol))
}

// Transactions lists a user's ledger, newest first.
func (s *SQLiteStore) Transactions(ctx context.Context, userID string) ([]portfolio.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, company_name, transaction_type, shares, price_per_share,
			total_amount, transaction_date, notes, created_at
		FROM transactions WHERE user_id = ?
		ORDER BY transaction_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]portfolio.Transaction, 0)
	for rows.Next() {
		var tx portfolio.Transaction
		var typ, date, created string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Symbol, &tx.CompanyName, &typ, &tx.Shares,
			&tx.PricePerShare, &tx.TotalAmount, &date, &tx.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = portfolio.TxType(typ)
		if tx.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// DeleteTransaction removes one of a user's transactions.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transaction rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Holdings reads the open positions of a user, ordered by symbol.
func (s *SQLiteStore) Holdings(ctx context.Context, userID string) ([]portfolio.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, company_name, currency, total_shares, total_invested
		FROM portfolio_holdings WHERE user_id = ?
		ORDER BY symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	out := make([]portfolio.Holding, 0)
	for rows.Next() {
		var h portfolio.Holding
		if err := rows.Scan(&h.Symbol, &h.CompanyName, &h.Currency, &h.TotalShares, &h.TotalInvested); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		if h.TotalShares > 0 {
			h.AvgCostBasis = h.TotalInvested / h.TotalShares
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", err)
	}
	return out, nil
}
