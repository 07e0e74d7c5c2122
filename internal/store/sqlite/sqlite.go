// Package sqlite stores the ledger in an embedded SQLite file, the usual
// setup for a single till without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"tillledger/internal/store/sqlstore"
)

type Store struct {
	*sqlstore.Store
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	// One connection serializes writers, which is what the ledger expects.
	db.SetMaxOpenConns(1)

	s := &Store{Store: sqlstore.New(db, Dialect{})}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

type Dialect struct{}

func (Dialect) Schema() []string {
	return schema
}

func (Dialect) LockClause() string {
	return ""
}

func (Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

func (Dialect) WriteTxOptions() *sql.TxOptions {
	return nil
}

func (Dialect) ReadTxOptions() *sql.TxOptions {
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sold_at TIMESTAMP NOT NULL,
		description TEXT NOT NULL,
		gross NUMERIC NOT NULL CHECK (gross >= 0),
		method TEXT NOT NULL CHECK (method IN ('CASH', 'CARD', 'PIX')),
		fee NUMERIC NOT NULL CHECK (fee >= 0),
		net NUMERIC NOT NULL CHECK (net >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sales_sold_at_idx ON sales (sold_at)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		color TEXT,
		size TEXT,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		total_cost NUMERIC NOT NULL CHECK (total_cost >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id TEXT PRIMARY KEY,
		item_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		qty_before INTEGER NOT NULL,
		qty_after INTEGER NOT NULL,
		cost_before NUMERIC NOT NULL,
		cost_after NUMERIC NOT NULL,
		reason TEXT,
		moved_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS stock_movements_item_idx ON stock_movements (item_id, moved_at)`,
	`CREATE TABLE IF NOT EXISTS sale_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL CHECK (price >= 0),
		size TEXT,
		icon TEXT NOT NULL DEFAULT 'PHOTO',
		tag TEXT,
		inventory_item_id INTEGER,
		consumption_qty INTEGER NOT NULL DEFAULT 1 CHECK (consumption_qty >= 1),
		active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS cash_closings (
		business_date TEXT PRIMARY KEY,
		closed_at TIMESTAMP NOT NULL,
		gross NUMERIC NOT NULL,
		fees NUMERIC NOT NULL,
		net NUMERIC NOT NULL,
		cash_net NUMERIC NOT NULL,
		card_net NUMERIC NOT NULL,
		pix_net NUMERIC NOT NULL,
		counted_amount NUMERIC,
		difference NUMERIC,
		note TEXT,
		automatic BOOLEAN NOT NULL DEFAULT 0
	)`,
}
