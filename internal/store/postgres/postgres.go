package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"tillledger/internal/store/sqlstore"
)

type Store struct {
	*sqlstore.Store
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{Store: sqlstore.New(db, Dialect{})}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

type Dialect struct{}

func (Dialect) Schema() []string {
	return schema
}

func (Dialect) LockClause() string {
	return " FOR UPDATE"
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (Dialect) WriteTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (Dialect) ReadTxOptions() *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: true}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		sold_at TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL,
		gross NUMERIC(14,2) NOT NULL CHECK (gross >= 0),
		method TEXT NOT NULL CHECK (method IN ('CASH', 'CARD', 'PIX')),
		fee NUMERIC(14,2) NOT NULL CHECK (fee >= 0),
		net NUMERIC(14,2) NOT NULL CHECK (net >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sales_sold_at_idx ON sales (sold_at)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT,
		size TEXT,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		total_cost NUMERIC(14,2) NOT NULL CHECK (total_cost >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id TEXT PRIMARY KEY,
		item_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		qty_before INTEGER NOT NULL,
		qty_after INTEGER NOT NULL,
		cost_before NUMERIC(14,2) NOT NULL,
		cost_after NUMERIC(14,2) NOT NULL,
		reason TEXT,
		moved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS stock_movements_item_idx ON stock_movements (item_id, moved_at)`,
	`CREATE TABLE IF NOT EXISTS sale_templates (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC(14,2) NOT NULL CHECK (price >= 0),
		size TEXT,
		icon TEXT NOT NULL DEFAULT 'PHOTO',
		tag TEXT,
		inventory_item_id BIGINT,
		consumption_qty INTEGER NOT NULL DEFAULT 1 CHECK (consumption_qty >= 1),
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS cash_closings (
		business_date DATE PRIMARY KEY,
		closed_at TIMESTAMPTZ NOT NULL,
		gross NUMERIC(14,2) NOT NULL,
		fees NUMERIC(14,2) NOT NULL,
		net NUMERIC(14,2) NOT NULL,
		cash_net NUMERIC(14,2) NOT NULL,
		card_net NUMERIC(14,2) NOT NULL,
		pix_net NUMERIC(14,2) NOT NULL,
		counted_amount NUMERIC(14,2),
		difference NUMERIC(14,2),
		note TEXT,
		automatic BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}
