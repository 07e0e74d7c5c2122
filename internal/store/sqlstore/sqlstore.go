// Package sqlstore implements store.Repository on top of sqlx. The SQL is
// written with ? placeholders and rebound per driver, so the same queries
// serve the postgres and sqlite backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/store"
)

// Dialect holds what differs between backends.
type Dialect interface {
	Schema() []string
	// LockClause is appended to row reads made inside a write transaction.
	LockClause() string
	IsUniqueViolation(err error) bool
	WriteTxOptions() *sql.TxOptions
	ReadTxOptions() *sql.TxOptions
}

type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ store.Repository = (*Store)(nil)

func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return store.Failure("migrate", err)
		}
	}
	return nil
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, s.dialect.WriteTxOptions())
	if err != nil {
		return store.Failure("begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&conn{ext: tx, dialect: s.dialect, lock: s.dialect.LockClause()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return store.Failure("commit", err)
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	tx, err := s.db.BeginTxx(ctx, s.dialect.ReadTxOptions())
	if err != nil {
		return store.Failure("begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&conn{ext: tx, dialect: s.dialect}); err != nil {
		return err
	}
	return store.Failure("commit", tx.Commit())
}

// conn runs queries against one open transaction.
type conn struct {
	ext     sqlx.ExtContext
	dialect Dialect
	lock    string
}

func (c *conn) get(ctx context.Context, op string, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, c.ext, dest, c.ext.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return store.Failure(op, err)
}

func (c *conn) selectAll(ctx context.Context, op string, dest any, query string, args ...any) error {
	return store.Failure(op, sqlx.SelectContext(ctx, c.ext, dest, c.ext.Rebind(query), args...))
}

func (c *conn) insertReturningID(ctx context.Context, op string, query string, args ...any) (int64, error) {
	var id int64
	if err := c.ext.QueryRowxContext(ctx, c.ext.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, store.Failure(op, err)
	}
	return id, nil
}

// execOne fails with ErrNotFound when no row was touched.
func (c *conn) execOne(ctx context.Context, op string, query string, args ...any) error {
	affected, err := c.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *conn) exec(ctx context.Context, op string, query string, args ...any) (int64, error) {
	res, err := c.ext.ExecContext(ctx, c.ext.Rebind(query), args...)
	if err != nil {
		return 0, store.Failure(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, store.Failure(op, err)
	}
	return affected, nil
}

func saleWhere(q domain.SaleQuery) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if !q.From.IsZero() {
		clauses = append(clauses, "sold_at >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		clauses = append(clauses, "sold_at < ?")
		args = append(args, q.To.UTC())
	}
	if q.Method != "" {
		clauses = append(clauses, "method = ?")
		args = append(args, q.Method)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
