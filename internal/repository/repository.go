// Package repository stores the catalog, profiles, orders and the outbox in
// Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/easyshop/internal/checkout"
	"github.com/lib/pq"
)

var ErrDuplicateEvent = errors.New("outbox event already exists")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs checkout writes in one Postgres transaction.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s checkout.TxStores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	orders := &OrderRepository{q: tx}
	stores := checkout.TxStores{
		Orders: orders,
		Lines:  orderLines{orders},
		Outbox: &OutboxRepository{q: tx},
	}
	if err := fn(ctx, stores); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
