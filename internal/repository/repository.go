// Package repository implements all database queries for the booking system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors. Each validation failure kind is distinguishable so the
// handler layer can map it to exactly one HTTP status.
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrItemNotFound        = errors.New("inventory item not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMemberLimitExceeded = errors.New("member reached maximum booking limit")
	ErrItemDepleted        = errors.New("item depleted")
	ErrItemExpired         = errors.New("item expired")
)

// Querier is the subset of pgx operations shared by a pool and a
// transaction. Repository methods that must run inside a caller-owned
// transaction take a Querier instead of reaching for the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is a transaction handle usable as a Querier.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB wraps a pgx pool so that Begin returns the narrow Tx interface,
// which keeps the transaction engine testable against fakes.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB wraps pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool}
}

// Begin opens a transaction.
func (d *DB) Begin(ctx context.Context) (Tx, error) {
	return d.Pool.Begin(ctx)
}

// reasonLimit caps the error text attached to a failed ingestion row.
const reasonLimit = 120

func truncateReason(err error) string {
	msg := err.Error()
	if len(msg) > reasonLimit {
		return msg[:reasonLimit]
	}
	return msg
}
