/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/registry"
)

// Datastore is the PostgreSQL implementation of datastore.RemoteSource[T].
// Rows travel as jsonb documents in both directions, so one implementation
// serves every registered record type without per-type SQL.
type Datastore[T any] struct {
	pool *pgxpool.Pool
	tm   registry.TableMap
	log  zerolog.Logger
}

// Option configures a Datastore during construction.
type Option[T any] func(*Datastore[T])

// WithLogger attaches a logger to the datastore.
func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(d *Datastore[T]) {
		d.log = log
	}
}

// New creates a PostgreSQL datastore for type T. The type must have a table
// map registered; see registry.RegisterTableMap.
func New[T any](pool *pgxpool.Pool, opts ...Option[T]) (*Datastore[T], error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	tm, ok := registry.GetTableMap[T]()
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T", errors.ErrNoTableMap, zero)
	}

	d := &Datastore[T]{
		pool: pool,
		tm:   tm,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("table", tm.Table).Logger()
	return d, nil
}

// Connect opens a connection pool from a standard PostgreSQL connection
// string and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

// SelectAll reads the full table in its registered order.
func (d *Datastore[T]) SelectAll(ctx context.Context) ([]T, error) {
	sql, err := buildSelectSQL(d.tm)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.tm.Table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", d.tm.Table, err)
		}
		var rec T
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", d.tm.Table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading %s rows: %w", d.tm.Table, err)
	}
	return out, nil
}

// Insert stores the record and returns the row as the server wrote it,
// including defaulted and generated columns.
func (d *Datastore[T]) Insert(ctx context.Context, record T) (*T, error) {
	sql, err := buildInsertSQL(d.tm)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", d.tm.Table, err)
	}

	var stored []byte
	if err := d.pool.QueryRow(ctx, sql, doc).Scan(&stored); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.NewAlreadyExistsError(d.tm.Table, "")
		}
		return nil, fmt.Errorf("failed to insert into %s: %w", d.tm.Table, err)
	}

	var canonical T
	if err := json.Unmarshal(stored, &canonical); err != nil {
		return nil, fmt.Errorf("failed to decode stored %s row: %w", d.tm.Table, err)
	}
	d.log.Debug().Msg("record inserted")
	return &canonical, nil
}

// Update applies the changed columns to the row identified by key and returns
// the row after the write.
func (d *Datastore[T]) Update(ctx context.Context, key string, changes map[string]any) (*T, error) {
	sql, args, err := buildUpdateSQL(d.tm, key, changes)
	if err != nil {
		return nil, err
	}

	var stored []byte
	if err := d.pool.QueryRow(ctx, sql, args...).Scan(&stored); err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError(d.tm.Table, key)
		}
		return nil, fmt.Errorf("failed to update %s: %w", d.tm.Table, err)
	}

	var canonical T
	if err := json.Unmarshal(stored, &canonical); err != nil {
		return nil, fmt.Errorf("failed to decode updated %s row: %w", d.tm.Table, err)
	}
	d.log.Debug().Str("key", key).Msg("record updated")
	return &canonical, nil
}

// Delete removes the row identified by key.
func (d *Datastore[T]) Delete(ctx context.Context, key string) error {
	sql, err := buildDeleteSQL(d.tm)
	if err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx, sql, key)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", d.tm.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(d.tm.Table, key)
	}
	d.log.Debug().Str("key", key).Msg("record deleted")
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if stderrors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
