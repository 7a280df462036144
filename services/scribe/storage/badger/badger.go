// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps an embedded BadgerDB instance behind small
// transaction helpers so callers never hold raw DB handles.
package badger

import (
	"context"
	"fmt"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// Config controls how the database is opened.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string

	// InMemory opens a non-persistent instance, used by tests.
	InMemory bool
}

// DefaultConfig returns an on-disk configuration with no path set; the
// caller fills Path before OpenDB.
func DefaultConfig() Config {
	return Config{}
}

// InMemoryConfig returns a non-persistent configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// DB is an opened BadgerDB instance. The owner (typically main or a test)
// opens it once and closes it on shutdown; stores built on top borrow it
// and never manage its lifecycle.
//
// Thread Safety: Safe for concurrent use. Transactions are per-goroutine.
type DB struct {
	db *dgbadger.DB
}

// OpenDB opens the database described by cfg.
func OpenDB(cfg Config) (*DB, error) {
	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger: path required for on-disk database")
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Path, err)
	}
	return &DB{db: db}, nil
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// WithReadTxn runs fn inside a read-only transaction. The context is
// checked before the transaction starts; BadgerDB reads are fast enough
// that mid-transaction cancellation is not worth plumbing.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// WithWriteTxn runs fn inside a read-write transaction.
func (d *DB) WithWriteTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}
