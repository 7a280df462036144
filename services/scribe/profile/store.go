// Copyright (C) 2026 Scriptorium AI (oss@scriptorium.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile persists per-user facts (preferred tone, language,
// typical target length) that seed a run's context snapshot. The engine
// itself only reads profiles; writes happen at the service edge.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badgerstore "github.com/ScriptoriumAI/ScriptoriumFOSS/services/scribe/storage/badger"
	dgbadger "github.com/dgraph-io/badger/v4"
)

// keyPrefix versions the storage layout so the encoding can change
// without key collisions.
const keyPrefix = "profile/v1/"

// errNotFound distinguishes an absent key from a storage failure.
var errNotFound = errors.New("profile key not found")

// Store is the read interface the engine's callers use to seed context
// snapshots.
type Store interface {
	// Get returns the value stored under key, or fallback when the key is
	// absent. Storage failures also return fallback; a profile read must
	// never block a run.
	Get(ctx context.Context, key string, fallback any) any

	// Set stores value under key. Values must be JSON-encodable.
	Set(ctx context.Context, key string, value any) error
}

// =============================================================================
// BadgerDB Store
// =============================================================================

// BadgerStore persists profile facts in an embedded BadgerDB instance.
// Values are JSON-encoded; the caller owns the DB lifecycle.
//
// Thread Safety: Safe for concurrent use.
type BadgerStore struct {
	db     *badgerstore.DB
	logger *slog.Logger
}

// NewBadgerStore creates a store over an opened DB.
func NewBadgerStore(db *badgerstore.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("profile store requires an opened database")
	}
	return &BadgerStore{db: db, logger: slog.Default()}, nil
}

// Get returns the stored value, or fallback on a miss or any failure.
func (s *BadgerStore) Get(ctx context.Context, key string, fallback any) any {
	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errNotFound
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, errNotFound) {
		return fallback
	}
	if err != nil {
		s.logger.Warn("profile read failed, using fallback",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fallback
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn("profile value corrupt, using fallback",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fallback
	}
	return value
}

// Set stores value under key.
func (s *BadgerStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode profile value for %s: %w", key, err)
	}
	err = s.db.WithWriteTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), raw)
	})
	if err != nil {
		return fmt.Errorf("write profile key %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// In-Memory Store
// =============================================================================

// MemoryStore is a map-backed Store for tests and for deployments without
// a profile directory configured. Not safe for concurrent writes; the
// service edge serializes profile updates.
type MemoryStore struct {
	values map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

func (s *MemoryStore) Get(_ context.Context, key string, fallback any) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	s.values[key] = value
	return nil
}
