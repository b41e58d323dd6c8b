/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/mfgstore/storagemodels"
)

// RemoteSource is the contract every storage backend satisfies for one record
// type T. Write operations return the server's canonical version of the
// record, never the caller's draft.
type RemoteSource[T any] interface {
	// SelectAll reads the full collection in the server's order.
	SelectAll(ctx context.Context) ([]T, error)

	// Insert stores a new record and returns the canonical record with
	// server-assigned fields populated.
	Insert(ctx context.Context, record T) (*T, error)

	// Update applies a partial update to the record identified by key and
	// returns the canonical record after the write. The changes map is keyed
	// by remote column name.
	Update(ctx context.Context, key string, changes map[string]any) (*T, error)

	// Delete removes the record identified by key.
	Delete(ctx context.Context, key string) error

	// Changes opens a change-notification channel for the record's table.
	// The channel is closed when ctx is cancelled or the feed gives up
	// reconnecting.
	Changes(ctx context.Context, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent[T], error)
}
