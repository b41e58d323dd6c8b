/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"
)

// ChangeType tags a realtime change event with the operation it represents.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is one entry on a store's change-notification channel.
//
// Insert and update events carry the new row in New; delete events carry at
// least the primary key (Key) and, when the remote provides it, the old row
// in Old. Err is set instead of a payload when the backend could not decode
// the event; the consumer decides whether to flag it, but the channel keeps
// delivering subsequent events either way.
type ChangeEvent[T any] struct {
	Type ChangeType
	New  *T
	Old  *T
	Key  string
	Err  error
	Meta ChangeMeta
}

// ChangeMeta contains metadata about a delivered change event.
type ChangeMeta struct {
	Seq       int64     // Delivery index on this channel (0-based)
	Timestamp time.Time // When the backend received the event
	Source    string    // Backend identifier ("postgres", "dynamodb", "mock")
}
