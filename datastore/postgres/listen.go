/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suparena/mfgstore/storagemodels"
)

// notifyPayload is the JSON document the changefeed trigger publishes with
// pg_notify. Delete events carry only the old row.
type notifyPayload struct {
	Type string          `json:"type"`
	New  json.RawMessage `json:"new,omitempty"`
	Old  json.RawMessage `json:"old,omitempty"`
}

// Changes opens a LISTEN session on the table's registered channel and
// delivers decoded change events until ctx is cancelled. Connection loss is
// retried with backoff up to MaxRetries; an undecodable notification is
// delivered as an event carrying Err and never stops the feed.
func (d *Datastore[T]) Changes(ctx context.Context, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent[T], error) {
	if d.tm.Channel == "" {
		return nil, fmt.Errorf("no notification channel registered for table %s", d.tm.Table)
	}
	if err := validIdentifier(d.tm.Channel); err != nil {
		return nil, err
	}

	options := storagemodels.DefaultSubscribeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	conn, err := d.listen(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan storagemodels.ChangeEvent[T], options.BufferSize)
	go d.pump(ctx, conn, ch, options)
	return ch, nil
}

// listen acquires a dedicated connection and issues LISTEN on it. The
// connection stays out of the pool until the feed ends.
func (d *Datastore[T]) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+d.tm.Channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", d.tm.Channel, err)
	}
	return conn, nil
}

// pump forwards notifications until ctx ends or reconnection gives up.
func (d *Datastore[T]) pump(ctx context.Context, conn *pgxpool.Conn, ch chan<- storagemodels.ChangeEvent[T], options storagemodels.SubscribeOptions) {
	defer close(ch)
	defer func() {
		if conn != nil {
			conn.Release()
		}
	}()

	var seq int64
	retries := 0
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if options.ErrorHandler != nil && !options.ErrorHandler(err) {
				d.log.Warn().Err(err).Msg("change feed stopped by error handler")
				return
			}
			if retries >= options.MaxRetries {
				d.log.Error().Err(err).Int("retries", retries).Msg("change feed giving up")
				return
			}
			retries++
			d.log.Warn().Err(err).Int("attempt", retries).Msg("listen connection lost, reconnecting")

			conn.Release()
			conn = nil
			select {
			case <-ctx.Done():
				return
			case <-time.After(options.RetryBackoff * time.Duration(retries)):
			}
			conn, err = d.listen(ctx)
			if err != nil {
				d.log.Error().Err(err).Msg("reconnect failed")
				return
			}
			continue
		}
		retries = 0

		ev := d.decodeNotification([]byte(notification.Payload))
		ev.Meta = storagemodels.ChangeMeta{
			Seq:       seq,
			Timestamp: time.Now(),
			Source:    "postgres",
		}
		seq++

		select {
		case <-ctx.Done():
			return
		case ch <- ev:
		}
	}
}

// decodeNotification turns a trigger payload into a typed change event. Any
// decode failure comes back as an event carrying Err.
func (d *Datastore[T]) decodeNotification(payload []byte) storagemodels.ChangeEvent[T] {
	var raw notifyPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return storagemodels.ChangeEvent[T]{Err: fmt.Errorf("malformed notification payload: %w", err)}
	}

	ev := storagemodels.ChangeEvent[T]{Type: storagemodels.ChangeType(raw.Type)}
	switch ev.Type {
	case storagemodels.ChangeInsert, storagemodels.ChangeUpdate:
		if len(raw.New) == 0 {
			ev.Err = fmt.Errorf("%s notification carries no row", raw.Type)
			return ev
		}
		var rec T
		if err := json.Unmarshal(raw.New, &rec); err != nil {
			ev.Err = fmt.Errorf("failed to decode %s row: %w", raw.Type, err)
			return ev
		}
		ev.New = &rec

	case storagemodels.ChangeDelete:
		if len(raw.Old) == 0 {
			ev.Err = fmt.Errorf("delete notification carries no row")
			return ev
		}
		var rec T
		if err := json.Unmarshal(raw.Old, &rec); err != nil {
			ev.Err = fmt.Errorf("failed to decode deleted row: %w", err)
			return ev
		}
		ev.Old = &rec
		ev.Key = d.keyFromRow(raw.Old)

	default:
		ev.Err = fmt.Errorf("unknown notification type %q", raw.Type)
	}
	return ev
}

// keyFromRow extracts the primary key column from a raw row document.
func (d *Datastore[T]) keyFromRow(row json.RawMessage) string {
	var cols map[string]any
	if err := json.Unmarshal(row, &cols); err != nil {
		return ""
	}
	v, ok := cols[d.tm.KeyColumn]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
