/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/suparena/mfgstore/datastore"
	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/metrics"
	"github.com/suparena/mfgstore/registry"
	"github.com/suparena/mfgstore/schema"
	"github.com/suparena/mfgstore/storagemodels"
)

// Store is the single source of truth for one remote-backed entity
// collection. It mediates all reads and writes against the remote source,
// validates every inbound record, and merges realtime change events into the
// in-memory collection.
//
// All guard and subscription state is instance state; independent Store
// values never share anything.
type Store[T any] struct {
	name     string
	src      datastore.RemoteSource[T]
	validate *schema.Validator[T]
	keyFunc  registry.KeyFunc[T]
	log      zerolog.Logger
	rec      metrics.Recorder
	subOpts  []storagemodels.SubscribeOption

	mu      sync.RWMutex
	state   State
	lastErr error
	records []T
	index   map[string]int
	fetched bool

	cancelSub context.CancelFunc
	subDone   chan struct{}
}

// Option configures a Store during construction.
type Option[T any] func(*Store[T])

// WithLogger attaches a logger; log lines carry the store name.
func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(s *Store[T]) {
		s.log = log
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics[T any](rec metrics.Recorder) Option[T] {
	return func(s *Store[T]) {
		s.rec = rec
	}
}

// WithValidator replaces the default schema validator for T.
func WithValidator[T any](v *schema.Validator[T]) Option[T] {
	return func(s *Store[T]) {
		s.validate = v
	}
}

// WithKeyFunc replaces the registry-provided primary-key extractor.
func WithKeyFunc[T any](fn registry.KeyFunc[T]) Option[T] {
	return func(s *Store[T]) {
		s.keyFunc = fn
	}
}

// WithSubscribeOptions sets the options used when the store opens its change
// feed.
func WithSubscribeOptions[T any](opts ...storagemodels.SubscribeOption) Option[T] {
	return func(s *Store[T]) {
		s.subOpts = opts
	}
}

// New constructs a Store for entity name backed by src. The primary-key
// extractor comes from the registry unless overridden with WithKeyFunc.
func New[T any](name string, src datastore.RemoteSource[T], opts ...Option[T]) (*Store[T], error) {
	if name == "" {
		return nil, fmt.Errorf("store name is required")
	}
	if src == nil {
		return nil, fmt.Errorf("remote source is required")
	}

	s := &Store[T]{
		name:  name,
		src:   src,
		log:   zerolog.Nop(),
		rec:   metrics.Nop{},
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.validate == nil {
		s.validate = schema.New[T](name)
	}
	if s.keyFunc == nil {
		fn, err := registry.GetKeyFunc[T]()
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", name, err)
		}
		s.keyFunc = fn
	}

	s.log = s.log.With().Str("store", name).Logger()
	return s, nil
}

// Name returns the entity name the store was created with.
func (s *Store[T]) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Store[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the last recorded error (last-write-wins), or nil.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearErr discards the recorded error, typically after the UI has shown it.
func (s *Store[T]) ClearErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Len returns the number of records in the collection.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a copy of the collection in its current order. Callers
// must not treat the copy as live; all mutation goes through store methods.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns a copy of the record with the given primary key.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[key]; ok {
		return s.records[i], true
	}
	var zero T
	return zero, false
}

// Subscribed reports whether the change feed is currently open.
func (s *Store[T]) Subscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelSub != nil
}

// Fetch performs the initial read-all load. It is guarded to run at most
// once per store lifetime: a second call (including a concurrent one, and
// including calls after a failed load) is a no-op. Use Refresh to reload and
// Reset to restore initial-fetch semantics.
func (s *Store[T]) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.fetched {
		s.mu.Unlock()
		return nil
	}
	s.fetched = true
	s.state = StateLoading
	s.mu.Unlock()

	return s.load(ctx, "fetch")
}

// Refresh reloads the collection, bypassing the fetch-once guard. It is the
// explicit retry/refresh path; a failed refresh leaves the previous
// collection untouched.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.fetched = true
	s.state = StateLoading
	s.mu.Unlock()

	return s.load(ctx, "refresh")
}

func (s *Store[T]) load(ctx context.Context, op string) error {
	start := time.Now()

	recs, err := s.src.SelectAll(ctx)
	if err != nil {
		terr := errors.NewTransportError(op, err)
		s.fail(terr)
		s.rec.Observe(s.name+"."+op, false, time.Since(start))
		s.log.Error().Err(err).Msg("read-all query failed")
		return terr
	}

	if err := s.validate.ValidateSlice(recs); err != nil {
		s.fail(err)
		s.rec.Observe(s.name+"."+op, false, time.Since(start))
		s.log.Error().Err(err).Msg("fetch response rejected by schema")
		return err
	}

	index := make(map[string]int, len(recs))
	for i, rec := range recs {
		key := s.keyFunc(rec)
		if key == "" {
			err := errors.NewValidationError("", fmt.Sprintf("%s record %d has no primary key", s.name, i))
			s.fail(err)
			s.rec.Observe(s.name+"."+op, false, time.Since(start))
			return err
		}
		if _, dup := index[key]; dup {
			err := errors.NewValidationError("", fmt.Sprintf("duplicate primary key %q in %s response", key, s.name))
			s.fail(err)
			s.rec.Observe(s.name+"."+op, false, time.Since(start))
			return err
		}
		index[key] = i
	}

	s.mu.Lock()
	s.records = recs
	s.index = index
	s.state = StateReady
	s.lastErr = nil
	s.mu.Unlock()

	s.rec.Observe(s.name+"."+op, true, time.Since(start))
	s.log.Info().Int("records", len(recs)).Msg("collection loaded")
	return nil
}

// fail records a load failure. The existing collection is left untouched.
func (s *Store[T]) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.state = StateError
	s.mu.Unlock()
}

// Add validates the record, transmits it, and appends the server-returned
// canonical record to the collection. On any failure the error is recorded
// and returned, and the collection is not mutated. The submitted draft is
// never stored.
func (s *Store[T]) Add(ctx context.Context, record T) (*T, error) {
	start := time.Now()

	if err := s.validate.Validate(record); err != nil {
		s.recordErr(err)
		s.rec.Observe(s.name+".add", false, time.Since(start))
		return nil, err
	}

	canonical, err := s.src.Insert(ctx, record)
	if err != nil {
		terr := errors.NewTransportError("insert", err)
		s.recordErr(terr)
		s.rec.Observe(s.name+".add", false, time.Since(start))
		return nil, terr
	}

	if err := s.acceptCanonical(canonical, "insert"); err != nil {
		s.rec.Observe(s.name+".add", false, time.Since(start))
		return nil, err
	}

	s.rec.Observe(s.name+".add", true, time.Since(start))
	s.log.Info().Str("key", s.keyFunc(*canonical)).Msg("record added")
	return canonical, nil
}

// Update transmits a partial update for the record identified by key and
// replaces the in-memory record with the validated canonical response. On
// failure the collection is untouched.
func (s *Store[T]) Update(ctx context.Context, key string, changes map[string]any) (*T, error) {
	start := time.Now()

	canonical, err := s.src.Update(ctx, key, changes)
	if err != nil {
		terr := errors.NewTransportError("update", err)
		s.recordErr(terr)
		s.rec.Observe(s.name+".update", false, time.Since(start))
		return nil, terr
	}

	if err := s.acceptCanonical(canonical, "update"); err != nil {
		s.rec.Observe(s.name+".update", false, time.Since(start))
		return nil, err
	}

	s.rec.Observe(s.name+".update", true, time.Since(start))
	s.log.Info().Str("key", key).Msg("record updated")
	return canonical, nil
}

// Delete removes the record identified by key, remotely and locally.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	start := time.Now()

	if err := s.src.Delete(ctx, key); err != nil {
		terr := errors.NewTransportError("delete", err)
		s.recordErr(terr)
		s.rec.Observe(s.name+".delete", false, time.Since(start))
		return terr
	}

	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()

	s.rec.Observe(s.name+".delete", true, time.Since(start))
	s.log.Info().Str("key", key).Msg("record deleted")
	return nil
}

// acceptCanonical validates a server-returned record and upserts it into the
// collection.
func (s *Store[T]) acceptCanonical(canonical *T, op string) error {
	if canonical == nil {
		err := errors.NewTransportError(op, fmt.Errorf("remote returned no canonical record"))
		s.recordErr(err)
		return err
	}
	if err := s.validate.Validate(*canonical); err != nil {
		err = fmt.Errorf("canonical %s record rejected: %w", s.name, err)
		s.recordErr(err)
		return err
	}
	key := s.keyFunc(*canonical)
	if key == "" {
		err := errors.NewValidationError("", fmt.Sprintf("canonical %s record has no primary key", s.name))
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.upsertLocked(key, *canonical)
	s.mu.Unlock()
	return nil
}

// Subscribe opens the store's change-notification channel and starts merging
// events into the collection. At most one channel is open per store
// instance; calling Subscribe while one is open is a no-op. Callers are
// responsible for fetching first.
func (s *Store[T]) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	if s.cancelSub != nil {
		s.mu.Unlock()
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := s.src.Changes(subCtx, s.subOpts...)
	if err != nil {
		cancel()
		terr := errors.NewTransportError("subscribe", err)
		s.lastErr = terr
		s.mu.Unlock()
		return terr
	}

	done := make(chan struct{})
	s.cancelSub = cancel
	s.subDone = done
	s.mu.Unlock()

	go s.consume(subCtx, ch, done)
	s.log.Debug().Msg("change feed opened")
	return nil
}

// Unsubscribe closes the change feed if open and waits for the consumer to
// stop. It is idempotent.
func (s *Store[T]) Unsubscribe() {
	s.mu.Lock()
	cancel := s.cancelSub
	done := s.subDone
	s.cancelSub = nil
	s.subDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Debug().Msg("change feed closed")
}

// Reset returns the store to its uninitialized state: the feed is closed,
// the collection cleared, and the fetch-once guard rearmed.
func (s *Store[T]) Reset() {
	s.Unsubscribe()

	s.mu.Lock()
	s.records = nil
	s.index = make(map[string]int)
	s.state = StateUninitialized
	s.lastErr = nil
	s.fetched = false
	s.mu.Unlock()
}

// consume drains the change feed until the channel closes or ctx ends.
func (s *Store[T]) consume(ctx context.Context, ch <-chan storagemodels.ChangeEvent[T], done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.applyEvent(ev)
		}
	}
}

// applyEvent merges one change event. A bad event records an error but never
// stops the feed or touches unrelated records.
func (s *Store[T]) applyEvent(ev storagemodels.ChangeEvent[T]) {
	if ev.Err != nil {
		s.recordErr(errors.NewEventError(s.name, string(ev.Type), ev.Err))
		s.rec.ObserveEvent(s.name, string(ev.Type), false)
		s.log.Warn().Err(ev.Err).Str("type", string(ev.Type)).Msg("undecodable change event")
		return
	}

	switch ev.Type {
	case storagemodels.ChangeInsert, storagemodels.ChangeUpdate:
		if ev.New == nil {
			s.recordErr(errors.NewEventError(s.name, string(ev.Type), fmt.Errorf("event carries no payload")))
			s.rec.ObserveEvent(s.name, string(ev.Type), false)
			return
		}
		if err := s.validate.Validate(*ev.New); err != nil {
			s.recordErr(errors.NewEventError(s.name, string(ev.Type), err))
			s.rec.ObserveEvent(s.name, string(ev.Type), false)
			s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("change event rejected by schema")
			return
		}
		key := s.keyFunc(*ev.New)
		if key == "" {
			s.recordErr(errors.NewEventError(s.name, string(ev.Type), fmt.Errorf("event payload has no primary key")))
			s.rec.ObserveEvent(s.name, string(ev.Type), false)
			return
		}

		s.mu.Lock()
		s.upsertLocked(key, *ev.New)
		s.mu.Unlock()
		s.rec.ObserveEvent(s.name, string(ev.Type), true)

	case storagemodels.ChangeDelete:
		key := ev.Key
		if key == "" && ev.Old != nil {
			key = s.keyFunc(*ev.Old)
		}
		if key == "" {
			s.recordErr(errors.NewEventError(s.name, string(ev.Type), fmt.Errorf("delete event carries no key")))
			s.rec.ObserveEvent(s.name, string(ev.Type), false)
			return
		}

		s.mu.Lock()
		s.removeLocked(key)
		s.mu.Unlock()
		s.rec.ObserveEvent(s.name, string(ev.Type), true)

	default:
		s.recordErr(errors.NewEventError(s.name, string(ev.Type), fmt.Errorf("unknown event type")))
		s.rec.ObserveEvent(s.name, string(ev.Type), false)
	}
}

func (s *Store[T]) recordErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// upsertLocked replaces the record at key in place, or appends it. Caller
// holds the write lock.
func (s *Store[T]) upsertLocked(key string, record T) {
	if i, ok := s.index[key]; ok {
		s.records[i] = record
		return
	}
	s.records = append(s.records, record)
	s.index[key] = len(s.records) - 1
}

// removeLocked deletes the record at key, preserving the order of the rest.
// Caller holds the write lock.
func (s *Store[T]) removeLocked(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, key)
	for k, j := range s.index {
		if j > i {
			s.index[k] = j - 1
		}
	}
}
