/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the RemoteSource
// interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/storagemodels"
)

// RemoteSource is an in-memory implementation of datastore.RemoteSource[T]
// for testing. Change events are injected with EmitChange.
type RemoteSource[T any] struct {
	mu          sync.RWMutex
	records     []T
	keyFunc     func(T) string
	selectErr   error
	insertErr   error
	updateErr   error
	deleteErr   error
	changesErr  error
	insertFunc  func(ctx context.Context, record T) (*T, error)
	updateFunc  func(ctx context.Context, key string, changes map[string]any) (*T, error)
	selectCalls int
	insertCalls int
	updateCalls int
	deleteCalls int
	seq         int64
	subs        map[int]chan storagemodels.ChangeEvent[T]
	nextSub     int
}

// New creates a new mock RemoteSource.
func New[T any]() *RemoteSource[T] {
	return &RemoteSource[T]{
		subs: make(map[int]chan storagemodels.ChangeEvent[T]),
	}
}

// WithKeyFunc sets a custom function to extract keys from records.
func (m *RemoteSource[T]) WithKeyFunc(f func(T) string) *RemoteSource[T] {
	m.keyFunc = f
	return m
}

// WithSelectError makes SelectAll return an error.
func (m *RemoteSource[T]) WithSelectError(err error) *RemoteSource[T] {
	m.selectErr = err
	return m
}

// WithInsertError makes Insert return an error.
func (m *RemoteSource[T]) WithInsertError(err error) *RemoteSource[T] {
	m.insertErr = err
	return m
}

// WithUpdateError makes Update return an error.
func (m *RemoteSource[T]) WithUpdateError(err error) *RemoteSource[T] {
	m.updateErr = err
	return m
}

// WithDeleteError makes Delete return an error.
func (m *RemoteSource[T]) WithDeleteError(err error) *RemoteSource[T] {
	m.deleteErr = err
	return m
}

// WithChangesError makes Changes fail to open.
func (m *RemoteSource[T]) WithChangesError(err error) *RemoteSource[T] {
	m.changesErr = err
	return m
}

// WithInsertFunc sets a custom insert implementation, typically used to
// return a canonical record differing from the submitted draft.
func (m *RemoteSource[T]) WithInsertFunc(f func(ctx context.Context, record T) (*T, error)) *RemoteSource[T] {
	m.insertFunc = f
	return m
}

// WithUpdateFunc sets a custom update implementation.
func (m *RemoteSource[T]) WithUpdateFunc(f func(ctx context.Context, key string, changes map[string]any) (*T, error)) *RemoteSource[T] {
	m.updateFunc = f
	return m
}

// SelectAll returns the seeded records in order.
func (m *RemoteSource[T]) SelectAll(ctx context.Context) ([]T, error) {
	m.mu.Lock()
	m.selectCalls++
	m.mu.Unlock()

	if m.selectErr != nil {
		return nil, m.selectErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Insert appends the record and returns it as the canonical version, unless
// a custom insert func is installed.
func (m *RemoteSource[T]) Insert(ctx context.Context, record T) (*T, error) {
	m.mu.Lock()
	m.insertCalls++
	m.mu.Unlock()

	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if m.insertFunc != nil {
		canonical, err := m.insertFunc(ctx, record)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.records = append(m.records, *canonical)
		m.mu.Unlock()
		out := *canonical
		return &out, nil
	}

	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	out := record
	return &out, nil
}

// Update returns the stored record matching key, after applying a custom
// update func when installed.
func (m *RemoteSource[T]) Update(ctx context.Context, key string, changes map[string]any) (*T, error) {
	m.mu.Lock()
	m.updateCalls++
	m.mu.Unlock()

	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.updateFunc != nil {
		return m.updateFunc(ctx, key, changes)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if m.extractKey(rec) == key {
			out := rec
			return &out, nil
		}
	}
	var zero T
	return nil, errors.NewNotFoundError(fmt.Sprintf("%T", zero), key)
}

// Delete removes the record matching key.
func (m *RemoteSource[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.deleteCalls++
	m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.records {
		if m.extractKey(rec) == key {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	var zero T
	return errors.NewNotFoundError(fmt.Sprintf("%T", zero), key)
}

// Changes opens a change channel fed by EmitChange. The channel closes when
// ctx is cancelled.
func (m *RemoteSource[T]) Changes(ctx context.Context, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent[T], error) {
	if m.changesErr != nil {
		return nil, m.changesErr
	}

	options := storagemodels.DefaultSubscribeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	ch := make(chan storagemodels.ChangeEvent[T], options.BufferSize)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		// Close under the same lock EmitChange sends under, so a late emit
		// can never hit a closed channel.
		m.mu.Lock()
		delete(m.subs, id)
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}

// EmitChange delivers a change event to every open channel. The Meta fields
// are filled in if unset.
func (m *RemoteSource[T]) EmitChange(ev storagemodels.ChangeEvent[T]) {
	m.mu.Lock()
	if ev.Meta.Timestamp.IsZero() {
		ev.Meta.Timestamp = time.Now()
	}
	if ev.Meta.Source == "" {
		ev.Meta.Source = "mock"
	}
	ev.Meta.Seq = m.seq
	m.seq++
	// Buffered sends under the lock; test feeds stay far below the buffer.
	for _, ch := range m.subs {
		ch <- ev
	}
	m.mu.Unlock()
}

// Helper methods for testing

// SetRecords seeds the backing collection.
func (m *RemoteSource[T]) SetRecords(records []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make([]T, len(records))
	copy(m.records, records)
}

// Records returns a copy of the backing collection.
func (m *RemoteSource[T]) Records() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.records))
	copy(out, m.records)
	return out
}

// SelectCalls returns how many times SelectAll was invoked.
func (m *RemoteSource[T]) SelectCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectCalls
}

// InsertCalls returns how many times Insert was invoked.
func (m *RemoteSource[T]) InsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.insertCalls
}

// UpdateCalls returns how many times Update was invoked.
func (m *RemoteSource[T]) UpdateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updateCalls
}

// DeleteCalls returns how many times Delete was invoked.
func (m *RemoteSource[T]) DeleteCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deleteCalls
}

// OpenFeeds returns the number of currently open change channels.
func (m *RemoteSource[T]) OpenFeeds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *RemoteSource[T]) extractKey(record T) string {
	if m.keyFunc != nil {
		return m.keyFunc(record)
	}
	return fmt.Sprintf("key_%v", record)
}
