/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mfgstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/mfgstore/store"
)

// StoreSet holds the application's entity stores, keyed by record type and
// entity name. Its methods use any because Go methods cannot be generic; the
// typed accessors below do the assertions.
type StoreSet struct {
	mu     sync.RWMutex
	stores map[reflect.Type]map[string]any
}

// NewStoreSet creates an empty StoreSet.
func NewStoreSet() *StoreSet {
	return &StoreSet{
		stores: make(map[reflect.Type]map[string]any),
	}
}

// RegisterStore adds a store under its entity name. Registering the same
// name twice for one type is an error.
func RegisterStore[T any](set *StoreSet, s *store.Store[T]) error {
	var zero T
	typ := reflect.TypeOf(zero)

	set.mu.Lock()
	defer set.mu.Unlock()

	byName, ok := set.stores[typ]
	if !ok {
		byName = make(map[string]any)
		set.stores[typ] = byName
	}
	if _, exists := byName[s.Name()]; exists {
		return fmt.Errorf("store %q already registered for type %T", s.Name(), zero)
	}
	byName[s.Name()] = s
	return nil
}

// GetStore retrieves the store registered for type T under name.
func GetStore[T any](set *StoreSet, name string) (*store.Store[T], error) {
	var zero T
	typ := reflect.TypeOf(zero)

	set.mu.RLock()
	defer set.mu.RUnlock()

	byName, ok := set.stores[typ]
	if !ok {
		return nil, fmt.Errorf("no stores registered for type %T", zero)
	}
	s, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("store %q not found for type %T", name, zero)
	}
	return s.(*store.Store[T]), nil
}

// resettable is the subset of store behavior the set-wide operations need.
type resettable interface {
	Unsubscribe()
	Reset()
}

// UnsubscribeAll closes every registered store's change feed. Used on
// shutdown.
func (set *StoreSet) UnsubscribeAll() {
	set.mu.RLock()
	defer set.mu.RUnlock()
	for _, byName := range set.stores {
		for _, s := range byName {
			if r, ok := s.(resettable); ok {
				r.Unsubscribe()
			}
		}
	}
}

// ResetAll returns every registered store to its uninitialized state.
func (set *StoreSet) ResetAll() {
	set.mu.RLock()
	defer set.mu.RUnlock()
	for _, byName := range set.stores {
		for _, s := range byName {
			if r, ok := s.(resettable); ok {
				r.Reset()
			}
		}
	}
}

// Open fetches and subscribes one store: the standard startup sequence.
func Open[T any](ctx context.Context, s *store.Store[T]) error {
	if err := s.Fetch(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}
