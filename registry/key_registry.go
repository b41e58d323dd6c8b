package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// KeyFunc extracts the primary identifier from a record. It returns the empty
// string when the record carries no usable key.
type KeyFunc[T any] func(T) string

var (
	keyFuncRegistry = make(map[reflect.Type]any)
	keyMu           sync.RWMutex
)

// RegisterKeyFunc registers the primary-key extractor for type T.
// Registering a second extractor for the same type panics to prevent
// accidental overrides.
func RegisterKeyFunc[T any](fn KeyFunc[T]) {
	var zero T
	t := reflect.TypeOf(zero)

	keyMu.Lock()
	defer keyMu.Unlock()
	if _, exists := keyFuncRegistry[t]; exists {
		panic(fmt.Sprintf("key registry: key func for type %T already registered", zero))
	}
	keyFuncRegistry[t] = fn
}

// GetKeyFunc returns the registered primary-key extractor for type T.
func GetKeyFunc[T any]() (KeyFunc[T], error) {
	var zero T
	t := reflect.TypeOf(zero)

	keyMu.RLock()
	defer keyMu.RUnlock()
	fn, ok := keyFuncRegistry[t]
	if !ok {
		return nil, fmt.Errorf("key registry: no key func registered for type %T", zero)
	}
	return fn.(KeyFunc[T]), nil
}
