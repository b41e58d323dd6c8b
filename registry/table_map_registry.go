/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// TableMap describes where a record type lives on the remote data source and
// how its change feed is addressed. The Keys templates are only meaningful to
// the DynamoDB backend; macro fields ({SkuID} etc.) refer to struct field
// names of the registered type.
type TableMap struct {
	// Table is the remote table name (e.g. "products").
	Table string
	// KeyColumn is the primary identifier column (e.g. "sku_id").
	KeyColumn string
	// Channel is the notification channel carrying change events for the table.
	Channel string
	// OrderBy is the server-side ordering applied to read-all queries.
	OrderBy string
	// Keys holds DynamoDB key templates keyed by attribute name
	// (e.g. "PK": "PRODUCT#{SkuID}").
	Keys map[string]string
}

var (
	tableMapRegistry = make(map[reflect.Type]TableMap)
	tableMu          sync.RWMutex
)

// RegisterTableMap associates a Go type T with its remote table layout.
func RegisterTableMap[T any](tm TableMap) {
	var zero T
	t := reflect.TypeOf(zero)

	tableMu.Lock()
	defer tableMu.Unlock()
	tableMapRegistry[t] = tm
}

// GetTableMap retrieves the table map for type T, if any.
func GetTableMap[T any]() (TableMap, bool) {
	var zero T
	t := reflect.TypeOf(zero)

	tableMu.RLock()
	defer tableMu.RUnlock()
	tm, ok := tableMapRegistry[t]
	return tm, ok
}

// SetTableOverride replaces registered table settings for the type whose
// current table name matches name. Used by configuration loading to point an
// entity at a non-default table or channel without touching code.
func SetTableOverride(name string, override func(TableMap) TableMap) bool {
	tableMu.Lock()
	defer tableMu.Unlock()
	for t, tm := range tableMapRegistry {
		if tm.Table == name {
			tableMapRegistry[t] = override(tm)
			return true
		}
	}
	return false
}
