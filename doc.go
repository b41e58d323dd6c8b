/*
Package mfgstore provides the data layer for a manufacturing operations
dashboard: type-safe entity stores that fetch, validate and cache remote
collections, merge realtime change events, and mediate all writes.

Each entity (products, raw materials, production batches) gets one
store.Store[T] backed by a pluggable remote source (PostgreSQL, DynamoDB, or
the in-memory mock). The root package ties them together:

	set := mfgstore.NewStoreSet()

	products, _ := store.New[models.Product]("products", pgSource)
	_ = mfgstore.RegisterStore(set, products)

	_ = mfgstore.Open(ctx, products) // fetch + subscribe

	s, _ := mfgstore.GetStore[models.Product](set, "products")
	for _, p := range s.Snapshot() {
		...
	}

Records are validated on every boundary crossing: fetch responses, write
payloads, canonical write responses, and realtime events. Stores keep
per-instance lifecycle state, so independent instances never interfere.
*/
package mfgstore
