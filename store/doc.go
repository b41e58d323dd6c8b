/*
Package store provides the in-memory entity store that fronts a remote
collection.

A Store[T] owns one entity collection end to end: the initial read-all fetch,
schema validation of everything that crosses the wire, local mutation through
Add/Update/Delete, and the merge of realtime change events delivered by the
backing RemoteSource. Consumers read through Snapshot and Get; they never
mutate store contents directly.

Each Store carries its own lifecycle state and fetch-once guard, so several
stores (or several instances for the same entity) operate independently.
*/
package store
