/*
Package ui renders the operations dashboard as a terminal UI.

Grid is a generic sortable, filterable, paginated table over a store
snapshot; it treats the snapshot as read-only and surfaces row moves as
ReorderMsg values for the app to persist. App composes one grid per entity
store with refresh, CSV export and insight commands, and resyncs grid
contents on a short tick so background change events become visible.
*/
package ui
