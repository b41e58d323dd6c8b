/*
Package postgres implements the RemoteSource contract on PostgreSQL.

Rows cross the boundary as jsonb documents: read-all selects to_jsonb(t.*),
writes return the stored row the same way, so one generic implementation
covers every registered record type and canonical records always reflect
server-side defaults.

Realtime change events ride LISTEN/NOTIFY. InstallChangefeed attaches a
row-level trigger that publishes {type, new, old} JSON on the table's
registered channel; Changes holds a dedicated connection on that channel and
reconnects with backoff when it drops.
*/
package postgres
