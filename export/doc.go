/*
Package export renders store snapshots as CSV documents on demand.
*/
package export
