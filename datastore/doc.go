/*
Package datastore defines the remote-source contract of the manufacturing
store's persistence layer.

The main interface is RemoteSource[T], which provides generic collection
operations for any record type T:

	type RemoteSource[T any] interface {
	    SelectAll(ctx context.Context) ([]T, error)
	    Insert(ctx context.Context, record T) (*T, error)
	    Update(ctx context.Context, key string, changes map[string]any) (*T, error)
	    Delete(ctx context.Context, key string) error
	    Changes(ctx context.Context, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent[T], error)
	}

Implementations:
  - postgres: pgx-backed implementation with LISTEN/NOTIFY change feeds
  - ddb: DynamoDB implementation with Streams-based change feeds
  - mock: in-memory implementation for testing

The exact transport is a backend concern; the entity stores only see this
contract.
*/
package datastore
