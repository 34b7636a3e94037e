package backend

import "context"

// Manager owns a backend's connections and scopes operations to them.
//
// All operations inside a WithTransaction callback run atomically on one
// connection: the transaction commits when the callback returns nil and
// rolls back when it returns an error. WithoutTransaction pins a connection
// without atomicity, which connection-local state (temporary tables,
// session settings) requires.
type Manager[K any] interface {
	// WithTransaction runs fn inside a transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, b Backend[K]) error) error

	// WithoutTransaction runs fn with all operations pinned to a single
	// connection, without transactional guarantees.
	WithoutTransaction(ctx context.Context, fn func(ctx context.Context, b Backend[K]) error) error

	// Close releases every connection. The manager is unusable afterwards.
	Close() error
}

// ConnectionBound marks a backend whose operations are guaranteed to run on
// one underlying connection, which both Manager callbacks provide. Code
// depending on connection-local state can require this interface to make
// the guarantee explicit.
type ConnectionBound interface {
	// SameConnection reports true; the method exists so the guarantee is a
	// checked capability instead of a convention.
	SameConnection() bool
}
