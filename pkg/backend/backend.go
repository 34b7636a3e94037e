// Package backend defines the contract a storage backend fulfills: typed
// row operations over flattened entities, raw SQL escape hatches, migration
// execution, and connection lifecycle management.
//
// A backend deals exclusively in primitive values and flattened relations;
// codecs translate application values at the boundary above it.
package backend

import (
	"context"

	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/query"
	"github.com/quarrydb/quarry/pkg/schema"
)

// Descriptor extends the schema-level descriptor with the construction of
// backend-native raw payloads. Raw payloads flow opaquely through query
// trees; only the backend that minted one can render it.
type Descriptor interface {
	schema.Descriptor

	// RawExpr builds the backend's payload for a raw query node from a
	// template with ? placeholders and its substitution values.
	RawExpr(template string, args ...primitive.Value) (any, error)
}

// Backend executes operations for entities whose rows are keyed by K.
// Implementations must be safe for concurrent use.
//
// Rows passed to write operations carry the entity's flattened data columns
// in relation order, excluding the backend-generated key and the
// discriminant; the backend derives the discriminant from the constructor
// name. Columns of other constructors are passed as Null. Rows returned by
// reads carry every column, key and discriminant included.
type Backend[K any] interface {
	// Descriptor reports the backend's identity and raw payload factory.
	Descriptor() Descriptor

	// ---------------------------------------------------------------------
	// Writes
	// ---------------------------------------------------------------------

	// Insert adds a row and returns its backend-generated key.
	Insert(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) (K, error)

	// InsertNoKey adds a row to an entity without a generated key.
	InsertNoKey(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) error

	// InsertOrGet adds a row unless a unique key collides, in which case it
	// returns the key of the row holding the named unique key's values.
	// The second result reports whether the row already existed.
	InsertOrGet(ctx context.Context, e *schema.Entity, ctor, unique string, row []primitive.Value) (K, bool, error)

	// InsertOrGetByAny is InsertOrGet over every unique key of the
	// constructor. When several distinct rows collide on different unique
	// keys, the returned row is the first one found; which one that is is
	// not specified.
	InsertOrGetByAny(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) (K, bool, error)

	// ReplaceByKey overwrites the row with the given key.
	ReplaceByKey(ctx context.Context, e *schema.Entity, ctor string, key K, row []primitive.Value) error

	// ReplaceByUnique overwrites the row matching the named unique key's
	// values within row.
	ReplaceByUnique(ctx context.Context, e *schema.Entity, ctor, unique string, row []primitive.Value) error

	// Update applies assignments to every row matching the condition and
	// returns the number of affected rows.
	Update(ctx context.Context, e *schema.Entity, updates []query.Update, cond query.Cond) (int64, error)

	// ---------------------------------------------------------------------
	// Reads
	// ---------------------------------------------------------------------

	// Select streams the full flattened rows matching the options.
	Select(ctx context.Context, e *schema.Entity, opts query.Options) (Rows, error)

	// SelectAll streams every row of the entity, unordered, discriminant
	// included for sum entities.
	SelectAll(ctx context.Context, e *schema.Entity) (Rows, error)

	// Project streams chosen projections of the rows matching the options.
	Project(ctx context.Context, e *schema.Entity, proj []query.Projection, opts query.Options) (Rows, error)

	// GetByKey fetches one row by key. Missing rows report ErrRowNotFound.
	GetByKey(ctx context.Context, e *schema.Entity, key K) ([]primitive.Value, error)

	// GetByUnique fetches one row by the named unique key's member values.
	GetByUnique(ctx context.Context, e *schema.Entity, ctor, unique string, members []primitive.Value) ([]primitive.Value, error)

	// Count returns the number of rows matching the condition.
	Count(ctx context.Context, e *schema.Entity, cond query.Cond) (int64, error)

	// CountAll returns the entity's total row count.
	CountAll(ctx context.Context, e *schema.Entity) (int64, error)

	// ---------------------------------------------------------------------
	// Deletes
	// ---------------------------------------------------------------------

	// DeleteWhere removes matching rows and returns how many went away.
	DeleteWhere(ctx context.Context, e *schema.Entity, cond query.Cond) (int64, error)

	// DeleteByKey removes one row by key. Missing rows report ErrRowNotFound.
	DeleteByKey(ctx context.Context, e *schema.Entity, key K) error

	// DeleteAll removes every row of the entity.
	DeleteAll(ctx context.Context, e *schema.Entity) (int64, error)

	// ---------------------------------------------------------------------
	// Lists
	// ---------------------------------------------------------------------

	// InsertList stores list elements in the side table and returns the
	// surrogate list id the owner row stores. Each element row is the
	// flattened element value; positions are assigned from slice order.
	InsertList(ctx context.Context, table string, elems [][]primitive.Value) (K, error)

	// GetList streams the element rows of a stored list in position order.
	GetList(ctx context.Context, table string, listID K) (Rows, error)

	// ---------------------------------------------------------------------
	// Schema and raw access
	// ---------------------------------------------------------------------

	// Migrate executes a planned step list. Unsafe steps are refused unless
	// allowUnsafe is set.
	Migrate(ctx context.Context, steps []migrate.Step, allowUnsafe bool) error

	// ExecRaw runs a statement and returns the affected row count.
	ExecRaw(ctx context.Context, sql string, args []primitive.Value) (int64, error)

	// QueryRaw streams the rows of an arbitrary query. Backends may hold on
	// to the prepared form of queries marked cacheable.
	QueryRaw(ctx context.Context, sql string, args []primitive.Value, cacheable bool) (Rows, error)
}

// Savepointer is an optional capability of transactional backends: nested
// atomic sections that roll back to the savepoint on failure and release it
// on success.
type Savepointer interface {
	WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error
}
