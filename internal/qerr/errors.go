// Package qerr provides standardized error handling for quarry.
// All errors carry stable, machine-readable codes, structured context,
// and support errors.Is/errors.As wrapping.
package qerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: Q{category}{number} where category is 1-9 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Schema errors (Q1xxx) - problems with entity/type definitions
	ErrSchemaInvalid   Code = "Q1001" // Entity or type definition is malformed
	ErrSchemaCycle     Code = "Q1002" // Embedded structure embeds itself (transitively)
	ErrSchemaDuplicate Code = "Q1003" // Duplicate field, constructor, or unique name
	ErrFieldNotFound   Code = "Q1004" // Referenced field does not exist
	ErrNotEmbedded     Code = "Q1005" // Nested access through a non-embedded field

	// Codec errors (Q2xxx) - problems with value encoding/decoding
	ErrDecodeUnderflow Code = "Q2001" // Fewer primitive values than the decoder expects
	ErrDecodeShape     Code = "Q2002" // Primitive value has the wrong variant for the column
	ErrNullableNested  Code = "Q2003" // Nullable-of-nullable composition is ambiguous
	ErrCustomNested    Code = "Q2004" // Custom expression nested in another custom expression

	// Query errors (Q3xxx) - problems with query construction
	ErrOptionReapplied Code = "Q3001" // limit/offset/order/distinct applied twice
	ErrBadProjection   Code = "Q3002" // Expression cannot appear where it was used

	// Migration errors (Q4xxx) - problems with migration planning
	ErrMigrationPlan     Code = "Q4001" // Schema change is ambiguous or unsupported
	ErrMigrationConflict Code = "Q4002" // Two entities disagree on one table's shape

	// Backend errors (Q5xxx) - problems with database operations
	ErrSQLExecution  Code = "Q5001" // SQL statement failed to execute
	ErrSQLConnection Code = "Q5002" // Database connection failed
	ErrTransaction   Code = "Q5003" // Transaction or savepoint operation failed
	ErrRowNotFound   Code = "Q5004" // Lookup by key or unique matched no row
	ErrRowCorrupt    Code = "Q5005" // Row decoded to the wrong shape

	// Internal errors (Q9xxx) - unexpected internal errors
	ErrInternal Code = "Q9001" // Internal error
)

// Error is the standard error type for quarry.
// It provides structured error information with codes, context, and wrapping.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
}

// Error returns the formatted error string.
// Format:
//
//	[Q1005] nested access requires an embedded field
//	  entity: order
//	  field: total
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	// Write context in sorted order for deterministic output
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target error matches this error.
// Two *Error values match when their codes are equal.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// With adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithEntity adds entity context to the error.
// Format: "namespace.entity" or just "entity" if namespace is empty.
func (e *Error) WithEntity(ns, entity string) *Error {
	if ns != "" {
		return e.With("entity", ns+"."+entity)
	}
	return e.With("entity", entity)
}

// WithField adds field context to the error.
func (e *Error) WithField(name string) *Error {
	return e.With("field", name)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
	}
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var qe *Error
	if errors.As(err, &qe) {
		return qe.code
	}

	return ""
}

// Is checks if an error has the specified code.
func Is(err error, code Code) bool {
	return GetErrorCode(err) == code
}

// HasCode checks if an error has any error code.
func HasCode(err error) bool {
	return GetErrorCode(err) != ""
}

// WrapSQL creates an ErrSQLExecution error with table context.
// Use for wrapping SQL errors with consistent formatting.
// Example: WrapSQL(err, "insert row", "shop_order")
func WrapSQL(err error, op string, table string) *Error {
	e := Wrap(ErrSQLExecution, err, "failed to "+op)
	if table != "" {
		e.With("table", table)
	}
	return e
}
