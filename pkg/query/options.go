package query

import (
	"github.com/quarrydb/quarry/internal/qerr"
)

// Options bundles a condition with paging, ordering, distinct, and
// backend-specific named sub-options.
//
// Options is an immutable value with construction-time state tracking: each
// of limit, offset, order, and distinct may be applied at most once per
// chain. A second application is a construction error — a programmer error
// at the call site, reported immediately rather than silently overwriting
// the earlier setting. The zero value is the default state: true condition,
// no limit, no offset, no ordering, distinct off.
type Options struct {
	cond     Cond
	limit    int64
	offset   int64
	orders   []Order
	distinct bool
	sub      map[string]any

	// already-set flags, one per clause
	limitSet    bool
	offsetSet   bool
	orderSet    bool
	distinctSet bool
}

// Where starts an options chain from a bare condition.
func Where(c Cond) Options {
	if c == nil {
		c = True{}
	}
	return Options{cond: c}
}

// LimitTo caps the number of returned rows. Applying a limit twice in one
// chain is a construction error.
func (o Options) LimitTo(n int64) (Options, error) {
	if o.limitSet {
		return Options{}, qerr.New(qerr.ErrOptionReapplied, "limit already applied").
			With("clause", "limit")
	}
	o.limit = n
	o.limitSet = true
	return o, nil
}

// OffsetBy skips rows before returning. Applying an offset twice in one
// chain is a construction error.
func (o Options) OffsetBy(n int64) (Options, error) {
	if o.offsetSet {
		return Options{}, qerr.New(qerr.ErrOptionReapplied, "offset already applied").
			With("clause", "offset")
	}
	o.offset = n
	o.offsetSet = true
	return o, nil
}

// OrderBy sets the ordering list. Applying an ordering twice in one chain is
// a construction error; pass all orderings in a single call.
func (o Options) OrderBy(orders ...Order) (Options, error) {
	if o.orderSet {
		return Options{}, qerr.New(qerr.ErrOptionReapplied, "ordering already applied").
			With("clause", "order")
	}
	o.orders = append([]Order(nil), orders...)
	o.orderSet = true
	return o, nil
}

// Distinct deduplicates result rows. Applying distinct twice in one chain is
// a construction error.
func (o Options) Distinct() (Options, error) {
	if o.distinctSet {
		return Options{}, qerr.New(qerr.ErrOptionReapplied, "distinct already applied").
			With("clause", "distinct")
	}
	o.distinct = true
	o.distinctSet = true
	return o, nil
}

// WithSub attaches a backend-specific named sub-option. Sub-options carry no
// state tracking; their meaning is entirely up to the backend.
func (o Options) WithSub(name string, v any) Options {
	sub := make(map[string]any, len(o.sub)+1)
	for k, val := range o.sub {
		sub[k] = val
	}
	sub[name] = v
	o.sub = sub
	return o
}

// Cond returns the condition, defaulting to True.
func (o Options) Cond() Cond {
	if o.cond == nil {
		return True{}
	}
	return o.cond
}

// Limit returns the limit and whether one was applied.
func (o Options) Limit() (int64, bool) {
	return o.limit, o.limitSet
}

// Offset returns the offset and whether one was applied.
func (o Options) Offset() (int64, bool) {
	return o.offset, o.offsetSet
}

// Orders returns the ordering list in application order.
func (o Options) Orders() []Order {
	return o.orders
}

// IsDistinct reports whether distinct was applied.
func (o Options) IsDistinct() bool {
	return o.distinct
}

// Sub returns a backend-specific sub-option by name.
func (o Options) Sub(name string) (any, bool) {
	v, ok := o.sub[name]
	return v, ok
}
