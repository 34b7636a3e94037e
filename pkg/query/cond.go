package query

// CmpOp is a binary comparison operator.
type CmpOp int

const (
	// OpEq is equality.
	OpEq CmpOp = iota
	// OpNeq is inequality.
	OpNeq
	// OpGt is strictly greater.
	OpGt
	// OpLt is strictly less.
	OpLt
	// OpGte is greater or equal.
	OpGte
	// OpLte is less or equal.
	OpLte
)

// SQL returns the SQL spelling of the operator.
func (op CmpOp) SQL() string {
	switch op {
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}

// Cond is a boolean condition tree. The variant set is closed; backends
// switch over the concrete types to render it.
type Cond interface {
	isCond()
}

// True is the always-true condition: the identity element for conjunction
// and the default condition of a fresh options bundle.
type True struct{}

func (True) isCond() {}

// And is a conjunction of conditions. An empty And is equivalent to True.
type And struct {
	Conds []Cond
}

func (And) isCond() {}

// Or is a disjunction of conditions.
type Or struct {
	Conds []Cond
}

func (Or) isCond() {}

// Not negates a condition.
type Not struct {
	Cond Cond
}

func (Not) isCond() {}

// Compare is a binary comparison between two expression nodes.
type Compare struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (Compare) isCond() {}

// RawCond is an opaque backend-specific condition.
type RawCond struct {
	Payload any
}

func (RawCond) isCond() {}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// Eq builds left = right.
func Eq(left, right Expr) Cond { return Compare{Op: OpEq, Left: left, Right: right} }

// Neq builds left <> right.
func Neq(left, right Expr) Cond { return Compare{Op: OpNeq, Left: left, Right: right} }

// Gt builds left > right.
func Gt(left, right Expr) Cond { return Compare{Op: OpGt, Left: left, Right: right} }

// Lt builds left < right.
func Lt(left, right Expr) Cond { return Compare{Op: OpLt, Left: left, Right: right} }

// Gte builds left >= right.
func Gte(left, right Expr) Cond { return Compare{Op: OpGte, Left: left, Right: right} }

// Lte builds left <= right.
func Lte(left, right Expr) Cond { return Compare{Op: OpLte, Left: left, Right: right} }

// AndOf conjoins conditions, flattening nested conjunctions and dropping
// True members. AndOf() is True.
func AndOf(conds ...Cond) Cond {
	var flat []Cond
	for _, c := range conds {
		switch v := c.(type) {
		case True:
			continue
		case And:
			flat = append(flat, v.Conds...)
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return True{}
	case 1:
		return flat[0]
	default:
		return And{Conds: flat}
	}
}

// OrOf disjoins conditions. OrOf(c) is c.
func OrOf(conds ...Cond) Cond {
	if len(conds) == 1 {
		return conds[0]
	}
	return Or{Conds: conds}
}

// NotOf negates a condition, collapsing double negation.
func NotOf(c Cond) Cond {
	if n, ok := c.(Not); ok {
		return n.Cond
	}
	return Not{Cond: c}
}

// -----------------------------------------------------------------------------
// Updates and orderings
// -----------------------------------------------------------------------------

// Update assigns a new value to an assignable target. Targets are fields or
// storage-addressing raw expressions; computed projections cannot be
// assigned to, which the Assignable capability enforces at the type level.
type Update struct {
	Target Assignable
	Value  Expr
}

// Set builds an update assignment.
func Set(target Assignable, value Expr) Update {
	return Update{Target: target, Value: value}
}

// Direction orders ascending or descending.
type Direction int

const (
	// Ascending sorts smallest first.
	Ascending Direction = iota
	// Descending sorts largest first.
	Descending
)

// SQL returns the SQL spelling of the direction.
func (d Direction) SQL() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// Order pairs a direction with any projection-capable reference. Computed
// and aliased projections may be ordered by, not only assignable fields.
type Order struct {
	Dir Direction
	By  Projection
}

// Asc orders by a projection ascending.
func Asc(p Projection) Order {
	return Order{Dir: Ascending, By: p}
}

// Desc orders by a projection descending.
func Desc(p Projection) Order {
	return Order{Dir: Descending, By: p}
}
