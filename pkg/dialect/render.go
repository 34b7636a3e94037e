package dialect

import (
	"strings"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/query"
)

// RawSQL is the payload both built-in dialects accept for raw query nodes:
// a template with ? placeholders and the primitive values substituted into
// them. Templates are written dialect-neutral; the renderer rewrites the
// placeholders into the dialect's own form.
type RawSQL struct {
	Template string
	Args     []primitive.Value
}

// Renderer turns condition and projection trees into SQL for one dialect,
// accumulating bind arguments as it goes. A Renderer is single-use: create
// one per statement so placeholder numbering stays correct.
type Renderer struct {
	d    Dialect
	args []primitive.Value
}

// NewRenderer creates a renderer for the dialect.
func NewRenderer(d Dialect) *Renderer {
	return &Renderer{d: d}
}

// Args returns the bind arguments accumulated so far, in placeholder order.
func (r *Renderer) Args() []primitive.Value {
	return r.args
}

// bind appends a value and returns its placeholder. Custom values splice
// their template inline instead of binding.
func (r *Renderer) bind(v primitive.Value) (string, error) {
	if c, ok := v.(primitive.Custom); ok {
		return r.splice(c.Template(), c.Args())
	}
	r.args = append(r.args, v)
	return r.d.Placeholder(len(r.args)), nil
}

// splice rewrites a ?-template into dialect placeholders, binding each
// substitution value in order.
func (r *Renderer) splice(template string, vals []primitive.Value) (string, error) {
	var b strings.Builder
	next := 0
	for _, ch := range template {
		if ch != '?' {
			b.WriteRune(ch)
			continue
		}
		if next >= len(vals) {
			return "", qerr.New(qerr.ErrBadProjection, "raw template has more placeholders than values").
				WithSQL(template)
		}
		ph, err := r.bind(vals[next])
		if err != nil {
			return "", err
		}
		b.WriteString(ph)
		next++
	}
	if next != len(vals) {
		return "", qerr.New(qerr.ErrBadProjection, "raw template has fewer placeholders than values").
			WithSQL(template)
	}
	return b.String(), nil
}

// Cond renders a condition tree.
func (r *Renderer) Cond(c query.Cond) (string, error) {
	switch v := c.(type) {
	case nil, query.True:
		return "TRUE", nil
	case query.And:
		return r.junction(v.Conds, " AND ", "TRUE")
	case query.Or:
		return r.junction(v.Conds, " OR ", "FALSE")
	case query.Not:
		inner, err := r.Cond(v.Cond)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case query.Compare:
		left, err := r.Expr(v.Left)
		if err != nil {
			return "", err
		}
		right, err := r.Expr(v.Right)
		if err != nil {
			return "", err
		}
		return left + " " + v.Op.SQL() + " " + right, nil
	case query.RawCond:
		return r.raw(v.Payload)
	default:
		return "", qerr.Newf(qerr.ErrInternal, "unknown condition variant %T", c)
	}
}

func (r *Renderer) junction(conds []query.Cond, sep, empty string) (string, error) {
	if len(conds) == 0 {
		return empty, nil
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		s, err := r.Cond(c)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + s + ")"
	}
	return strings.Join(parts, sep), nil
}

// Expr renders one expression node. Literals expanding to more than one
// primitive value cannot appear as comparison operands.
func (r *Renderer) Expr(e query.Expr) (string, error) {
	switch v := e.(type) {
	case query.FieldExpr:
		return r.d.QuoteIdent(v.Field.Chain().ColumnName()), nil
	case query.ValueExpr:
		vals, err := v.Lit.Values()
		if err != nil {
			return "", err
		}
		if len(vals) != 1 {
			return "", qerr.Newf(qerr.ErrBadProjection,
				"literal %s expands to %d columns, want 1", v.Lit.StructuralName(), len(vals))
		}
		return r.bind(vals[0])
	case query.RawExpr:
		return r.raw(v.Payload)
	case query.CondExpr:
		inner, err := r.Cond(v.Cond)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	default:
		return "", qerr.Newf(qerr.ErrInternal, "unknown expression variant %T", e)
	}
}

// Projection renders a result-set column reference.
func (r *Renderer) Projection(p query.Projection) (string, error) {
	switch v := p.(type) {
	case query.FieldLike:
		return r.d.QuoteIdent(v.Chain().ColumnName()), nil
	case query.Aliased:
		inner, err := r.Projection(v.Expr)
		if err != nil {
			return "", err
		}
		return inner + " AS " + r.d.QuoteIdent(v.As), nil
	case query.Raw:
		return r.raw(v.Payload)
	case query.RawAssignable:
		return r.raw(v.Payload)
	default:
		return "", qerr.Newf(qerr.ErrBadProjection, "unknown projection variant %T", p)
	}
}

// Assignable renders the left-hand side of an update assignment.
func (r *Renderer) Assignable(a query.Assignable) (string, error) {
	switch v := a.(type) {
	case query.FieldLike:
		return r.d.QuoteIdent(v.Chain().ColumnName()), nil
	case query.RawAssignable:
		return r.raw(v.Payload)
	default:
		return "", qerr.Newf(qerr.ErrBadProjection, "unknown assignable variant %T", a)
	}
}

// Orders renders an ORDER BY list (without the keyword).
func (r *Renderer) Orders(orders []query.Order) (string, error) {
	parts := make([]string, len(orders))
	for i, o := range orders {
		p, err := r.Projection(o.By)
		if err != nil {
			return "", err
		}
		parts[i] = p + " " + o.Dir.SQL()
	}
	return strings.Join(parts, ", "), nil
}

// raw renders an opaque payload, which for the built-in dialects must be a
// RawSQL value or a plain string of literal SQL.
func (r *Renderer) raw(payload any) (string, error) {
	switch v := payload.(type) {
	case RawSQL:
		return r.splice(v.Template, v.Args)
	case *RawSQL:
		return r.splice(v.Template, v.Args)
	case string:
		return v, nil
	default:
		return "", qerr.Newf(qerr.ErrBadProjection, "unsupported raw payload %T", payload)
	}
}
