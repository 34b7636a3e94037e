package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/backend"
	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/query"
	"github.com/quarrydb/quarry/pkg/schema"
)

// store implements backend.Backend[int64] over one executor: the pool, a
// pinned connection, or a transaction.
type store struct {
	mgr   *Manager
	x     executor
	tx    *sql.Tx // nil outside transactions
	d     dialect.Dialect
	log   *slog.Logger
	bound bool
}

var (
	_ backend.Backend[int64]  = (*store)(nil)
	_ backend.Savepointer     = (*store)(nil)
	_ backend.ConnectionBound = (*store)(nil)
)

func (s *store) Descriptor() backend.Descriptor {
	return descriptor{Dialect: s.d}
}

// SameConnection reports whether every operation runs on one connection,
// true for transaction and pinned-connection backends.
func (s *store) SameConnection() bool {
	return s.bound
}

// ---------------------------------------------------------------------------
// Row layout helpers
// ---------------------------------------------------------------------------

// dataColumns returns the caller-provided columns: everything except the
// generated key and the discriminant.
func dataColumns(rel *schema.Relation) []schema.Column {
	out := make([]schema.Column, 0, len(rel.Columns))
	for _, col := range rel.Columns {
		if col.PrimaryKey && col.AutoIncrement {
			continue
		}
		if col.Name == schema.DiscriminantColumn {
			continue
		}
		out = append(out, col)
	}
	return out
}

func (s *store) relation(e *schema.Entity) (*schema.Relation, error) {
	return s.mgr.relation(e, s.d)
}

// insertColumns assembles the column list and bind values for an insert:
// the discriminant (for sums) followed by the data columns.
func (s *store) insertColumns(e *schema.Entity, rel *schema.Relation, ctor string, row []primitive.Value) ([]string, []primitive.Value, error) {
	cols := dataColumns(rel)
	if len(row) != len(cols) {
		return nil, nil, qerr.New(qerr.ErrDecodeShape, "row width does not match the relation").
			WithEntity(e.Namespace, e.Name).
			With("got", len(row)).
			With("want", len(cols))
	}

	var names []string
	var vals []primitive.Value
	if e.IsSum() {
		ord := e.Discriminant(ctor)
		if ord < 0 {
			return nil, nil, qerr.New(qerr.ErrSchemaInvalid, "unknown constructor").
				WithEntity(e.Namespace, e.Name).
				With("constructor", ctor)
		}
		names = append(names, schema.DiscriminantColumn)
		vals = append(vals, primitive.Int64(ord))
	}
	for i, col := range cols {
		names = append(names, col.Name)
		vals = append(vals, row[i])
	}
	return names, vals, nil
}

func (s *store) buildInsert(table string, names []string, vals []primitive.Value) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.d.QuoteIdent(table))
	b.WriteString(" (")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.d.QuoteIdent(n))
	}
	b.WriteString(") VALUES (")
	for i := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")

	args, err := bindAll(vals)
	if err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func (s *store) exec(ctx context.Context, sqlText string, args []any) (sql.Result, error) {
	s.log.Debug("exec", "sql", sqlText)
	res, err := s.x.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return nil, wrapSQL(err, sqlText)
	}
	return res, nil
}

func (s *store) query(ctx context.Context, sqlText string, args []any) (*sql.Rows, error) {
	s.log.Debug("query", "sql", sqlText)
	rows, err := s.x.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, wrapSQL(err, sqlText)
	}
	return rows, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

func (s *store) Insert(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) (int64, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, err
	}
	names, vals, err := s.insertColumns(e, rel, ctor, row)
	if err != nil {
		return 0, err
	}
	sqlText, args, err := s.buildInsert(rel.Name, names, vals)
	if err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, sqlText, args)
	if err != nil {
		return 0, err
	}
	key, err := res.LastInsertId()
	if err != nil {
		return 0, qerr.Wrap(qerr.ErrSQLExecution, err, "cannot read generated key")
	}
	return key, nil
}

func (s *store) InsertNoKey(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) error {
	rel, err := s.relation(e)
	if err != nil {
		return err
	}
	names, vals, err := s.insertColumns(e, rel, ctor, row)
	if err != nil {
		return err
	}
	sqlText, args, err := s.buildInsert(rel.Name, names, vals)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, sqlText, args)
	return err
}

func (s *store) InsertOrGet(ctx context.Context, e *schema.Entity, ctor, unique string, row []primitive.Value) (int64, bool, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, false, err
	}
	spec := rel.Unique(unique)
	if spec == nil {
		return 0, false, qerr.New(qerr.ErrFieldNotFound, "unknown unique key").
			WithEntity(e.Namespace, e.Name).
			With("unique", unique)
	}
	return s.insertOrGet(ctx, e, rel, ctor, []schema.UniqueSpec{*spec}, row)
}

func (s *store) InsertOrGetByAny(ctx context.Context, e *schema.Entity, ctor string, row []primitive.Value) (int64, bool, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, false, err
	}
	return s.insertOrGet(ctx, e, rel, ctor, rel.Uniques, row)
}

// insertOrGet looks the row up by each unique key in turn and inserts when
// none matches. When distinct existing rows collide on different unique
// keys, the first key scanned decides which row is returned.
func (s *store) insertOrGet(ctx context.Context, e *schema.Entity, rel *schema.Relation, ctor string, specs []schema.UniqueSpec, row []primitive.Value) (int64, bool, error) {
	// The lookup indexes row by data-column position, so the width must be
	// checked before probing, not just before inserting.
	if cols := dataColumns(rel); len(row) != len(cols) {
		return 0, false, qerr.New(qerr.ErrDecodeShape, "row width does not match the relation").
			WithEntity(e.Namespace, e.Name).
			With("got", len(row)).
			With("want", len(cols))
	}

	lookup := func() (int64, bool, error) {
		for _, spec := range specs {
			if len(spec.Columns) == 0 {
				continue // expression-only keys cannot be probed from row values
			}
			key, err := s.lookupKey(ctx, e, rel, spec.Columns, row)
			if err == nil {
				return key, true, nil
			}
			if !qerr.Is(err, qerr.ErrRowNotFound) {
				return 0, false, err
			}
		}
		return 0, false, nil
	}

	if key, found, err := lookup(); err != nil || found {
		return key, found, err
	}

	key, err := s.Insert(ctx, e, ctor, row)
	if err == nil {
		return key, false, nil
	}
	// A concurrent writer may have won the race; retry the lookup before
	// surfacing the constraint violation.
	if key, found, lerr := lookup(); lerr == nil && found {
		return key, true, nil
	}
	return 0, false, err
}

// lookupKey finds the key of the row whose columns match the values the
// candidate row carries for them.
func (s *store) lookupKey(ctx context.Context, e *schema.Entity, rel *schema.Relation, columns []string, row []primitive.Value) (int64, error) {
	pk := rel.PrimaryColumn()
	if pk == nil {
		return 0, qerr.New(qerr.ErrSchemaInvalid, "entity has no generated key").
			WithEntity(e.Namespace, e.Name)
	}

	byName := make(map[string]primitive.Value)
	for i, col := range dataColumns(rel) {
		byName[col.Name] = row[i]
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.d.QuoteIdent(pk.Name))
	b.WriteString(" FROM ")
	b.WriteString(s.d.QuoteIdent(rel.Name))
	b.WriteString(" WHERE ")

	var vals []primitive.Value
	for i, name := range columns {
		v, ok := byName[name]
		if !ok {
			return 0, qerr.New(qerr.ErrFieldNotFound, "unique member is not a data column").
				With("column", name)
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(s.d.QuoteIdent(name))
		if v == nil || v.Kind() == primitive.KindNull {
			b.WriteString(" IS NULL")
			continue
		}
		b.WriteString(" = ?")
		vals = append(vals, v)
	}

	args, err := bindAll(vals)
	if err != nil {
		return 0, err
	}
	var key int64
	err = s.x.QueryRowContext(ctx, b.String(), args...).Scan(&key)
	if err == sql.ErrNoRows {
		return 0, qerr.New(qerr.ErrRowNotFound, "no row matches the unique key").
			WithEntity(e.Namespace, e.Name)
	}
	if err != nil {
		return 0, wrapSQL(err, b.String())
	}
	return key, nil
}

func (s *store) ReplaceByKey(ctx context.Context, e *schema.Entity, ctor string, key int64, row []primitive.Value) error {
	rel, err := s.relation(e)
	if err != nil {
		return err
	}
	pk := rel.PrimaryColumn()
	if pk == nil {
		return qerr.New(qerr.ErrSchemaInvalid, "entity has no generated key").
			WithEntity(e.Namespace, e.Name)
	}
	names, vals, err := s.insertColumns(e, rel, ctor, row)
	if err != nil {
		return err
	}
	return s.replaceWhere(ctx, e, rel, names, vals,
		s.d.QuoteIdent(pk.Name)+" = ?", []primitive.Value{primitive.Int64(key)})
}

func (s *store) ReplaceByUnique(ctx context.Context, e *schema.Entity, ctor, unique string, row []primitive.Value) error {
	rel, err := s.relation(e)
	if err != nil {
		return err
	}
	spec := rel.Unique(unique)
	if spec == nil {
		return qerr.New(qerr.ErrFieldNotFound, "unknown unique key").
			WithEntity(e.Namespace, e.Name).
			With("unique", unique)
	}
	names, vals, err := s.insertColumns(e, rel, ctor, row)
	if err != nil {
		return err
	}

	byName := make(map[string]primitive.Value, len(names))
	for i, n := range names {
		byName[n] = vals[i]
	}
	var where strings.Builder
	var whereVals []primitive.Value
	for i, col := range spec.Columns {
		if i > 0 {
			where.WriteString(" AND ")
		}
		where.WriteString(s.d.QuoteIdent(col))
		where.WriteString(" = ?")
		whereVals = append(whereVals, byName[col])
	}
	return s.replaceWhere(ctx, e, rel, names, vals, where.String(), whereVals)
}

func (s *store) replaceWhere(ctx context.Context, e *schema.Entity, rel *schema.Relation, names []string, vals []primitive.Value, where string, whereVals []primitive.Value) error {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(s.d.QuoteIdent(rel.Name))
	b.WriteString(" SET ")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.d.QuoteIdent(n))
		b.WriteString(" = ?")
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)

	args, err := bindAll(append(append([]primitive.Value(nil), vals...), whereVals...))
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, b.String(), args)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return qerr.Wrap(qerr.ErrSQLExecution, err, "cannot read affected rows")
	}
	if n == 0 {
		return qerr.New(qerr.ErrRowNotFound, "no row to replace").
			WithEntity(e.Namespace, e.Name)
	}
	return nil
}

func (s *store) Update(ctx context.Context, e *schema.Entity, updates []query.Update, cond query.Cond) (int64, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, qerr.New(qerr.ErrBadProjection, "update needs at least one assignment")
	}

	r := dialect.NewRenderer(s.d)
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(s.d.QuoteIdent(rel.Name))
	b.WriteString(" SET ")
	for i, u := range updates {
		if i > 0 {
			b.WriteString(", ")
		}
		target, err := r.Assignable(u.Target)
		if err != nil {
			return 0, err
		}
		value, err := r.Expr(u.Value)
		if err != nil {
			return 0, err
		}
		b.WriteString(target)
		b.WriteString(" = ")
		b.WriteString(value)
	}
	where, err := r.Cond(cond)
	if err != nil {
		return 0, err
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)

	args, err := bindAll(r.Args())
	if err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, b.String(), args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *store) Select(ctx context.Context, e *schema.Entity, opts query.Options) (backend.Rows, error) {
	rel, err := s.relation(e)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(rel.Columns))
	kinds := make([]primitive.Kind, len(rel.Columns))
	for i, c := range rel.Columns {
		cols[i] = s.d.QuoteIdent(c.Name)
		kinds[i] = c.Kind
	}

	sqlText, args, err := s.buildSelect(strings.Join(cols, ", "), rel.Name, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sqlText, args)
	if err != nil {
		return nil, err
	}
	return &typedRows{rows: rows, kinds: kinds}, nil
}

func (s *store) SelectAll(ctx context.Context, e *schema.Entity) (backend.Rows, error) {
	return s.Select(ctx, e, query.Where(query.True{}))
}

func (s *store) Project(ctx context.Context, e *schema.Entity, proj []query.Projection, opts query.Options) (backend.Rows, error) {
	rel, err := s.relation(e)
	if err != nil {
		return nil, err
	}
	if len(proj) == 0 {
		return nil, qerr.New(qerr.ErrBadProjection, "projection list is empty")
	}

	r := dialect.NewRenderer(s.d)
	parts := make([]string, len(proj))
	for i, p := range proj {
		parts[i], err = r.Projection(p)
		if err != nil {
			return nil, err
		}
	}

	sqlText, args, err := s.buildSelectWith(r, strings.Join(parts, ", "), rel.Name, opts)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sqlText, args)
	if err != nil {
		return nil, err
	}
	return &typedRows{rows: rows}, nil
}

func (s *store) buildSelect(columns, table string, opts query.Options) (string, []any, error) {
	return s.buildSelectWith(dialect.NewRenderer(s.d), columns, table, opts)
}

func (s *store) buildSelectWith(r *dialect.Renderer, columns, table string, opts query.Options) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if opts.IsDistinct() {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(s.d.QuoteIdent(table))

	where, err := r.Cond(opts.Cond())
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)

	if orders := opts.Orders(); len(orders) > 0 {
		by, err := r.Orders(orders)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(by)
	}

	args, err := bindAll(r.Args())
	if err != nil {
		return "", nil, err
	}
	if limit, ok := opts.Limit(); ok {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	} else if _, ok := opts.Offset(); ok {
		// SQLite requires LIMIT before OFFSET.
		b.WriteString(" LIMIT -1")
	}
	if offset, ok := opts.Offset(); ok {
		b.WriteString(" OFFSET ?")
		args = append(args, offset)
	}
	return b.String(), args, nil
}

func (s *store) GetByKey(ctx context.Context, e *schema.Entity, key int64) ([]primitive.Value, error) {
	rel, err := s.relation(e)
	if err != nil {
		return nil, err
	}
	pk := rel.PrimaryColumn()
	if pk == nil {
		return nil, qerr.New(qerr.ErrSchemaInvalid, "entity has no generated key").
			WithEntity(e.Namespace, e.Name)
	}
	return s.getOne(ctx, e, rel,
		s.d.QuoteIdent(pk.Name)+" = ?", []primitive.Value{primitive.Int64(key)})
}

func (s *store) GetByUnique(ctx context.Context, e *schema.Entity, ctor, unique string, members []primitive.Value) ([]primitive.Value, error) {
	rel, err := s.relation(e)
	if err != nil {
		return nil, err
	}
	spec := rel.Unique(unique)
	if spec == nil {
		return nil, qerr.New(qerr.ErrFieldNotFound, "unknown unique key").
			WithEntity(e.Namespace, e.Name).
			With("unique", unique)
	}
	if len(members) != len(spec.Columns) {
		return nil, qerr.New(qerr.ErrDecodeShape, "unique member count mismatch").
			With("got", len(members)).
			With("want", len(spec.Columns))
	}

	var where strings.Builder
	for i, col := range spec.Columns {
		if i > 0 {
			where.WriteString(" AND ")
		}
		where.WriteString(s.d.QuoteIdent(col))
		where.WriteString(" = ?")
	}
	return s.getOne(ctx, e, rel, where.String(), members)
}

func (s *store) getOne(ctx context.Context, e *schema.Entity, rel *schema.Relation, where string, vals []primitive.Value) ([]primitive.Value, error) {
	cols := make([]string, len(rel.Columns))
	kinds := make([]primitive.Kind, len(rel.Columns))
	for i, c := range rel.Columns {
		cols[i] = s.d.QuoteIdent(c.Name)
		kinds[i] = c.Kind
	}

	sqlText := "SELECT " + strings.Join(cols, ", ") + " FROM " +
		s.d.QuoteIdent(rel.Name) + " WHERE " + where

	args, err := bindAll(vals)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sqlText, args)
	if err != nil {
		return nil, err
	}
	tr := &typedRows{rows: rows, kinds: kinds}
	defer tr.Close()

	if !tr.Next() {
		if err := tr.Err(); err != nil {
			return nil, err
		}
		return nil, qerr.New(qerr.ErrRowNotFound, "no matching row").
			WithEntity(e.Namespace, e.Name)
	}
	return tr.Values()
}

func (s *store) Count(ctx context.Context, e *schema.Entity, cond query.Cond) (int64, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, err
	}
	r := dialect.NewRenderer(s.d)
	where, err := r.Cond(cond)
	if err != nil {
		return 0, err
	}
	sqlText := "SELECT count(*) FROM " + s.d.QuoteIdent(rel.Name) + " WHERE " + where
	args, err := bindAll(r.Args())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.x.QueryRowContext(ctx, sqlText, args...).Scan(&n); err != nil {
		return 0, wrapSQL(err, sqlText)
	}
	return n, nil
}

func (s *store) CountAll(ctx context.Context, e *schema.Entity) (int64, error) {
	return s.Count(ctx, e, query.True{})
}

// ---------------------------------------------------------------------------
// Deletes
// ---------------------------------------------------------------------------

func (s *store) DeleteWhere(ctx context.Context, e *schema.Entity, cond query.Cond) (int64, error) {
	rel, err := s.relation(e)
	if err != nil {
		return 0, err
	}
	r := dialect.NewRenderer(s.d)
	where, err := r.Cond(cond)
	if err != nil {
		return 0, err
	}
	args, err := bindAll(r.Args())
	if err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, "DELETE FROM "+s.d.QuoteIdent(rel.Name)+" WHERE "+where, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *store) DeleteByKey(ctx context.Context, e *schema.Entity, key int64) error {
	rel, err := s.relation(e)
	if err != nil {
		return err
	}
	pk := rel.PrimaryColumn()
	if pk == nil {
		return qerr.New(qerr.ErrSchemaInvalid, "entity has no generated key").
			WithEntity(e.Namespace, e.Name)
	}
	res, err := s.exec(ctx,
		"DELETE FROM "+s.d.QuoteIdent(rel.Name)+" WHERE "+s.d.QuoteIdent(pk.Name)+" = ?",
		[]any{key})
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return qerr.Wrap(qerr.ErrSQLExecution, err, "cannot read affected rows")
	}
	if n == 0 {
		return qerr.New(qerr.ErrRowNotFound, "no row with that key").
			WithEntity(e.Namespace, e.Name)
	}
	return nil
}

func (s *store) DeleteAll(ctx context.Context, e *schema.Entity) (int64, error) {
	return s.DeleteWhere(ctx, e, query.True{})
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

func (s *store) InsertList(ctx context.Context, table string, elems [][]primitive.Value) (int64, error) {
	// Surrogate list ids are allocated from the side table itself. Callers
	// needing isolation run inside a transaction.
	var listID int64
	row := s.x.QueryRowContext(ctx,
		"SELECT coalesce(max("+s.d.QuoteIdent(schema.ListKeyColumn)+"), 0) + 1 FROM "+s.d.QuoteIdent(table))
	if err := row.Scan(&listID); err != nil {
		return 0, wrapSQL(err, "allocate list id for "+table)
	}

	for pos, elem := range elems {
		vals := append([]primitive.Value{primitive.Int64(listID), primitive.Int64(pos)}, elem...)
		args, err := bindAll(vals)
		if err != nil {
			return 0, err
		}
		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(s.d.QuoteIdent(table))
		b.WriteString(" VALUES (")
		for i := range vals {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
		}
		b.WriteString(")")
		if _, err := s.exec(ctx, b.String(), args); err != nil {
			return 0, err
		}
	}
	return listID, nil
}

func (s *store) GetList(ctx context.Context, table string, listID int64) (backend.Rows, error) {
	// Element columns follow the (list_id, pos) pair in creation order.
	sqlText := "SELECT * FROM " + s.d.QuoteIdent(table) +
		" WHERE " + s.d.QuoteIdent(schema.ListKeyColumn) + " = ?" +
		" ORDER BY " + s.d.QuoteIdent(schema.ListPosColumn)
	rows, err := s.query(ctx, sqlText, []any{listID})
	if err != nil {
		return nil, err
	}
	return &typedRows{rows: rows, skip: 2}, nil
}

// ---------------------------------------------------------------------------
// Schema and raw access
// ---------------------------------------------------------------------------

func (s *store) Migrate(ctx context.Context, steps []migrate.Step, allowUnsafe bool) error {
	for _, step := range steps {
		if !step.Safe && !allowUnsafe {
			return qerr.New(qerr.ErrMigrationPlan, "plan contains a destructive step").
				WithSQL(step.SQL).
				WithHelp("re-run with unsafe steps explicitly allowed")
		}
	}
	for _, step := range steps {
		if _, err := s.exec(ctx, step.SQL, nil); err != nil {
			return err
		}
		s.log.Info("migration step applied", "safe", step.Safe, "sql", step.SQL)
	}
	return nil
}

func (s *store) ExecRaw(ctx context.Context, sqlText string, args []primitive.Value) (int64, error) {
	bound, err := bindAll(args)
	if err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, sqlText, bound)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *store) QueryRaw(ctx context.Context, sqlText string, args []primitive.Value, cacheable bool) (backend.Rows, error) {
	bound, err := bindAll(args)
	if err != nil {
		return nil, err
	}

	// Cacheable queries keep their prepared form on the pool; statements
	// prepared inside a transaction would die with it.
	if cacheable && s.tx == nil {
		st, err := s.mgr.cachedStmt(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		rows, err := st.QueryContext(ctx, bound...)
		if err != nil {
			return nil, wrapSQL(err, sqlText)
		}
		return &typedRows{rows: rows}, nil
	}

	rows, err := s.query(ctx, sqlText, bound)
	if err != nil {
		return nil, err
	}
	return &typedRows{rows: rows}, nil
}

// ---------------------------------------------------------------------------
// Savepoints
// ---------------------------------------------------------------------------

// WithSavepoint runs fn inside a savepoint: released on success, rolled
// back and released on failure. Valid only inside a transaction.
func (s *store) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return qerr.New(qerr.ErrTransaction, "savepoints require a transaction")
	}
	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if _, err := s.exec(ctx, "SAVEPOINT "+name, nil); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := s.exec(ctx, "ROLLBACK TO "+name, nil); rbErr != nil {
			s.log.Error("savepoint rollback failed", "savepoint", name, "error", rbErr)
		}
		if _, relErr := s.exec(ctx, "RELEASE "+name, nil); relErr != nil {
			s.log.Error("savepoint release failed", "savepoint", name, "error", relErr)
		}
		return err
	}
	if _, err := s.exec(ctx, "RELEASE "+name, nil); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// codec.Store
// ---------------------------------------------------------------------------

// InsertRelated lets relational codecs store a related row mid-encode. Only
// single-constructor entities can be stored without naming a constructor.
func (s *store) InsertRelated(ctx context.Context, entity *schema.Entity, values []primitive.Value) (primitive.Value, error) {
	if entity.IsSum() {
		return nil, qerr.New(qerr.ErrSchemaInvalid,
			"related insert of a sum-typed entity must go through the backend").
			WithEntity(entity.Namespace, entity.Name)
	}
	key, err := s.Insert(ctx, entity, entity.Ctors[0].Name, values)
	if err != nil {
		return nil, err
	}
	return primitive.Int64(key), nil
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

// typedRows adapts *sql.Rows to the backend iterator, converting scanned
// driver values into primitives. With declared kinds each column is decoded
// strictly; without them the driver's dynamic type decides. skip drops
// leading bookkeeping columns (list side tables).
type typedRows struct {
	rows  *sql.Rows
	kinds []primitive.Kind
	skip  int
	err   error
}

func (t *typedRows) Next() bool {
	return t.rows.Next()
}

func (t *typedRows) Values() ([]primitive.Value, error) {
	cols, err := t.rows.Columns()
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrSQLExecution, err, "cannot read column list")
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := t.rows.Scan(ptrs...); err != nil {
		return nil, qerr.Wrap(qerr.ErrSQLExecution, err, "cannot scan row")
	}

	raw = raw[t.skip:]
	out := make([]primitive.Value, len(raw))
	for i, r := range raw {
		if t.kinds != nil {
			v, err := scanAs(t.kinds[i], r)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		out[i] = scanAny(r)
	}
	return out, nil
}

func (t *typedRows) Err() error {
	if t.err != nil {
		return t.err
	}
	return t.rows.Err()
}

func (t *typedRows) Close() error {
	return t.rows.Close()
}
