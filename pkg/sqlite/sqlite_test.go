package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/backend"
	"github.com/quarrydb/quarry/pkg/codec"
	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/query"
	"github.com/quarrydb/quarry/pkg/schema"
)

func userEntity() *schema.Entity {
	str := schema.Primitive(primitive.KindString)
	return &schema.Entity{
		Name:      "user",
		Namespace: "auth",
		Ctors: []schema.Constructor{{
			Name:    "user",
			Autokey: "id",
			Fields: []schema.Field{
				{Name: "email", Type: str},
				{Name: "nickname", Type: str.AsNullable()},
			},
			Uniques: []schema.Unique{{
				Name:    "uq_auth_user_email",
				Kind:    schema.UniqueConstraint,
				Members: []schema.UniqueMember{schema.FieldMember("email", str)},
			}},
		}},
	}
}

// shapeEntity is a two-constructor sum: a circle (radius) or a rect (w, h).
func shapeEntity() *schema.Entity {
	dbl := schema.Primitive(primitive.KindDouble)
	return &schema.Entity{
		Name: "shape",
		Ctors: []schema.Constructor{
			{
				Name:    "circle",
				Autokey: "id",
				Fields:  []schema.Field{{Name: "radius", Type: dbl}},
			},
			{
				Name:    "rect",
				Autokey: "id",
				Fields: []schema.Field{
					{Name: "width", Type: dbl},
					{Name: "height", Type: dbl},
				},
			},
		},
	}
}

func openTestDB(t *testing.T, entities ...*schema.Entity) *Manager {
	t.Helper()
	m, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	d := dialect.SQLite()
	var rels []*schema.Relation
	for _, e := range entities {
		rel, err := schema.Flatten(e, d)
		if err != nil {
			t.Fatalf("Flatten %s: %v", e.Name, err)
		}
		rels = append(rels, rel)
	}
	steps, err := migrate.PlanRelations(nil, rels, d).Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if err := m.Backend().Migrate(context.Background(), steps, false); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return m
}

func emailCond(t *testing.T, e *schema.Entity, email string) query.Cond {
	t.Helper()
	chain, err := schema.ChainOf(&e.Ctors[0], "email")
	if err != nil {
		t.Fatalf("ChainOf: %v", err)
	}
	return query.Eq(
		query.Fx(query.F(chain)),
		query.Vx(codec.Scalar(codec.String(), email)),
	)
}

func TestInsertAndGetByKey(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	key, err := b.Insert(ctx, e, "user", []primitive.Value{
		primitive.String("a@b.c"), primitive.Null{},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	row, err := b.GetByKey(ctx, e, key)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	// Full row: id, email, nickname.
	if len(row) != 3 {
		t.Fatalf("row width: got %d", len(row))
	}
	if !primitive.Equal(row[0], primitive.Int64(key)) {
		t.Errorf("key column: got %v", row[0])
	}
	if !primitive.Equal(row[1], primitive.String("a@b.c")) {
		t.Errorf("email: got %v", row[1])
	}
	if !primitive.Equal(row[2], primitive.Null{}) {
		t.Errorf("nickname must be null, got %v", row[2])
	}
}

func TestGetByKeyMissing(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)

	_, err := m.Backend().GetByKey(context.Background(), e, 999)
	if !qerr.Is(err, qerr.ErrRowNotFound) {
		t.Errorf("code: got %v", qerr.GetErrorCode(err))
	}
}

func TestInsertOrGetReturnsExistingKey(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	row := []primitive.Value{primitive.String("a@b.c"), primitive.Null{}}
	first, existing, err := b.InsertOrGet(ctx, e, "user", "uq_auth_user_email", row)
	if err != nil || existing {
		t.Fatalf("first insert: key=%d existing=%v err=%v", first, existing, err)
	}

	again := []primitive.Value{primitive.String("a@b.c"), primitive.String("nick")}
	second, existing, err := b.InsertOrGet(ctx, e, "user", "uq_auth_user_email", again)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if !existing || second != first {
		t.Errorf("colliding insert must return the existing row: key=%d existing=%v", second, existing)
	}

	// The existing row is untouched.
	got, err := b.GetByKey(ctx, e, first)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if !primitive.Equal(got[2], primitive.Null{}) {
		t.Errorf("colliding insert must not modify the row: %v", got[2])
	}
}

func TestInsertOrGetByAny(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	row := []primitive.Value{primitive.String("a@b.c"), primitive.Null{}}
	first, _, err := b.InsertOrGetByAny(ctx, e, "user", row)
	if err != nil {
		t.Fatalf("InsertOrGetByAny: %v", err)
	}
	key, existing, err := b.InsertOrGetByAny(ctx, e, "user", row)
	if err != nil {
		t.Fatalf("InsertOrGetByAny: %v", err)
	}
	if !existing || key != first {
		t.Errorf("got key=%d existing=%v, want the first row back", key, existing)
	}
}

func TestInsertOrGetRejectsShortRow(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	// One value short: nickname is missing.
	short := []primitive.Value{primitive.String("a@b.c")}

	_, _, err := b.InsertOrGet(ctx, e, "user", "uq_auth_user_email", short)
	if !qerr.Is(err, qerr.ErrDecodeShape) {
		t.Fatalf("InsertOrGet: got %v, want ErrDecodeShape", err)
	}
	_, _, err = b.InsertOrGetByAny(ctx, e, "user", short)
	if !qerr.Is(err, qerr.ErrDecodeShape) {
		t.Fatalf("InsertOrGetByAny: got %v, want ErrDecodeShape", err)
	}
	if n, _ := b.CountAll(ctx, e); n != 0 {
		t.Errorf("no row may be written, got %d", n)
	}
}

func TestSumEntityDiscriminant(t *testing.T) {
	e := shapeEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	// Data columns are the union (radius, width, height); absent ones null.
	circleKey, err := b.Insert(ctx, e, "circle", []primitive.Value{
		primitive.Double(2.5), primitive.Null{}, primitive.Null{},
	})
	if err != nil {
		t.Fatalf("insert circle: %v", err)
	}
	rectKey, err := b.Insert(ctx, e, "rect", []primitive.Value{
		primitive.Null{}, primitive.Double(3), primitive.Double(4),
	})
	if err != nil {
		t.Fatalf("insert rect: %v", err)
	}

	// Full row: id, variant, radius, width, height.
	circle, err := b.GetByKey(ctx, e, circleKey)
	if err != nil {
		t.Fatalf("GetByKey circle: %v", err)
	}
	if !primitive.Equal(circle[1], primitive.Int64(0)) {
		t.Errorf("circle discriminant: got %v", circle[1])
	}
	rect, err := b.GetByKey(ctx, e, rectKey)
	if err != nil {
		t.Fatalf("GetByKey rect: %v", err)
	}
	if !primitive.Equal(rect[1], primitive.Int64(1)) {
		t.Errorf("rect discriminant: got %v", rect[1])
	}
}

func TestSelectAllAndCountAll(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	for _, email := range []string{"a@b.c", "b@b.c", "c@b.c"} {
		if _, err := b.Insert(ctx, e, "user", []primitive.Value{
			primitive.String(email), primitive.Null{},
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rows, err := b.SelectAll(ctx, e)
	if err != nil {
		t.Fatalf("SelectAll: %v", err)
	}
	all, err := backend.Collect(rows)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("rows: got %d", len(all))
	}
	// Full rows: key, email, nickname.
	if len(all[0]) != 3 {
		t.Errorf("columns: got %d", len(all[0]))
	}

	n, err := b.CountAll(ctx, e)
	if err != nil || n != 3 {
		t.Fatalf("CountAll: got %d, err %v", n, err)
	}
}

func TestSelectWithOptions(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	for _, email := range []string{"c@x", "a@x", "b@x"} {
		if _, err := b.Insert(ctx, e, "user", []primitive.Value{
			primitive.String(email), primitive.Null{},
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	chain, err := schema.ChainOf(&e.Ctors[0], "email")
	if err != nil {
		t.Fatalf("ChainOf: %v", err)
	}
	opts, err := query.Where(query.True{}).OrderBy(query.Asc(query.F(chain)))
	if err != nil {
		t.Fatalf("OrderBy: %v", err)
	}
	opts, err = opts.LimitTo(2)
	if err != nil {
		t.Fatalf("LimitTo: %v", err)
	}

	rows, err := b.Select(ctx, e, opts)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got, err := backend.Collect(rows)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d, want 2", len(got))
	}
	if !primitive.Equal(got[0][1], primitive.String("a@x")) ||
		!primitive.Equal(got[1][1], primitive.String("b@x")) {
		t.Errorf("ordering wrong: %v, %v", got[0][1], got[1][1])
	}
}

func TestUpdateCountDelete(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	if _, err := b.Insert(ctx, e, "user", []primitive.Value{
		primitive.String("a@b.c"), primitive.Null{},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	chain, err := schema.ChainOf(&e.Ctors[0], "nickname")
	if err != nil {
		t.Fatalf("ChainOf: %v", err)
	}
	n, err := b.Update(ctx, e,
		[]query.Update{query.Set(query.F(chain), query.Vx(codec.Scalar(codec.String(), "nick")))},
		emailCond(t, e, "a@b.c"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("updated: got %d", n)
	}

	count, err := b.Count(ctx, e, emailCond(t, e, "a@b.c"))
	if err != nil || count != 1 {
		t.Fatalf("Count: got %d, err %v", count, err)
	}

	deleted, err := b.DeleteWhere(ctx, e, emailCond(t, e, "a@b.c"))
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteWhere: got %d, err %v", deleted, err)
	}
	if count, _ := b.Count(ctx, e, query.True{}); count != 0 {
		t.Errorf("table must be empty, got %d rows", count)
	}
}

func TestReplaceByKey(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	key, err := b.Insert(ctx, e, "user", []primitive.Value{
		primitive.String("a@b.c"), primitive.Null{},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err = b.ReplaceByKey(ctx, e, "user", key, []primitive.Value{
		primitive.String("new@b.c"), primitive.String("nick"),
	})
	if err != nil {
		t.Fatalf("ReplaceByKey: %v", err)
	}

	row, err := b.GetByKey(ctx, e, key)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if !primitive.Equal(row[1], primitive.String("new@b.c")) {
		t.Errorf("email not replaced: %v", row[1])
	}

	err = b.ReplaceByKey(ctx, e, "user", 999, []primitive.Value{
		primitive.String("x"), primitive.Null{},
	})
	if !qerr.Is(err, qerr.ErrRowNotFound) {
		t.Errorf("replacing a missing row: got %v", err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	ctx := context.Background()

	sentinel := qerr.New(qerr.ErrInternal, "boom")
	err := m.WithTransaction(ctx, func(ctx context.Context, b backend.Backend[int64]) error {
		if _, err := b.Insert(ctx, e, "user", []primitive.Value{
			primitive.String("a@b.c"), primitive.Null{},
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !qerr.Is(err, qerr.ErrInternal) {
		t.Fatalf("callback error must surface, got %v", err)
	}

	count, err := m.Backend().Count(ctx, e, query.True{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("rollback must discard the insert, found %d rows", count)
	}
}

func TestSavepointRollsBackNestedWork(t *testing.T) {
	e := userEntity()
	m := openTestDB(t, e)
	ctx := context.Background()

	err := m.WithTransaction(ctx, func(ctx context.Context, b backend.Backend[int64]) error {
		if _, err := b.Insert(ctx, e, "user", []primitive.Value{
			primitive.String("keep@b.c"), primitive.Null{},
		}); err != nil {
			return err
		}

		sp := b.(backend.Savepointer)
		spErr := sp.WithSavepoint(ctx, func(ctx context.Context) error {
			if _, err := b.Insert(ctx, e, "user", []primitive.Value{
				primitive.String("drop@b.c"), primitive.Null{},
			}); err != nil {
				return err
			}
			return qerr.New(qerr.ErrInternal, "abort nested work")
		})
		if !qerr.Is(spErr, qerr.ErrInternal) {
			t.Errorf("savepoint error must surface, got %v", spErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	count, err := m.Backend().Count(ctx, e, query.True{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("only the outer insert must survive, found %d rows", count)
	}
}

func TestSavepointOutsideTransactionFails(t *testing.T) {
	m := openTestDB(t, userEntity())

	sp := m.Backend().(backend.Savepointer)
	err := sp.WithSavepoint(context.Background(), func(ctx context.Context) error { return nil })
	if !qerr.Is(err, qerr.ErrTransaction) {
		t.Errorf("code: got %v", qerr.GetErrorCode(err))
	}
}

func TestConnectionBinding(t *testing.T) {
	m := openTestDB(t, userEntity())

	if m.Backend().(backend.ConnectionBound).SameConnection() {
		t.Errorf("pool backend must not claim connection affinity")
	}
	err := m.WithoutTransaction(context.Background(), func(ctx context.Context, b backend.Backend[int64]) error {
		if !b.(backend.ConnectionBound).SameConnection() {
			t.Errorf("pinned backend must claim connection affinity")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithoutTransaction: %v", err)
	}
}

func TestMigrateRefusesUnsafeSteps(t *testing.T) {
	m := openTestDB(t, userEntity())

	steps := []migrate.Step{{SQL: "DROP TABLE auth_user", Safe: false, Priority: migrate.PriorityDropTable}}
	err := m.Backend().Migrate(context.Background(), steps, false)
	if !qerr.Is(err, qerr.ErrMigrationPlan) {
		t.Fatalf("unsafe step must be refused, got %v", err)
	}
	if err := m.Backend().Migrate(context.Background(), steps, true); err != nil {
		t.Fatalf("explicitly allowed unsafe step must run: %v", err)
	}
}

func TestRawRoundTrip(t *testing.T) {
	m := openTestDB(t, userEntity())
	b := m.Backend()
	ctx := context.Background()

	n, err := b.ExecRaw(ctx,
		`INSERT INTO auth_user (email) VALUES (?)`,
		[]primitive.Value{primitive.String("raw@b.c")})
	if err != nil || n != 1 {
		t.Fatalf("ExecRaw: n=%d err=%v", n, err)
	}

	for _, cacheable := range []bool{false, true} {
		rows, err := b.QueryRaw(ctx,
			`SELECT email FROM auth_user WHERE email = ?`,
			[]primitive.Value{primitive.String("raw@b.c")}, cacheable)
		if err != nil {
			t.Fatalf("QueryRaw(cacheable=%v): %v", cacheable, err)
		}
		got, err := backend.Collect(rows)
		if err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if len(got) != 1 || !primitive.Equal(got[0][0], primitive.String("raw@b.c")) {
			t.Errorf("cacheable=%v: got %v", cacheable, got)
		}
	}
}

func TestListRoundTrip(t *testing.T) {
	m := openTestDB(t, userEntity())
	b := m.Backend()
	ctx := context.Background()

	// Side tables are ordinary relations; create one directly.
	_, err := b.ExecRaw(ctx, `CREATE TABLE tags ("list_id" INTEGER, "pos" INTEGER, "value" TEXT)`, nil)
	if err != nil {
		t.Fatalf("create side table: %v", err)
	}

	id, err := b.InsertList(ctx, "tags", [][]primitive.Value{
		{primitive.String("go")},
		{primitive.String("sql")},
	})
	if err != nil {
		t.Fatalf("InsertList: %v", err)
	}

	rows, err := b.GetList(ctx, "tags", id)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	got, err := backend.Collect(rows)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 ||
		!primitive.Equal(got[0][0], primitive.String("go")) ||
		!primitive.Equal(got[1][0], primitive.String("sql")) {
		t.Errorf("list elements: got %v", got)
	}

	// A second list gets a distinct id.
	id2, err := b.InsertList(ctx, "tags", [][]primitive.Value{{primitive.String("x")}})
	if err != nil {
		t.Fatalf("InsertList: %v", err)
	}
	if id2 == id {
		t.Errorf("list ids must be distinct")
	}
}

func TestTemporalRoundTrip(t *testing.T) {
	e := &schema.Entity{
		Name: "event",
		Ctors: []schema.Constructor{{
			Name:    "event",
			Autokey: "id",
			Fields: []schema.Field{
				{Name: "day", Type: schema.Primitive(primitive.KindDate)},
				{Name: "at", Type: schema.Primitive(primitive.KindUTCTime)},
				{Name: "flag", Type: schema.Primitive(primitive.KindBool)},
			},
		}},
	}
	m := openTestDB(t, e)
	b := m.Backend()
	ctx := context.Background()

	day := primitive.Date{Year: 2024, Month: 6, Day: 1}
	at := primitive.NewUTCTime(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
	key, err := b.Insert(ctx, e, "event", []primitive.Value{day, at, primitive.Bool(true)})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	row, err := b.GetByKey(ctx, e, key)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if !primitive.Equal(row[1], day) {
		t.Errorf("date: got %v", row[1])
	}
	if !primitive.Equal(row[2], at) {
		t.Errorf("timestamp: got %v", row[2])
	}
	if !primitive.Equal(row[3], primitive.Bool(true)) {
		t.Errorf("bool: got %v", row[3])
	}
}
