package migrate

import (
	"strings"
	"testing"

	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

func accountRelation() *schema.Relation {
	return &schema.Relation{
		Name: "bank_account",
		Columns: []schema.Column{
			{Name: "id", Kind: primitive.KindInt64, PrimaryKey: true, AutoIncrement: true},
			{Name: "owner", Kind: primitive.KindInt64},
			{Name: "balance", Kind: primitive.KindDouble, Default: "0"},
		},
		Uniques: []schema.UniqueSpec{
			{Name: "uq_bank_account_owner", Kind: schema.UniqueConstraint, Columns: []string{"owner"}},
		},
		ForeignKeys: []schema.ForeignKey{
			{
				Name:       "fk_bank_account_owner",
				Columns:    []string{"owner"},
				RefTable:   "bank_customer",
				RefColumns: []string{"id"},
				OnDelete:   schema.Cascade,
			},
		},
	}
}

func TestDiffUnchangedIsEmpty(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.Postgres(), dialect.SQLite()} {
		m := Diff(accountRelation(), accountRelation(), d)
		if !m.Empty() {
			t.Errorf("%s: identical shapes must plan nothing, got errors=%v steps=%v",
				d.BackendName(), m.Errors, m.Steps)
		}
	}
}

func TestDiffCreatesMissingTable(t *testing.T) {
	m := Diff(nil, accountRelation(), dialect.Postgres())
	if !m.OK() {
		t.Fatalf("errors: %v", m.Errors)
	}
	if len(m.Steps) != 2 {
		t.Fatalf("steps: got %d, want create + foreign key", len(m.Steps))
	}
	if m.Steps[0].Priority != PriorityCreateTable || !strings.HasPrefix(m.Steps[0].SQL, "CREATE TABLE") {
		t.Errorf("first step must create the table: %+v", m.Steps[0])
	}
	if m.Steps[1].Priority != PriorityForeignKey {
		t.Errorf("foreign key must be deferred after table creation: %+v", m.Steps[1])
	}
}

func TestDiffSQLiteCreateInlinesForeignKey(t *testing.T) {
	m := Diff(nil, accountRelation(), dialect.SQLite())
	if !m.OK() {
		t.Fatalf("errors: %v", m.Errors)
	}
	if len(m.Steps) != 1 {
		t.Fatalf("steps: got %d, want only CREATE TABLE", len(m.Steps))
	}
	if !strings.Contains(m.Steps[0].SQL, "FOREIGN KEY") {
		t.Errorf("foreign key must be inlined:\n%s", m.Steps[0].SQL)
	}
}

func TestDiffDropTableIsUnsafe(t *testing.T) {
	m := Diff(accountRelation(), nil, dialect.Postgres())
	if len(m.Steps) != 1 || m.Steps[0].Safe {
		t.Fatalf("dropping a table must be one unsafe step: %+v", m.Steps)
	}
	if m.Steps[0].Priority != PriorityDropTable {
		t.Errorf("drops must run last: %+v", m.Steps[0])
	}
}

func TestDiffAddAndDropColumn(t *testing.T) {
	target := accountRelation()
	target.Columns = append(target.Columns,
		schema.Column{Name: "note", Kind: primitive.KindString, Nullable: true})
	current := accountRelation()
	current.Columns = append(current.Columns,
		schema.Column{Name: "legacy", Kind: primitive.KindString, Nullable: true})

	m := Diff(current, target, dialect.Postgres())
	if !m.OK() {
		t.Fatalf("errors: %v", m.Errors)
	}
	if len(m.Steps) != 2 {
		t.Fatalf("steps: got %+v", m.Steps)
	}

	var added, dropped *Step
	for i := range m.Steps {
		if strings.Contains(m.Steps[i].SQL, "ADD COLUMN") {
			added = &m.Steps[i]
		}
		if strings.Contains(m.Steps[i].SQL, "DROP COLUMN") {
			dropped = &m.Steps[i]
		}
	}
	if added == nil || !added.Safe {
		t.Errorf("adding a nullable column must be a safe step: %+v", added)
	}
	if dropped == nil || dropped.Safe {
		t.Errorf("dropping a column must be unsafe: %+v", dropped)
	}
}

func TestDiffRejectsAmbiguousChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*schema.Relation)
		want   string
	}{
		{
			"type change",
			func(r *schema.Relation) { r.Column("balance").Kind = primitive.KindString },
			"conversion is ambiguous",
		},
		{
			"nullability flip",
			func(r *schema.Relation) { r.Column("balance").Nullable = true },
			"changes nullability",
		},
		{
			"not null without default",
			func(r *schema.Relation) {
				r.Columns = append(r.Columns, schema.Column{Name: "iban", Kind: primitive.KindString})
			},
			"needs a backfill",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := accountRelation()
			tt.mutate(target)
			m := Diff(accountRelation(), target, dialect.Postgres())
			if m.OK() {
				t.Fatalf("must report a blocker, got steps %+v", m.Steps)
			}
			if len(m.Steps) != 0 {
				t.Errorf("a blocked migration must not carry steps")
			}
			found := false
			for _, e := range m.Errors {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v must mention %q", m.Errors, tt.want)
			}
		})
	}
}

func TestDiffUniqueChangeDropsAndRecreates(t *testing.T) {
	target := accountRelation()
	target.Uniques[0].Columns = []string{"owner", "balance"}

	m := Diff(accountRelation(), target, dialect.Postgres())
	if !m.OK() {
		t.Fatalf("errors: %v", m.Errors)
	}
	if len(m.Steps) != 2 {
		t.Fatalf("steps: got %+v", m.Steps)
	}
	if !strings.Contains(m.Steps[0].SQL, "DROP") || !strings.Contains(m.Steps[1].SQL, "CREATE UNIQUE INDEX") {
		t.Errorf("changed unique must drop then recreate:\n%s\n%s", m.Steps[0].SQL, m.Steps[1].SQL)
	}
}

func TestPlanRelationsDropsOrphans(t *testing.T) {
	current := map[string]*schema.Relation{
		"bank_account": accountRelation(),
		"bank_legacy":  {Name: "bank_legacy"},
	}
	n := PlanRelations(current, []*schema.Relation{accountRelation()}, dialect.Postgres())

	if _, ok := n["bank_account"]; ok {
		t.Errorf("unchanged table must not appear in the plan")
	}
	m, ok := n["bank_legacy"]
	if !ok || len(m.Unsafe()) != 1 {
		t.Errorf("orphaned table must be planned for an unsafe drop: %+v", m)
	}
}

func TestPlanRelationsExpandsListTables(t *testing.T) {
	rel := accountRelation()
	rel.Lists = append(rel.Lists, &schema.Relation{
		Name: "bank_account_tags",
		Columns: []schema.Column{
			{Name: schema.ListKeyColumn, Kind: primitive.KindInt64},
			{Name: schema.ListPosColumn, Kind: primitive.KindInt64},
			{Name: schema.ListValColumn, Kind: primitive.KindString},
		},
	})

	n := PlanRelations(nil, []*schema.Relation{rel}, dialect.SQLite())
	if _, ok := n["bank_account_tags"]; !ok {
		t.Errorf("list side tables must be planned: %v", n)
	}
}

func TestNamedMergeLastWriteWins(t *testing.T) {
	a := Named{"t": {Table: "t", Steps: []Step{{SQL: "old"}}}}
	b := Named{"t": {Table: "t", Steps: []Step{{SQL: "new"}}}}

	merged := a.Merge(b)
	if merged["t"].Steps[0].SQL != "new" {
		t.Errorf("later set must win: %+v", merged["t"])
	}
	if a["t"].Steps[0].SQL != "old" {
		t.Errorf("merge must not modify its receiver")
	}
}

func TestNamedPlanOrdersAcrossTables(t *testing.T) {
	n := Named{
		"b": {Table: "b", Steps: []Step{
			{SQL: "fk b", Priority: PriorityForeignKey},
			{SQL: "create b", Priority: PriorityCreateTable},
		}},
		"a": {Table: "a", Steps: []Step{
			{SQL: "create a", Priority: PriorityCreateTable},
		}},
	}

	steps, err := n.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	got := make([]string, len(steps))
	for i, s := range steps {
		got[i] = s.SQL
	}
	want := []string{"create a", "create b", "fk b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
}

func TestNamedPlanFailsOnBlockedTable(t *testing.T) {
	n := Named{"t": {Table: "t", Errors: []string{"boom"}}}
	if _, err := n.Plan(); err == nil {
		t.Fatalf("blocked tables must fail the whole plan")
	}
}
