package dialect

import (
	"strings"
	"testing"

	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

func userRelation() *schema.Relation {
	return &schema.Relation{
		Name: "auth_user",
		Columns: []schema.Column{
			{Name: "id", Kind: primitive.KindInt64, PrimaryKey: true, AutoIncrement: true},
			{Name: "email", Kind: primitive.KindString},
			{Name: "nickname", Kind: primitive.KindString, Nullable: true},
			{Name: "active", Kind: primitive.KindBool, Default: "TRUE"},
		},
		Uniques: []schema.UniqueSpec{
			{Name: "uq_auth_user_email", Kind: schema.UniqueConstraint, Columns: []string{"email"}},
		},
		ForeignKeys: []schema.ForeignKey{
			{
				Name:       "fk_auth_user_org",
				Columns:    []string{"org"},
				RefTable:   "auth_org",
				RefColumns: []string{"id"},
				OnDelete:   schema.Cascade,
			},
		},
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"postgres", "postgres"},
		{"postgresql", "postgres"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
	}
	for _, tt := range tests {
		d := Get(tt.name)
		if d == nil {
			t.Fatalf("Get(%q) = nil", tt.name)
		}
		if d.BackendName() != tt.want {
			t.Errorf("Get(%q).BackendName() = %q, want %q", tt.name, d.BackendName(), tt.want)
		}
	}
	if Get("oracle") != nil {
		t.Errorf("unsupported dialect must return nil")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Postgres().Placeholder(3); got != "$3" {
		t.Errorf("postgres placeholder: got %q", got)
	}
	if got := SQLite().Placeholder(3); got != "?" {
		t.Errorf("sqlite placeholder: got %q", got)
	}
}

func TestQuoteIdentEscapesQuotes(t *testing.T) {
	for _, d := range []Dialect{Postgres(), SQLite()} {
		got := d.QuoteIdent(`we"ird`)
		if got != `"we""ird"` {
			t.Errorf("%s: QuoteIdent = %q", d.BackendName(), got)
		}
	}
}

func TestPostgresCreateTable(t *testing.T) {
	sql, err := Postgres().CreateTableSQL(userRelation())
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "auth_user"`,
		`"id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY`,
		`"email" TEXT NOT NULL`,
		`"nickname" TEXT`,
		`"active" BOOLEAN NOT NULL DEFAULT TRUE`,
		`CONSTRAINT "uq_auth_user_email" UNIQUE ("email")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("missing %q in:\n%s", want, sql)
		}
	}
	// Foreign keys are added with ALTER TABLE after all tables exist.
	if strings.Contains(sql, "FOREIGN KEY") {
		t.Errorf("postgres CREATE TABLE must not inline foreign keys:\n%s", sql)
	}
}

func TestSQLiteCreateTableInlinesForeignKeys(t *testing.T) {
	sql, err := SQLite().CreateTableSQL(userRelation())
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}

	for _, want := range []string{
		`"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
		`FOREIGN KEY ("org") REFERENCES "auth_org" ("id") ON DELETE CASCADE`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("missing %q in:\n%s", want, sql)
		}
	}
}

func TestAddForeignKey(t *testing.T) {
	fk := userRelation().ForeignKeys[0]

	sql, err := Postgres().AddForeignKeySQL("auth_user", fk)
	if err != nil {
		t.Fatalf("postgres AddForeignKeySQL: %v", err)
	}
	want := `ALTER TABLE "auth_user" ADD CONSTRAINT "fk_auth_user_org" ` +
		`FOREIGN KEY ("org") REFERENCES "auth_org" ("id") ON DELETE CASCADE`
	if sql != want {
		t.Errorf("got:\n%s\nwant:\n%s", sql, want)
	}

	if _, err := SQLite().AddForeignKeySQL("auth_user", fk); err == nil {
		t.Errorf("sqlite must refuse ALTER TABLE ADD CONSTRAINT")
	}
}

func TestCreateUniqueWithExpressions(t *testing.T) {
	u := schema.UniqueSpec{
		Name:    "uq_auth_user_email_lower",
		Kind:    schema.UniqueIndex,
		Exprs:   []string{"lower(email)"},
		Columns: []string{"active"},
	}
	sql, err := Postgres().CreateUniqueSQL("auth_user", u)
	if err != nil {
		t.Fatalf("CreateUniqueSQL: %v", err)
	}
	want := `CREATE UNIQUE INDEX IF NOT EXISTS "uq_auth_user_email_lower" ` +
		`ON "auth_user" ("active", (lower(email)))`
	if sql != want {
		t.Errorf("got:\n%s\nwant:\n%s", sql, want)
	}
}

func TestAddColumn(t *testing.T) {
	col := schema.Column{Name: "age", Kind: primitive.KindInt64, Nullable: true}
	sql, err := SQLite().AddColumnSQL("auth_user", col)
	if err != nil {
		t.Fatalf("AddColumnSQL: %v", err)
	}
	if sql != `ALTER TABLE "auth_user" ADD COLUMN "age" INTEGER` {
		t.Errorf("got %q", sql)
	}
}

func TestTypeNames(t *testing.T) {
	tests := []struct {
		kind primitive.Kind
		pg   string
		lite string
	}{
		{primitive.KindString, "TEXT", "TEXT"},
		{primitive.KindBlob, "BYTEA", "BLOB"},
		{primitive.KindInt64, "BIGINT", "INTEGER"},
		{primitive.KindDouble, "DOUBLE PRECISION", "REAL"},
		{primitive.KindBool, "BOOLEAN", "INTEGER"},
		{primitive.KindDate, "DATE", "TEXT"},
		{primitive.KindUTCTime, "TIMESTAMPTZ", "TEXT"},
		{primitive.KindZonedTime, "TEXT", "TEXT"},
	}
	for _, tt := range tests {
		if got := Postgres().TypeName(tt.kind); got != tt.pg {
			t.Errorf("postgres %s: got %q, want %q", tt.kind, got, tt.pg)
		}
		if got := SQLite().TypeName(tt.kind); got != tt.lite {
			t.Errorf("sqlite %s: got %q, want %q", tt.kind, got, tt.lite)
		}
	}
}
