package drift

import (
	"testing"

	"github.com/quarrydb/quarry/pkg/primitive"
	"github.com/quarrydb/quarry/pkg/schema"
)

func rel(name string, cols ...schema.Column) *schema.Relation {
	return &schema.Relation{Name: name, Columns: cols}
}

func TestHashIsDeterministicAndOrderIndependent(t *testing.T) {
	a := rel("t1", schema.Column{Name: "a", Kind: primitive.KindInt64})
	b := rel("t2", schema.Column{Name: "b", Kind: primitive.KindString})

	h1, err := Hash([]*schema.Relation{a, b})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash([]*schema.Relation{b, a})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1.Root != h2.Root {
		t.Errorf("root must not depend on input order: %s vs %s", h1.Root, h2.Root)
	}
}

func TestHashChangesWithColumnShape(t *testing.T) {
	before, _ := Hash([]*schema.Relation{rel("t", schema.Column{Name: "a", Kind: primitive.KindInt64})})
	after, _ := Hash([]*schema.Relation{rel("t", schema.Column{Name: "a", Kind: primitive.KindInt64, Nullable: true})})
	if before.Root == after.Root {
		t.Errorf("nullability change must alter the hash")
	}
}

func TestHashIncludesListSideTables(t *testing.T) {
	owner := rel("t", schema.Column{Name: "a", Kind: primitive.KindInt64})
	owner.Lists = []*schema.Relation{rel("t_tags", schema.Column{Name: "value", Kind: primitive.KindString})}

	h, err := Hash([]*schema.Relation{owner})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if _, ok := h.Tables["t_tags"]; !ok {
		t.Errorf("side tables must be fingerprinted: %v", h.Tables)
	}
}

func TestCompareNamesDifferingTables(t *testing.T) {
	a, _ := Hash([]*schema.Relation{
		rel("same", schema.Column{Name: "a", Kind: primitive.KindInt64}),
		rel("changed", schema.Column{Name: "a", Kind: primitive.KindInt64}),
	})
	b, _ := Hash([]*schema.Relation{
		rel("same", schema.Column{Name: "a", Kind: primitive.KindInt64}),
		rel("changed", schema.Column{Name: "a", Kind: primitive.KindString}),
		rel("extra", schema.Column{Name: "x", Kind: primitive.KindBool}),
	})

	diff := Compare(a, b)
	if len(diff) != 2 || diff[0] != "changed" || diff[1] != "extra" {
		t.Errorf("diff: got %v", diff)
	}

	if d := Compare(a, a); d != nil {
		t.Errorf("identical fingerprints must not differ: %v", d)
	}
}

func TestHashEmptySchema(t *testing.T) {
	h, err := Hash(nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h.Root == "" {
		t.Errorf("empty schema still has a stable root")
	}
}
