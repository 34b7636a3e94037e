// Package drift fingerprints planned relational schemas with merkle trees,
// so a deployed database can be checked against the code's expectations by
// comparing one root hash, with per-table hashes for drill-down when they
// disagree.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/schema"
)

// SchemaHash is the hierarchical fingerprint of a schema.
type SchemaHash struct {
	Root   string            // Root hash over all tables
	Tables map[string]string // Table name -> table hash
}

// tableContent implements merkletree.Content for one table.
type tableContent struct {
	hash string
}

func (t tableContent) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(t.hash))
	return h[:], nil
}

func (t tableContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(tableContent)
	return ok && t.hash == o.hash, nil
}

// Hash fingerprints a set of relations. List side tables are included.
// The result is independent of input order.
func Hash(rels []*schema.Relation) (*SchemaHash, error) {
	out := &SchemaHash{Tables: make(map[string]string)}

	var flat []*schema.Relation
	var expand func(r *schema.Relation)
	expand = func(r *schema.Relation) {
		flat = append(flat, r)
		for _, side := range r.Lists {
			expand(side)
		}
	}
	for _, r := range rels {
		expand(r)
	}

	for _, r := range flat {
		out.Tables[r.Name] = tableHash(r)
	}
	if len(out.Tables) == 0 {
		out.Root = emptyHash()
		return out, nil
	}

	names := make([]string, 0, len(out.Tables))
	for name := range out.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	contents := make([]merkletree.Content, len(names))
	for i, name := range names {
		contents[i] = tableContent{hash: name + ":" + out.Tables[name]}
	}
	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrInternal, err, "cannot build schema merkle tree")
	}
	out.Root = hex.EncodeToString(tree.MerkleRoot())
	return out, nil
}

// Compare lists the tables whose hashes differ between two fingerprints,
// including tables present on only one side.
func Compare(a, b *SchemaHash) []string {
	if a.Root == b.Root {
		return nil
	}
	seen := make(map[string]bool)
	var diff []string
	for name, h := range a.Tables {
		seen[name] = true
		if b.Tables[name] != h {
			diff = append(diff, name)
		}
	}
	for name := range b.Tables {
		if !seen[name] {
			diff = append(diff, name)
		}
	}
	sort.Strings(diff)
	return diff
}

// tableHash digests one relation: columns, uniques, and foreign keys, each
// sorted by name so field order in the definition does not matter.
func tableHash(r *schema.Relation) string {
	var parts []string

	for _, c := range r.Columns {
		parts = append(parts, fmt.Sprintf("col:%s:%s:%v:%v:%v:%s",
			c.Name, c.Kind, c.Nullable, c.PrimaryKey, c.AutoIncrement, c.Default))
	}
	for _, u := range r.Uniques {
		parts = append(parts, fmt.Sprintf("uq:%s:%s:%s:%s",
			u.Name, u.Kind, strings.Join(u.Columns, ","), strings.Join(u.Exprs, ",")))
	}
	for _, fk := range r.ForeignKeys {
		parts = append(parts, fmt.Sprintf("fk:%s:%s>%s(%s):%s:%s",
			fk.Name, strings.Join(fk.Columns, ","), fk.RefTable,
			strings.Join(fk.RefColumns, ","), fk.OnDelete.SQL(), fk.OnUpdate.SQL()))
	}
	sort.Strings(parts)

	h := sha256.Sum256([]byte(r.Name + "\n" + strings.Join(parts, "\n")))
	return hex.EncodeToString(h[:])
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return hex.EncodeToString(h[:])
}
