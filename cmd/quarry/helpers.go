package main

import (
	"sort"

	"github.com/quarrydb/quarry/internal/schemafile"
	"github.com/quarrydb/quarry/pkg/dialect"
	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/schema"
)

// loadTargets loads the schema directory and flattens every entity into the
// relations the configured dialect would create.
func loadTargets(cfg *Config) ([]*schema.Entity, []*schema.Relation, error) {
	entities, err := schemafile.LoadDir(cfg.SchemaDir)
	if err != nil {
		return nil, nil, err
	}

	d := dialect.Get(cfg.Dialect)
	rels := make([]*schema.Relation, 0, len(entities))
	for _, e := range entities {
		rel, err := schema.Flatten(e, d)
		if err != nil {
			return nil, nil, err
		}
		rels = append(rels, rel)
	}
	return entities, rels, nil
}

// relationsOf collects the relations of a snapshot map in name order.
func relationsOf(m map[string]*schema.Relation) []*schema.Relation {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*schema.Relation, 0, len(m))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}

// loadPlan builds the migration plan from the snapshot to the schema dir.
func loadPlan(cfg *Config) (migrate.Named, []*schema.Relation, error) {
	_, targets, err := loadTargets(cfg)
	if err != nil {
		return nil, nil, err
	}
	current, err := schemafile.LoadSnapshot(cfg.Snapshot)
	if err != nil {
		return nil, nil, err
	}
	return migrate.PlanRelations(current, targets, dialect.Get(cfg.Dialect)), targets, nil
}
