package schemafile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/internal/drift"
	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/migrate"
	"github.com/quarrydb/quarry/pkg/schema"
)

// snapshotVersion guards the on-disk layout of the snapshot file.
const snapshotVersion = 1

// Snapshot records the relations that were last applied to a database,
// plus their merkle fingerprint for quick drift checks.
type Snapshot struct {
	Version int                `yaml:"version"`
	Root    string             `yaml:"root"`
	Tables  []*schema.Relation `yaml:"tables"`
}

// LoadSnapshot reads the snapshot at path. A missing file is not an error:
// it returns an empty map, meaning every table is new.
func LoadSnapshot(path string) (map[string]*schema.Relation, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*schema.Relation{}, nil
	}
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrMigrationPlan, err, "cannot read snapshot").
			With("file", path)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, qerr.Wrap(qerr.ErrMigrationPlan, err, "malformed snapshot").
			With("file", path)
	}
	if snap.Version != snapshotVersion {
		return nil, qerr.New(qerr.ErrMigrationPlan, "unsupported snapshot version").
			With("file", path).
			With("version", snap.Version)
	}

	out := make(map[string]*schema.Relation)
	for _, rel := range snap.Tables {
		for _, r := range migrate.Expand(rel) {
			out[r.Name] = r
		}
	}
	return out, nil
}

// SaveSnapshot writes the snapshot for rels atomically (write to a temp
// file in the same directory, then rename).
func SaveSnapshot(path string, rels []*schema.Relation) error {
	fp, err := drift.Hash(rels)
	if err != nil {
		return err
	}
	snap := Snapshot{Version: snapshotVersion, Root: fp.Root, Tables: rels}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return qerr.Wrap(qerr.ErrInternal, err, "cannot encode snapshot")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return qerr.Wrap(qerr.ErrInternal, err, "cannot create snapshot file").
			With("dir", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return qerr.Wrap(qerr.ErrInternal, err, "cannot write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return qerr.Wrap(qerr.ErrInternal, err, "cannot write snapshot")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return qerr.Wrap(qerr.ErrInternal, err, "cannot replace snapshot").
			With("file", path)
	}
	return nil
}
