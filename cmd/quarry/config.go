package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quarrydb/quarry/internal/qerr"
	"github.com/quarrydb/quarry/pkg/dialect"
)

// Config is the quarry.yaml configuration file.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	Dialect     string `yaml:"dialect"`
	SchemaDir   string `yaml:"schema_dir"`
	Snapshot    string `yaml:"snapshot"`
}

// loadConfig resolves configuration with the precedence
// CLI flags > environment variables > config file > defaults.
// Values in the config file may interpolate ${ENV_VAR} references.
func loadConfig() (*Config, error) {
	cfg := &Config{
		Dialect:   "sqlite",
		SchemaDir: "schemas",
		Snapshot:  filepath.Join(".quarry", "snapshot.yaml"),
	}

	path := flagConfig
	if path == "" {
		path = "quarry.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && flagConfig == "":
		// No config file is fine when it was not asked for explicitly.
	case err != nil:
		return nil, qerr.Wrap(qerr.ErrInternal, err, "cannot read config file").
			With("file", path)
	default:
		expanded := os.Expand(string(data), os.Getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, qerr.Wrap(qerr.ErrInternal, err, "malformed config file").
				With("file", path)
		}
	}

	applyEnv(&cfg.DatabaseURL, "QUARRY_DATABASE_URL")
	applyEnv(&cfg.Dialect, "QUARRY_DIALECT")
	applyEnv(&cfg.SchemaDir, "QUARRY_SCHEMA_DIR")

	if flagDatabaseURL != "" {
		cfg.DatabaseURL = flagDatabaseURL
	}
	if flagDialect != "" {
		cfg.Dialect = flagDialect
	}
	if flagSchemaDir != "" {
		cfg.SchemaDir = flagSchemaDir
	}

	if dialect.Get(cfg.Dialect) == nil {
		return nil, qerr.Newf(qerr.ErrInternal, "unknown dialect %q (known: %v)",
			cfg.Dialect, dialect.Names())
	}
	return cfg, nil
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// driverName maps a dialect name to its database/sql driver.
func driverName(d string) string {
	switch d {
	case "postgres", "postgresql":
		return "postgres"
	default:
		return "sqlite"
	}
}
