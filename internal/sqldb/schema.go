package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Schema DDL. Column types are written for SQLite and translated for
// PostgreSQL by ddlFor. UUIDs are canonical text, hashes are 32-byte blobs,
// ctime is unix seconds.
const (
	createProjects = `CREATE TABLE IF NOT EXISTS projects (
    uuid TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    metadata TEXT,
    owner TEXT,
    ctime INTEGER,
    journal TEXT
)`

	createExperiments = `CREATE TABLE IF NOT EXISTS experiments (
    uuid TEXT PRIMARY KEY,
    project TEXT NOT NULL REFERENCES projects(uuid),
    name TEXT NOT NULL,
    metadata TEXT,
    owner TEXT,
    ctime INTEGER,
    journal TEXT,
    locked INTEGER NOT NULL DEFAULT 0,
    UNIQUE (project, name)
)`

	createFiles = `CREATE TABLE IF NOT EXISTS files (
    hash BLOB PRIMARY KEY,
    size INTEGER NOT NULL CHECK (size >= 0),
    name TEXT,
    creator TEXT REFERENCES experiments(uuid),
    owner TEXT,
    ctime INTEGER,
    metadata TEXT
)`

	createFileRoles = `CREATE TABLE IF NOT EXISTS file_roles (
    id INTEGER PRIMARY KEY,
    role TEXT NOT NULL
)`

	createFileMap = `CREATE TABLE IF NOT EXISTS file_map (
    uuid TEXT NOT NULL REFERENCES experiments(uuid),
    hash BLOB NOT NULL REFERENCES files(hash),
    role INTEGER NOT NULL CHECK (role BETWEEN 1 AND 4) REFERENCES file_roles(id),
    path TEXT,
    UNIQUE (uuid, hash)
)`

	createConfig = `CREATE TABLE IF NOT EXISTS config (
    name TEXT PRIMARY KEY,
    value_blob BLOB,
    value_string TEXT
)`
)

// Index DDL for the lookups the ledger performs on every walk.
const (
	indexExperimentsProject = `CREATE INDEX IF NOT EXISTS idx_experiments_project ON experiments (project)`
	indexFileMapHashRole    = `CREATE INDEX IF NOT EXISTS idx_file_map_hash_role ON file_map (hash, role)`
	indexFileMapPath        = `CREATE INDEX IF NOT EXISTS idx_file_map_path ON file_map (uuid, path)`
	indexFilesCreator       = `CREATE INDEX IF NOT EXISTS idx_files_creator ON files (creator)`
)

// schemaDDL lists table statements in dependency order.
var schemaDDL = []string{
	createProjects,
	createExperiments,
	createFiles,
	createFileRoles,
	createFileMap,
	createConfig,
}

var indexDDL = []string{
	indexExperimentsProject,
	indexFileMapHashRole,
	indexFileMapPath,
	indexFilesCreator,
}

// Tables lists the ledger tables in dependency order.
var Tables = []string{"projects", "experiments", "files", "file_roles", "file_map", "config"}

// ddlFor translates SQLite column types for the dialect.
func ddlFor(d Dialect, stmt string) string {
	if d.Name != Postgres.Name {
		return stmt
	}
	r := strings.NewReplacer(
		" BLOB", " BYTEA",
		"ctime INTEGER", "ctime BIGINT",
		"size INTEGER", "size BIGINT",
	)
	return r.Replace(stmt)
}

func applySchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.ExecContext(ctx, ddlFor(d, stmt)); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
