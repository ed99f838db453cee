// Package settings stores scalar process-wide values in the config table:
// the active project and experiment, the store location and digest, and the
// default owner. Each key holds one blob value and one string value.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Keys used by the workspace.
const (
	KeyProject    = "project"
	KeyExperiment = "experiment"
	KeyStorePath  = "store_path"
	KeyStoreHash  = "store_hash"
	KeyOwner      = "owner"
)

// Store reads and writes the config table.
type Store struct {
	db *sqldb.Backend
}

// New returns a Store over db.
func New(db *sqldb.Backend) *Store {
	return &Store{db: db}
}

// String returns the string value of key, or "" when unset.
func (s *Store) String(ctx context.Context, key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow(ctx, `SELECT value_string FROM config WHERE name = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return v.String, nil
}

// SetString stores the string value of key, keeping its blob value.
func (s *Store) SetString(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO config (name, value_string) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value_string = excluded.value_string`,
		key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// UUID returns the UUID stored in the blob value of key, or uuid.Nil when
// unset.
func (s *Store) UUID(ctx context.Context, key string) (uuid.UUID, error) {
	var b []byte
	err := s.db.QueryRow(ctx, `SELECT value_blob FROM config WHERE name = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(b) == 0) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read setting %s: %w", key, err)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: setting %s: %w", types.ErrStorage, key, err)
	}
	return id, nil
}

// SetUUID stores id in the blob value of key, keeping its string value.
// uuid.Nil clears the value.
func (s *Store) SetUUID(ctx context.Context, key string, id uuid.UUID) error {
	var v any
	if id != uuid.Nil {
		v = id[:]
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO config (name, value_blob) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value_blob = excluded.value_blob`,
		key, v)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// Clear removes both values of key.
func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM config WHERE name = ?`, key); err != nil {
		return fmt.Errorf("clear setting %s: %w", key, err)
	}
	return nil
}
