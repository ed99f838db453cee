// Package sqldb implements the relational backend of the provenance ledger.
// It owns the single *sql.DB of the process, applies the schema for the
// selected dialect, seeds the role table, and classifies driver constraint
// errors into the types error taxonomy.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// DBFileName is the SQLite database file created inside Config.DataDir.
const DBFileName = "ledger.db"

// Backend is the relational executor shared by the ledger and settings
// stores. All statements are written with '?' placeholders and rebound for
// the attached dialect.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  Dialect
	db       *sql.DB
}

// NewBackend creates a new backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the database described by config, enables constraint
// enforcement, creates missing tables and seeds the role table.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dialect := dialectFor(config.Backend)
	dsn, err := dataSourceName(config)
	if err != nil {
		return err
	}

	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", config.Backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", config.Backend, err)
	}

	if err := applySchema(ctx, db, dialect); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := seedRoles(ctx, db, dialect); err != nil {
		db.Close()
		return fmt.Errorf("seed roles: %w", err)
	}

	b.db = db
	b.dialect = dialect
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the connection. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Shutdown detaches the backend when the dependency container shuts down.
func (b *Backend) Shutdown() error {
	return b.Detach()
}

// Attached reports whether the backend holds an open connection.
func (b *Backend) Attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.attached
}

// Dialect returns the SQL dialect of the attached database.
func (b *Backend) Dialect() Dialect {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dialect
}

// Check queries every ledger table and fails with ErrStorage when one is
// missing or unreadable.
func (b *Backend) Check(ctx context.Context) error {
	for _, table := range Tables {
		var n int64
		if err := b.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return fmt.Errorf("%s table %s: %w", b.Dialect().Name, table, err)
		}
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// dataSourceName builds the driver DSN. SQLite databases are created in
// DataDir with foreign keys enforced on every pooled connection.
func dataSourceName(config types.Config) (string, error) {
	if config.Backend == types.BackendPostgres {
		return config.DSN, nil
	}
	if config.DSN != "" {
		return config.DSN, nil
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		filepath.Join(dataDir, DBFileName)), nil
}
