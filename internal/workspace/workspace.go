// Package workspace ties the ledger to a directory tree: it resolves the
// active project and experiment, moves registered files into the content
// store, and checks the store and the ledger against each other.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/config"
	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/metrics"
	"github.com/mesh-intelligence/provenance/internal/settings"
	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/internal/store"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Deps are the collaborators of an opened workspace. Backend must be
// attached.
type Deps struct {
	Config  *config.Config
	Backend *sqldb.Backend
	Log     *zap.Logger
	Metrics *metrics.Recorder
	Mirror  store.Mirror
}

// Workspace is an opened workspace rooted at a top directory.
type Workspace struct {
	top      string
	cfg      *config.Config
	db       *sqldb.Backend
	ledger   *ledger.Ledger
	settings *settings.Store
	store    *store.Store
	metrics  *metrics.Recorder
	log      *zap.Logger

	now         func() time.Time
	currentUser func() (string, error)
}

// Open opens the workspace rooted at top.
func Open(ctx context.Context, top string, deps Deps) (*Workspace, error) {
	if deps.Backend == nil || !deps.Backend.Attached() {
		return nil, fmt.Errorf("open workspace: %w", types.ErrBackendDetached)
	}
	if err := deps.Backend.Check(ctx); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := deps.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}

	w := &Workspace{
		top:         top,
		cfg:         cfg,
		db:          deps.Backend,
		ledger:      ledger.New(deps.Backend, log),
		settings:    settings.New(deps.Backend),
		metrics:     deps.Metrics,
		log:         log,
		now:         time.Now,
		currentUser: currentUserName,
	}

	storePath, err := w.settings.String(ctx, settings.KeyStorePath)
	if err != nil {
		return nil, err
	}
	if storePath == "" {
		return nil, fmt.Errorf("%w: workspace %s has no store configured", types.ErrStorage, top)
	}
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(top, storePath)
	}
	algName, err := w.settings.String(ctx, settings.KeyStoreHash)
	if err != nil {
		return nil, err
	}
	alg, err := store.ParseAlgorithm(algName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	w.store, err = store.Open(storePath, store.Options{Algorithm: alg, Mirror: deps.Mirror, Log: log})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return w, nil
}

// Top returns the workspace top directory.
func (w *Workspace) Top() string {
	return w.top
}

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() *config.Config {
	return w.cfg
}

// Ledger returns the underlying ledger.
func (w *Workspace) Ledger() *ledger.Ledger {
	return w.ledger
}

// Store returns the content store.
func (w *Workspace) Store() *store.Store {
	return w.store
}

// observe starts timing op for the metrics recorder, if any.
func (w *Workspace) observe(op string) func(*error) {
	if w.metrics == nil {
		return func(*error) {}
	}
	return w.metrics.Start(op)
}

// owner returns the configured owner, falling back to the current user.
func (w *Workspace) owner(ctx context.Context) *string {
	if name, err := w.settings.String(ctx, settings.KeyOwner); err == nil && name != "" {
		return &name
	}
	name, err := w.currentUser()
	if err != nil {
		w.log.Debug("owner unknown", zap.Error(err))
		return nil
	}
	return types.StringPtr(name)
}

func (w *Workspace) nowPtr() *time.Time {
	now := w.now()
	return &now
}

func currentUserName() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.Username == "" {
		return "", errors.New("current user has no name")
	}
	return u.Username, nil
}
