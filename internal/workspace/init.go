package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/config"
	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/internal/settings"
	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/internal/store"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// InitOptions configure Init.
type InitOptions struct {
	Project string // Name of the first project. Required.
	Store   string // Store location; defaults to .prov/store.
	Hash    string // Store digest algorithm; defaults to sha256.
	Owner   string // Default owner of new records; defaults to the current user.
}

// Init creates a workspace in dir: the .prov directory with its config
// file and ledger, the content store, and a first project, which becomes
// active.
func Init(ctx context.Context, dir string, opts InitOptions, log *zap.Logger) (types.Project, error) {
	if opts.Project == "" {
		return types.Project{}, types.InvalidArgument("project", "name must not be empty")
	}
	alg, err := store.ParseAlgorithm(opts.Hash)
	if err != nil {
		return types.Project{}, types.InvalidArgument("store", err.Error())
	}
	if log == nil {
		log = zap.NewNop()
	}

	top, err := filepath.Abs(dir)
	if err != nil {
		return types.Project{}, err
	}
	info, err := os.Stat(top)
	switch {
	case err == nil && !info.IsDir():
		return types.Project{}, types.InvalidArgument("workspace", top+" is not a directory")
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return types.Project{}, err
	}
	if _, err := os.Stat(paths.WorkspaceDir(top)); err == nil {
		return types.Project{}, types.Conflict("workspace", top, "already initialized")
	}
	if err := os.MkdirAll(paths.WorkspaceDir(top), 0o755); err != nil {
		return types.Project{}, fmt.Errorf("create workspace: %w", err)
	}

	if err := config.Write(top, config.Default()); err != nil {
		return types.Project{}, err
	}
	cfg, err := config.Load(top)
	if err != nil {
		return types.Project{}, err
	}

	backend := sqldb.NewBackend()
	if err := backend.Attach(ctx, cfg.Backend(top)); err != nil {
		return types.Project{}, err
	}
	defer backend.Detach()

	storeDir, storeSetting := paths.DefaultStoreDir(top), filepath.Join(paths.WorkspaceDirName, paths.StoreDirName)
	if opts.Store != "" {
		if storeDir, err = filepath.Abs(opts.Store); err != nil {
			return types.Project{}, err
		}
		if storeSetting, err = filepath.Rel(top, storeDir); err != nil {
			storeSetting = storeDir
		}
	}
	if err := store.Create(storeDir); err != nil {
		return types.Project{}, err
	}

	st := settings.New(backend)
	if err := st.SetString(ctx, settings.KeyStorePath, storeSetting); err != nil {
		return types.Project{}, err
	}
	if err := st.SetString(ctx, settings.KeyStoreHash, string(alg)); err != nil {
		return types.Project{}, err
	}
	owner := opts.Owner
	if owner == "" {
		owner, _ = currentUserName()
	}
	if owner != "" {
		if err := st.SetString(ctx, settings.KeyOwner, owner); err != nil {
			return types.Project{}, err
		}
	}

	w, err := Open(ctx, top, Deps{Config: cfg, Backend: backend, Log: log})
	if err != nil {
		return types.Project{}, err
	}
	p, err := w.CreateProject(ctx, opts.Project, "")
	if err != nil {
		return types.Project{}, err
	}
	log.Info("workspace initialized", zap.String("top", top), zap.String("store", storeSetting))
	return p, nil
}
