// Package bootstrap wires the collaborators of an opened workspace.
package bootstrap

import (
	"context"
	"io"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/config"
	"github.com/mesh-intelligence/provenance/internal/logging"
	"github.com/mesh-intelligence/provenance/internal/metrics"
	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/internal/store"
	"github.com/mesh-intelligence/provenance/internal/store/s3mirror"
	"github.com/mesh-intelligence/provenance/internal/workspace"
)

// BuildContainer registers the providers for the workspace rooted at top.
// Logs go to logOut. Services are built on first invoke; Shutdown on the
// returned injector detaches the ledger backend.
func BuildContainer(top string, logOut io.Writer) *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load(top)
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logging.NewTo(logOut, cfg.Log.Level, cfg.Log.Format)
	})

	// metrics
	do.Provide(inj, func(i *do.Injector) (*metrics.Recorder, error) {
		return metrics.New(), nil
	})

	// ledger backend
	do.Provide(inj, func(i *do.Injector) (*sqldb.Backend, error) {
		cfg := do.MustInvoke[*config.Config](i)
		b := sqldb.NewBackend()
		if err := b.Attach(context.Background(), cfg.Backend(top)); err != nil {
			return nil, err
		}
		return b, nil
	})

	// optional S3 mirror; nil when no bucket is configured
	do.Provide(inj, func(i *do.Injector) (store.Mirror, error) {
		s3 := do.MustInvoke[*config.Config](i).Store.Mirror.S3
		if s3.Bucket == "" {
			return nil, nil
		}
		m, err := s3mirror.New(context.Background(), s3mirror.Config{
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			PathStyle: s3.PathStyle,
			Prefix:    s3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	})

	// workspace
	do.Provide(inj, func(i *do.Injector) (*workspace.Workspace, error) {
		backend, err := do.Invoke[*sqldb.Backend](i)
		if err != nil {
			return nil, err
		}
		mirror, err := do.Invoke[store.Mirror](i)
		if err != nil {
			return nil, err
		}
		return workspace.Open(context.Background(), top, workspace.Deps{
			Config:  do.MustInvoke[*config.Config](i),
			Backend: backend,
			Log:     do.MustInvoke[*zap.Logger](i),
			Metrics: do.MustInvoke[*metrics.Recorder](i),
			Mirror:  mirror,
		})
	})

	return inj
}
