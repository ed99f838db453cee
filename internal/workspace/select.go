package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/settings"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Selection names the project and experiment an operation works on. Each
// field is a UUID, a name, or empty for the active one.
type Selection struct {
	Project    string
	Experiment string
}

// isUUID reports whether s is a UUID in its canonical 36 character form.
// Anything else is looked up as a name.
func isUUID(s string) (uuid.UUID, bool) {
	if len(s) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

func (w *Workspace) project(ctx context.Context, sel string) (types.Project, error) {
	projects := w.ledger.Projects()
	if sel == "" {
		id, err := w.settings.UUID(ctx, settings.KeyProject)
		if err != nil {
			return types.Project{}, err
		}
		if id == uuid.Nil {
			return types.Project{}, types.InvalidArgument("project", "no active project, select one with --project")
		}
		return projects.Get(ctx, id)
	}
	if id, ok := isUUID(sel); ok {
		return projects.Get(ctx, id)
	}
	return projects.GetByName(ctx, sel)
}

func (w *Workspace) experiments(ctx context.Context, sel string) (*ledger.Experiments, error) {
	p, err := w.project(ctx, sel)
	if err != nil {
		return nil, err
	}
	return w.ledger.Experiments(types.Bind(p))
}

func (w *Workspace) experiment(ctx context.Context, sel Selection) (*ledger.Experiments, types.Experiment, error) {
	exps, err := w.experiments(ctx, sel.Project)
	if err != nil {
		return nil, types.Experiment{}, err
	}
	var e types.Experiment
	switch id, ok := isUUID(sel.Experiment); {
	case sel.Experiment == "":
		var active uuid.UUID
		if active, err = w.settings.UUID(ctx, settings.KeyExperiment); err != nil {
			return nil, types.Experiment{}, err
		}
		if active == uuid.Nil {
			return nil, types.Experiment{}, types.InvalidArgument("experiment", "no active experiment, select one with --experiment")
		}
		e, err = exps.Get(ctx, active)
	case ok:
		e, err = exps.Get(ctx, id)
	default:
		e, err = exps.GetByName(ctx, sel.Experiment)
	}
	if err != nil {
		return nil, types.Experiment{}, err
	}
	return exps, e, nil
}

func (w *Workspace) files(ctx context.Context, sel Selection) (*ledger.Files, error) {
	_, e, err := w.experiment(ctx, sel)
	if err != nil {
		return nil, err
	}
	return w.ledger.Files(types.Bind(e))
}

// Active returns the active project and experiment. Either may be unbound.
func (w *Workspace) Active(ctx context.Context) (types.Handle[types.Project], types.Handle[types.Experiment], error) {
	p, err := w.project(ctx, "")
	if err != nil {
		if isUnset(err) {
			return types.Unbound[types.Project](), types.Unbound[types.Experiment](), nil
		}
		return types.Handle[types.Project]{}, types.Handle[types.Experiment]{}, err
	}
	_, e, err := w.experiment(ctx, Selection{})
	if err != nil {
		if isUnset(err) {
			return types.Bind(p), types.Unbound[types.Experiment](), nil
		}
		return types.Handle[types.Project]{}, types.Handle[types.Experiment]{}, err
	}
	return types.Bind(p), types.Bind(e), nil
}

// isUnset reports whether err means no usable active selection: none
// stored, or the stored one no longer resolves.
func isUnset(err error) bool {
	k := types.Kind(err)
	return k == types.ErrInvalidArgument || k == types.ErrNotFound
}
