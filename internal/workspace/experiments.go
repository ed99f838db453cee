package workspace

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/settings"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// ListExperiments returns the selected project and its experiments.
func (w *Workspace) ListExperiments(ctx context.Context, project string) (_ types.Project, _ []types.Experiment, err error) {
	defer w.observe("experiment.list")(&err)
	exps, err := w.experiments(ctx, project)
	if err != nil {
		return types.Project{}, nil, err
	}
	list, err := exps.List(ctx)
	return exps.Project(), list, err
}

// CreateExperiment creates an experiment in the selected project and makes
// both active.
func (w *Workspace) CreateExperiment(ctx context.Context, project, name, abstract string) (_ types.Experiment, err error) {
	defer w.observe("experiment.create")(&err)
	exps, err := w.experiments(ctx, project)
	if err != nil {
		return types.Experiment{}, err
	}
	e, err := exps.Create(ctx, types.Experiment{
		Name:     name,
		Metadata: types.StringPtr(abstract),
		Owner:    w.owner(ctx),
		CTime:    w.nowPtr(),
	})
	if err != nil {
		return types.Experiment{}, err
	}
	if err := w.activateExperiment(ctx, e); err != nil {
		return types.Experiment{}, err
	}
	w.log.Info("experiment created",
		zap.String("project", exps.Project().Name), zap.String("name", e.Name), zap.Stringer("uuid", e.UUID))
	return e, nil
}

func (w *Workspace) activateExperiment(ctx context.Context, e types.Experiment) error {
	if err := w.settings.SetUUID(ctx, settings.KeyProject, e.Project); err != nil {
		return err
	}
	return w.settings.SetUUID(ctx, settings.KeyExperiment, e.UUID)
}

// Experiment returns the selected experiment and its project.
func (w *Workspace) Experiment(ctx context.Context, sel Selection) (_ types.Project, _ types.Experiment, err error) {
	defer w.observe("experiment.info")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return types.Project{}, types.Experiment{}, err
	}
	return exps.Project(), e, nil
}

// SetExperiment makes the selected experiment and its project active.
func (w *Workspace) SetExperiment(ctx context.Context, sel Selection) (_ types.Experiment, err error) {
	defer w.observe("experiment.set")(&err)
	_, e, err := w.experiment(ctx, sel)
	if err != nil {
		return types.Experiment{}, err
	}
	return e, w.activateExperiment(ctx, e)
}

// SetExperimentAbstract replaces the abstract of the selected experiment.
func (w *Workspace) SetExperimentAbstract(ctx context.Context, sel Selection, abstract string) (_ types.Experiment, err error) {
	defer w.observe("experiment.abstract")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return types.Experiment{}, err
	}
	e.Metadata = types.StringPtr(abstract)
	return exps.Update(ctx, e)
}

// SetExperimentLocked records the locked flag of the selected experiment.
// Nothing enforces it.
func (w *Workspace) SetExperimentLocked(ctx context.Context, sel Selection, locked bool) (_ types.Experiment, err error) {
	defer w.observe("experiment.lock")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return types.Experiment{}, err
	}
	e.Locked = locked
	return exps.Update(ctx, e)
}

// ExperimentJournal returns the selected experiment with its journal.
func (w *Workspace) ExperimentJournal(ctx context.Context, sel Selection) (_ types.Experiment, err error) {
	defer w.observe("experiment.journal")(&err)
	_, e, err := w.experiment(ctx, sel)
	return e, err
}

// SetExperimentJournal replaces the journal of the selected experiment.
func (w *Workspace) SetExperimentJournal(ctx context.Context, sel Selection, text string) (err error) {
	defer w.observe("experiment.edit")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return err
	}
	return exps.SetJournal(ctx, e.UUID, text)
}

// AppendExperimentJournal appends a timestamped entry to the journal of the
// selected experiment.
func (w *Workspace) AppendExperimentJournal(ctx context.Context, sel Selection, message string) (err error) {
	defer w.observe("experiment.append")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return err
	}
	return exps.AppendJournal(ctx, e.UUID, ledger.JournalEntry(w.now(), message))
}

// RemoveExperiment removes the selected experiment. It fails with
// ErrIntegrityViolation while files are mapped into it or name it as
// creator.
func (w *Workspace) RemoveExperiment(ctx context.Context, sel Selection) (_ types.Experiment, err error) {
	defer w.observe("experiment.remove")(&err)
	exps, e, err := w.experiment(ctx, sel)
	if err != nil {
		return types.Experiment{}, err
	}
	if _, err := exps.Remove(ctx, e.UUID); err != nil {
		return types.Experiment{}, err
	}
	active, err := w.settings.UUID(ctx, settings.KeyExperiment)
	if err != nil {
		return types.Experiment{}, err
	}
	if active == e.UUID {
		if err := w.settings.SetUUID(ctx, settings.KeyExperiment, uuid.Nil); err != nil {
			return types.Experiment{}, err
		}
	}
	w.log.Info("experiment removed", zap.String("name", e.Name), zap.Stringer("uuid", e.UUID))
	return e, nil
}
