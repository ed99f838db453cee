package workspace

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/settings"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// ListProjects returns all projects ordered by creation time.
func (w *Workspace) ListProjects(ctx context.Context) (_ []types.Project, err error) {
	defer w.observe("project.list")(&err)
	return w.ledger.Projects().List(ctx)
}

// CreateProject creates a project owned by the workspace owner and makes it
// active. The active experiment is cleared.
func (w *Workspace) CreateProject(ctx context.Context, name, abstract string) (_ types.Project, err error) {
	defer w.observe("project.create")(&err)
	p, err := w.ledger.Projects().Create(ctx, types.Project{
		Name:     name,
		Metadata: types.StringPtr(abstract),
		Owner:    w.owner(ctx),
		CTime:    w.nowPtr(),
	})
	if err != nil {
		return types.Project{}, err
	}
	if err := w.activateProject(ctx, p.UUID); err != nil {
		return types.Project{}, err
	}
	w.log.Info("project created", zap.String("name", p.Name), zap.Stringer("uuid", p.UUID))
	return p, nil
}

// Project returns the selected project.
func (w *Workspace) Project(ctx context.Context, sel string) (_ types.Project, err error) {
	defer w.observe("project.info")(&err)
	return w.project(ctx, sel)
}

// SetProject makes the selected project active. Switching to another
// project clears the active experiment.
func (w *Workspace) SetProject(ctx context.Context, sel string) (_ types.Project, err error) {
	defer w.observe("project.set")(&err)
	p, err := w.project(ctx, sel)
	if err != nil {
		return types.Project{}, err
	}
	return p, w.activateProject(ctx, p.UUID)
}

func (w *Workspace) activateProject(ctx context.Context, id uuid.UUID) error {
	current, err := w.settings.UUID(ctx, settings.KeyProject)
	if err != nil {
		return err
	}
	if current == id {
		return nil
	}
	if err := w.settings.SetUUID(ctx, settings.KeyProject, id); err != nil {
		return err
	}
	return w.settings.SetUUID(ctx, settings.KeyExperiment, uuid.Nil)
}

// SetProjectAbstract replaces the abstract of the selected project.
func (w *Workspace) SetProjectAbstract(ctx context.Context, sel, abstract string) (_ types.Project, err error) {
	defer w.observe("project.abstract")(&err)
	p, err := w.project(ctx, sel)
	if err != nil {
		return types.Project{}, err
	}
	p.Metadata = types.StringPtr(abstract)
	return w.ledger.Projects().Update(ctx, p)
}

// ProjectJournal returns the selected project with its journal.
func (w *Workspace) ProjectJournal(ctx context.Context, sel string) (_ types.Project, err error) {
	defer w.observe("project.journal")(&err)
	return w.project(ctx, sel)
}

// SetProjectJournal replaces the journal of the selected project.
func (w *Workspace) SetProjectJournal(ctx context.Context, sel, text string) (err error) {
	defer w.observe("project.edit")(&err)
	p, err := w.project(ctx, sel)
	if err != nil {
		return err
	}
	return w.ledger.Projects().SetJournal(ctx, p.UUID, text)
}

// AppendProjectJournal appends a timestamped entry to the journal of the
// selected project.
func (w *Workspace) AppendProjectJournal(ctx context.Context, sel, message string) (err error) {
	defer w.observe("project.append")(&err)
	p, err := w.project(ctx, sel)
	if err != nil {
		return err
	}
	return w.ledger.Projects().AppendJournal(ctx, p.UUID, ledger.JournalEntry(w.now(), message))
}

// RemoveProject removes the selected project. It fails with
// ErrIntegrityViolation while the project has experiments.
func (w *Workspace) RemoveProject(ctx context.Context, sel string) (_ types.Project, err error) {
	defer w.observe("project.remove")(&err)
	p, err := w.project(ctx, sel)
	if err != nil {
		return types.Project{}, err
	}
	if _, err := w.ledger.Projects().Remove(ctx, p.UUID); err != nil {
		return types.Project{}, err
	}
	active, err := w.settings.UUID(ctx, settings.KeyProject)
	if err != nil {
		return types.Project{}, err
	}
	if active == p.UUID {
		if err := w.settings.SetUUID(ctx, settings.KeyProject, uuid.Nil); err != nil {
			return types.Project{}, err
		}
		if err := w.settings.SetUUID(ctx, settings.KeyExperiment, uuid.Nil); err != nil {
			return types.Project{}, err
		}
	}
	w.log.Info("project removed", zap.String("name", p.Name), zap.Stringer("uuid", p.UUID))
	return p, nil
}

// ExperimentAssets are the files mapped into one experiment.
type ExperimentAssets struct {
	Experiment types.Experiment   `json:"experiment"`
	Files      []types.FileRecord `json:"files"`
}

// Assets lists every file mapping of every experiment of a project.
type Assets struct {
	Project     types.Project      `json:"project"`
	Experiments []ExperimentAssets `json:"experiments"`
}

// ProjectAssets collects the file mappings of all experiments of the
// selected project.
func (w *Workspace) ProjectAssets(ctx context.Context, sel string) (_ Assets, err error) {
	defer w.observe("project.assets")(&err)
	exps, err := w.experiments(ctx, sel)
	if err != nil {
		return Assets{}, err
	}
	list, err := exps.List(ctx)
	if err != nil {
		return Assets{}, err
	}
	out := Assets{Project: exps.Project(), Experiments: make([]ExperimentAssets, 0, len(list))}
	for _, e := range list {
		files, err := w.ledger.Files(types.Bind(e))
		if err != nil {
			return Assets{}, err
		}
		recs, err := files.List(ctx, types.RoleNone)
		if err != nil {
			return Assets{}, err
		}
		out.Experiments = append(out.Experiments, ExperimentAssets{Experiment: e, Files: recs})
	}
	return out, nil
}
