package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/ledger"
	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// ListFiles returns the mappings of the selected experiment, filtered by
// role unless role is RoleNone.
func (w *Workspace) ListFiles(ctx context.Context, sel Selection, role types.Role) (_ []types.FileRecord, err error) {
	defer w.observe("file.list")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return nil, err
	}
	return files.List(ctx, role)
}

// AddFile registers the file at path with role in the selected experiment.
// A regular file is moved into the store and replaced by a link; a path
// that already links into the store is registered as is. If the ledger
// refuses the mapping, a freshly moved file is put back.
func (w *Workspace) AddFile(ctx context.Context, sel Selection, path string, role types.Role) (_ types.FileRecord, err error) {
	defer w.observe("file.add")(&err)
	if !role.Mappable() {
		return types.FileRecord{}, types.InvalidArgument("file", fmt.Sprintf("role %s cannot be mapped", role))
	}
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileRecord{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return types.FileRecord{}, err
	}
	rel, err := paths.Rel(w.top, abs)
	if err != nil {
		return types.FileRecord{}, types.InvalidArgument("file", err.Error())
	}
	if _, err := os.Lstat(abs); err != nil {
		return types.FileRecord{}, types.InvalidArgument("file", fmt.Sprintf("%s: no such file", path))
	}

	var (
		hash  types.Hash
		size  int64
		moved bool
	)
	if w.store.IsLink(abs) {
		if hash, err = w.store.HashFromPath(abs); err != nil {
			return types.FileRecord{}, fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return types.FileRecord{}, fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		size = info.Size()
	} else {
		obj, err := w.store.Ingest(ctx, abs)
		if err != nil {
			return types.FileRecord{}, fmt.Errorf("%w: %w", types.ErrStorage, err)
		}
		hash, size, moved = obj.Hash, obj.Size, true
	}

	rec, _, err := files.Create(ctx, types.FileRecord{
		Hash:  hash,
		Size:  size,
		Name:  types.StringPtr(filepath.Base(abs)),
		Owner: w.owner(ctx),
		CTime: w.nowPtr(),
		Role:  role,
		Path:  &rel,
	})
	if err != nil {
		if moved {
			if rerr := w.store.Restore(abs); rerr != nil {
				w.log.Warn("could not put file back", zap.String("path", rel), zap.Error(rerr))
			}
		}
		return types.FileRecord{}, err
	}
	w.log.Info("file added", zap.String("path", rel), zap.Stringer("role", role), zap.Stringer("hash", hash))
	return rec, nil
}

// LoadFile returns the mapping named by id in the selected experiment. id is
// a hex digest or a path; paths are tried relative to the current directory
// first, then relative to the workspace top.
func (w *Workspace) LoadFile(ctx context.Context, sel Selection, id string) (_ types.FileRecord, err error) {
	defer w.observe("file.info")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileRecord{}, err
	}
	return w.loadFile(ctx, files, id)
}

func (w *Workspace) loadFile(ctx context.Context, files *ledger.Files, id string) (types.FileRecord, error) {
	if h, err := types.ParseHash(id); err == nil {
		rec, err := files.Load(ctx, h)
		if !errors.Is(err, types.ErrNotFound) {
			return rec, err
		}
	}
	if abs, err := filepath.Abs(id); err == nil {
		if rel, err := paths.Rel(w.top, abs); err == nil && rel != id {
			rec, err := files.LoadByPath(ctx, rel)
			if !errors.Is(err, types.ErrNotFound) {
				return rec, err
			}
		}
	}
	return files.LoadByPath(ctx, filepath.Clean(id))
}

// UnlinkFile removes the mapping named by id from the selected experiment
// and returns it. When the experiment created the content, the store link
// at the mapped path is replaced by a writable copy.
func (w *Workspace) UnlinkFile(ctx context.Context, sel Selection, id string) (_ types.FileRecord, err error) {
	defer w.observe("file.unlink")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileRecord{}, err
	}
	rec, err := w.loadFile(ctx, files, id)
	if err != nil {
		return types.FileRecord{}, err
	}
	if _, err := files.Unmap(ctx, rec.Hash); err != nil {
		return types.FileRecord{}, err
	}

	if rec.Path != nil && rec.Creator != nil && *rec.Creator == files.Experiment().UUID {
		abs := filepath.Join(w.top, *rec.Path)
		if w.store.IsLink(abs) {
			if err := w.store.Restore(abs); err != nil {
				return rec, fmt.Errorf("%w: %w", types.ErrStorage, err)
			}
		}
	}
	w.log.Info("file unlinked", zap.String("path", types.Deref(rec.Path)), zap.Stringer("hash", rec.Hash))
	return rec, nil
}

// SetFileRole changes the role of a mapping in the selected experiment.
func (w *Workspace) SetFileRole(ctx context.Context, sel Selection, id string, role types.Role) (_ types.FileRecord, err error) {
	defer w.observe("file.role")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileRecord{}, err
	}
	rec, err := w.loadFile(ctx, files, id)
	if err != nil {
		return types.FileRecord{}, err
	}
	return files.ChangeRole(ctx, rec.Hash, role)
}

// SetFileAbstract replaces the description of the content named by id.
// The description is shared by every experiment mapping the content.
func (w *Workspace) SetFileAbstract(ctx context.Context, sel Selection, id, abstract string) (_ types.FileRecord, err error) {
	defer w.observe("file.abstract")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileRecord{}, err
	}
	rec, err := w.loadFile(ctx, files, id)
	if err != nil {
		return types.FileRecord{}, err
	}
	rec.Metadata = types.StringPtr(abstract)
	return files.Update(ctx, rec)
}

// TrackFile walks the lineage of the mapping named by id.
func (w *Workspace) TrackFile(ctx context.Context, sel Selection, id string, maxDepth int) (_ types.FileTree, err error) {
	defer w.observe("file.track")(&err)
	files, err := w.files(ctx, sel)
	if err != nil {
		return types.FileTree{}, err
	}
	rec, err := w.loadFile(ctx, files, id)
	if err != nil {
		return types.FileTree{}, err
	}
	return w.ledger.Track(ctx, rec, 0, maxDepth)
}

// Creator returns "project::experiment" of the experiment that created rec.
func (w *Workspace) Creator(ctx context.Context, rec types.FileRecord) (string, error) {
	return w.ledger.ResolveCreator(ctx, rec)
}
