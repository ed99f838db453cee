package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/provenance/internal/store"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// FileIssue is a mapping whose file on disk does not match the ledger.
type FileIssue struct {
	Record  types.FileRecord `json:"record"`
	Problem string           `json:"problem"`
}

func (i FileIssue) String() string {
	path := types.Deref(i.Record.Path)
	if path == "" {
		path = i.Record.Hash.Short()
	}
	return fmt.Sprintf("%s: %s", path, i.Problem)
}

// Report collects the problems found by Verify.
type Report struct {
	Store []store.Issue `json:"store,omitempty"`
	Files []FileIssue   `json:"files,omitempty"`
}

// OK reports whether no problem was found.
func (r Report) OK() bool {
	return len(r.Store) == 0 && len(r.Files) == 0
}

// Verify checks the store, then every mapping of every experiment: the
// mapped path must exist, link into the store at the recorded content, and
// have the recorded size.
func (w *Workspace) Verify(ctx context.Context) (_ Report, err error) {
	defer w.observe("verify")(&err)
	var report Report
	if report.Store, err = w.store.Verify(ctx); err != nil {
		return Report{}, err
	}

	recs, err := w.ledger.AllFiles(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, rec := range recs {
		if problem := w.checkFile(rec); problem != "" {
			report.Files = append(report.Files, FileIssue{Record: rec, Problem: problem})
		}
	}
	return report, nil
}

func (w *Workspace) checkFile(rec types.FileRecord) string {
	if rec.Path == nil {
		return "no path assigned"
	}
	abs := filepath.Join(w.top, *rec.Path)
	if _, err := os.Lstat(abs); err != nil {
		return "does not exist"
	}
	if !w.store.IsLink(abs) {
		return "not located in store"
	}
	if ok, err := w.store.Coincides(abs); err != nil || !ok {
		return "not located in store"
	}
	if h, err := w.store.HashFromPath(abs); err != nil || h != rec.Hash {
		return "links to other content than recorded"
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "does not exist"
	}
	if info.Size() != rec.Size {
		return fmt.Sprintf("wrong file size: %d on disk, %d recorded", info.Size(), rec.Size)
	}
	return ""
}
