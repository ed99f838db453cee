package store

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Issue is one inconsistency found by Verify.
type Issue struct {
	Path    string // Relative to the store root.
	Problem string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Problem
}

// Verify rehashes every object and checks that it sits at the path its
// digest names. With a mirror configured it also reports objects the mirror
// lacks.
func (s *Store) Verify(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		issue := func(format string, args ...any) {
			issues = append(issues, Issue{Path: rel, Problem: fmt.Sprintf(format, args...)})
		}

		if strings.HasPrefix(d.Name(), ".tmp_") {
			issue("leftover temporary file")
			return nil
		}
		named, err := types.ParseHash(d.Name())
		if err != nil {
			issue("name is not a digest")
			return nil
		}
		if filepath.Dir(rel) != d.Name()[:2] {
			issue("misplaced, expected under %s", d.Name()[:2])
		}
		got, _, err := s.HashFile(path)
		if err != nil {
			if isNotExist(err) {
				issue("vanished during verify")
				return nil
			}
			return err
		}
		if got != named {
			issue("content digests to %s", got.Short())
		}
		if s.mirror != nil {
			ok, err := s.mirror.Has(ctx, named.String())
			if err != nil {
				issue("mirror lookup failed: %v", err)
			} else if !ok {
				issue("missing from mirror")
			}
		}
		return nil
	})
	if err != nil {
		return issues, fmt.Errorf("verify store: %w", err)
	}
	return issues, nil
}
