package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Ingest moves the regular file at path into the store and leaves a
// relative link in its place. When the content is already stored the file
// is replaced by a link to the existing object. If the link cannot be made
// path keeps its content.
func (s *Store) Ingest(ctx context.Context, path string) (Object, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Object{}, err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return Object{}, err
	}
	if !info.Mode().IsRegular() {
		return Object{}, fmt.Errorf("%s is not a regular file", path)
	}

	h, size, err := s.HashFile(abs)
	if err != nil {
		return Object{}, fmt.Errorf("hash %s: %w", path, err)
	}
	obj := Object{Hash: h, Size: size}

	exists, err := s.Has(h)
	if err != nil {
		return Object{}, err
	}
	target := s.ObjectPath(h)
	if !exists {
		if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return Object{}, err
		}
		if err := move(abs, target); err != nil {
			return Object{}, fmt.Errorf("move %s into store: %w", path, err)
		}
		if err := os.Chmod(target, objectMode); err != nil {
			return Object{}, err
		}
		obj.New = true
	}

	if err := s.link(abs, target); err != nil {
		if obj.New {
			s.unmove(target, abs, info.Mode().Perm())
		}
		return Object{}, err
	}
	s.log.Info("file moved into store", zap.String("path", path), zap.Stringer("hash", h), zap.Bool("new", obj.New))

	if obj.New {
		s.upload(ctx, h, size)
	}
	return obj, nil
}

// unmove puts a freshly stored object back at its original path.
func (s *Store) unmove(target, abs string, perm os.FileMode) {
	if err := move(target, abs); err != nil {
		s.log.Warn("cannot put file back", zap.String("path", abs), zap.Error(err))
		return
	}
	if err := os.Chmod(abs, perm); err != nil {
		s.log.Warn("cannot restore file mode", zap.String("path", abs), zap.Error(err))
	}
}

// link points abs at target with a relative link. The link is made under a
// temporary name next to abs and renamed over it.
func (s *Store) link(abs, target string) error {
	dir := filepath.Dir(abs)
	resolved := dir
	if r, err := filepath.EvalSymlinks(dir); err == nil {
		resolved = r
	}
	rel, err := filepath.Rel(resolved, target)
	if err != nil {
		return err
	}

	tmp, err := tempName(dir, "."+filepath.Base(abs)+".link_*")
	if err != nil {
		return fmt.Errorf("link %s: %w", abs, err)
	}
	if err := s.symlink(rel, tmp); err != nil {
		return fmt.Errorf("link %s: %w", abs, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("link %s: %w", abs, err)
	}
	return nil
}

// tempName reserves an unused name in dir matching pattern.
func tempName(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return "", err
	}
	return name, nil
}

// move renames src to dst, falling back to copy and remove across devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	tmp, err := copyToTemp(src, filepath.Dir(dst))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

// copyToTemp copies src into a new temporary file in dir and returns its
// name.
func copyToTemp(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".tmp_*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// IsLink reports whether path is a symbolic link resolving into the store.
func (s *Store) IsLink(path string) bool {
	_, err := s.resolve(path)
	return err == nil
}

// resolve returns the store object path is a link to.
func (s *Store) resolve(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNotInStore)
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrNotInStore)
	}
	return target, nil
}

// HashFromPath returns the hash named by the store object path links to.
func (s *Store) HashFromPath(path string) (types.Hash, error) {
	target, err := s.resolve(path)
	if err != nil {
		return types.Hash{}, err
	}
	h, err := types.ParseHash(filepath.Base(target))
	if err != nil {
		return types.Hash{}, fmt.Errorf("%s: %w", path, ErrNotInStore)
	}
	return h, nil
}

// Coincides reports whether the content behind path digests to the hash
// its store object is named after.
func (s *Store) Coincides(path string) (bool, error) {
	named, err := s.HashFromPath(path)
	if err != nil {
		return false, err
	}
	got, _, err := s.HashFile(path)
	if err != nil {
		return false, err
	}
	return got == named, nil
}

// Restore replaces the store link at path with a writable copy of the
// object.
func (s *Store) Restore(path string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	tmp, err := copyToTemp(target, filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("restore %s: %w", path, err)
	}
	s.log.Info("file restored from store", zap.String("path", path))
	return nil
}

// isNotExist reports whether err means the path is missing.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
