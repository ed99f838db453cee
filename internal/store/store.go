// Package store is the content-addressed file store. Objects live under
// <root>/<first two hex digits>/<hex digest>, read-only. Workspace paths
// point into the store through relative symbolic links.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

const (
	objectMode = 0o444
	dirMode    = 0o755
)

// ErrNotInStore is returned for paths that are not links into the store.
var ErrNotInStore = errors.New("path is not a link into the store")

// Options configure Open.
type Options struct {
	Algorithm Algorithm // Defaults to SHA256.
	Mirror    Mirror    // Optional copy of every object.
	Log       *zap.Logger
}

// Store is an opened object store.
type Store struct {
	root    string
	alg     Algorithm
	newHash func() (hash.Hash, error)
	mirror  Mirror
	log     *zap.Logger

	symlink func(oldname, newname string) error
}

// Object describes one stored object.
type Object struct {
	Hash types.Hash
	Size int64
	// New is false when the content was already stored and the ingested
	// file was dropped in favor of the existing object.
	New bool
}

// Create makes the store root directory.
func Create(root string) error {
	if err := os.MkdirAll(root, dirMode); err != nil {
		return fmt.Errorf("create store %s: %w", root, err)
	}
	return nil
}

// Open opens the store rooted at root, which must be an existing directory.
func Open(root string, opts Options) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open store: %s is not a directory", abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	alg := opts.Algorithm
	if alg == "" {
		alg = SHA256
	}
	newHash, err := alg.hasher()
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: abs, alg: alg, newHash: newHash, mirror: opts.Mirror, log: log, symlink: os.Symlink}, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// Algorithm returns the digest algorithm of the store.
func (s *Store) Algorithm() Algorithm {
	return s.alg
}

// ObjectPath returns where the object for h lives.
func (s *Store) ObjectPath(h types.Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex)
}

// Has reports whether the object for h exists.
func (s *Store) Has(h types.Hash) (bool, error) {
	_, err := os.Stat(s.ObjectPath(h))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// HashFile digests the content of path with the store algorithm.
func (s *Store) HashFile(path string) (types.Hash, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Hash{}, 0, err
	}
	defer f.Close()
	return s.digest(f)
}

func (s *Store) digest(r io.Reader) (types.Hash, int64, error) {
	h, err := s.newHash()
	if err != nil {
		return types.Hash{}, 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return types.Hash{}, 0, err
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, n, nil
}

// upload copies the object for h to the mirror unless it is already there.
// Failures are logged; Verify reports objects missing from the mirror.
func (s *Store) upload(ctx context.Context, h types.Hash, size int64) {
	if s.mirror == nil {
		return
	}
	key := h.String()
	f, err := os.Open(s.ObjectPath(h))
	if err != nil {
		s.log.Warn("mirror upload skipped", zap.String("key", key), zap.Error(err))
		return
	}
	defer f.Close()
	if err := s.mirror.Put(ctx, key, f, size); err != nil {
		s.log.Warn("mirror upload failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.log.Debug("object mirrored", zap.String("key", key))
}
