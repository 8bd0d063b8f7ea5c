// Package fs provides the scratch directory file system operations.
package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"

	"github.com/spf13/afero"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// ScratchFS removes scratch clones. Git marks pack and object files
// read-only, so write permission is restored on every entry before removal.
type ScratchFS struct {
	fs afero.Fs
}

// NewScratchFS creates a ScratchFS over fsys. A nil fsys uses the OS file system.
func NewScratchFS(fsys afero.Fs) *ScratchFS {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &ScratchFS{fs: fsys}
}

var _ domain.ScratchFileSystem = (*ScratchFS)(nil)

// RemoveAll deletes path and everything below it. A missing path is an error
// wrapping domain.ErrNotFound unless allowNotFound is set.
func (s *ScratchFS) RemoveAll(path string, allowNotFound bool) error {
	if _, err := s.fs.Stat(path); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			if allowNotFound {
				return nil
			}
			return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := s.makeWritable(path); err != nil {
		return err
	}

	if err := s.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// makeWritable adds owner write permission to every file and directory under
// root. Directories are visited before their children, so a read-only
// directory is opened up before it is listed.
func (s *ScratchFS) makeWritable(root string) error {
	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		perm := info.Mode().Perm()
		want := perm | 0o200
		if info.IsDir() {
			want |= 0o700
		}
		if want == perm {
			return nil
		}
		return s.fs.Chmod(path, want)
	})
	if err != nil {
		return fmt.Errorf("clear read-only attributes under %s: %w", root, err)
	}
	return nil
}
