package search

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/nscl-frib/attpc-merger"
)

// StageRun copies each file in sources into cfg.CopyPath, mirroring its
// path relative to cfg.GrawPath (the run_{R:04}/... layout), when
// cfg.CopyPath is set (spec.md §6's optional staging copy).
// It returns the list of staged destination paths so the caller can
// delete them afterward when cfg.DeleteCopied is set.
func StageRun(cfg *attpc.Config, run int32, sources []string) ([]string, error) {
	if cfg.CopyPath == "" {
		return nil, nil
	}

	var staged []string
	for _, src := range sources {
		rel, err := filepath.Rel(cfg.GrawPath, src)
		if err != nil {
			rel = filepath.Base(src)
		}
		dst := filepath.Join(cfg.CopyPath, rel)

		if err := copyFile(src, dst); err != nil {
			return staged, errors.Join(attpc.ErrFileCopier, err)
		}
		staged = append(staged, dst)
	}
	return staged, nil
}

// CleanStaged removes every staged path, used when cfg.DeleteCopied is
// true once a run's merge has completed.
func CleanStaged(paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{attpc.ErrFileCopier}, errs...)...)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
