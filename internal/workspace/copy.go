package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sgeisler/testinator/internal/errors"
)

// Copier copies a project tree into a new location.
type Copier interface {
	CopyTree(src, dst string) error
}

// DirCopier copies a directory tree file by file, preserving permissions and
// symlinks. Top-level directories named in Exclude are skipped.
type DirCopier struct {
	Exclude map[string]bool
}

// CopyTree implements Copier. dst must not exist yet.
func (c *DirCopier) CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrap(err, "stat project")
	}
	if !info.IsDir() {
		return errors.Wrapf(errors.ErrConfigInvalid, "project %s is not a directory", src)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if rel != "." && filepath.Dir(rel) == "." && c.Exclude[d.Name()] {
				return filepath.SkipDir
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, fi.Mode().Perm())
		default:
			// sockets, devices and pipes have no place in a build tree
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src) //#nosec G304 -- path comes from walking the configured repo
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm) //#nosec G304 -- destination is inside our temp dir
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

var _ Copier = (*DirCopier)(nil)
