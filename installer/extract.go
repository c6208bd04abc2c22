package installer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsafeZipEntry is returned when a package zip contains an entry that
// would extract outside the destination directory.
var ErrUnsafeZipEntry = errors.New("zip entry would extract outside the destination directory")

// extractPackage replaces destDir's contents with zipPath's, refusing any
// entry whose name escapes destDir via an absolute path, a drive letter, or
// ".." components. destDir is removed first if present, so a prior broken
// or partial install never survives next to the fresh one.
func extractPackage(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", zipPath)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := checkSafeZipEntry(f.Name); err != nil {
			return errors.Wrapf(err, "entry %q", f.Name)
		}
	}

	if err := os.RemoveAll(destDir); err != nil {
		return errors.Wrapf(err, "remove existing %s", destDir)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", destDir)
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrapf(err, "create directory %s", target)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrapf(err, "create parent of %s", target)
		}
		if err := extractOneFile(f, target); err != nil {
			return errors.Wrapf(err, "extract %s", f.Name)
		}
	}

	return syncTree(destDir)
}

func extractOneFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(err, "open zip entry")
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return errors.Wrap(err, "create destination file")
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrap(err, "write destination file")
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// checkSafeZipEntry rejects absolute paths, drive letters, and any
// ".."-containing path component, so no entry can extract outside destDir.
func checkSafeZipEntry(name string) error {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return ErrUnsafeZipEntry
	}
	if len(name) >= 2 && name[1] == ':' {
		return ErrUnsafeZipEntry
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return ErrUnsafeZipEntry
		}
	}
	return nil
}

// syncTree fsyncs every regular file under root plus each directory,
// giving the installer's "flush the destination" step real durability
// instead of relying on the OS to flush eventually.
func syncTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		mode := os.O_RDONLY
		f, ferr := os.OpenFile(path, mode, 0)
		if ferr != nil {
			return nil // best-effort: a file removed mid-walk isn't fatal here
		}
		defer f.Close()
		return f.Sync()
	})
}
