// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs provides filesystem helpers shared by the project, repository
// cache, and installer layers: existence checks and renames that fall back
// to copy+remove when crossing devices.
package fs

import (
	"os"
	"path/filepath"

	shutil "github.com/termie/go-shutil"

	"github.com/pkg/errors"
)

// RenameWithFallback attempts to rename a file or directory, falling back to
// a copy-then-remove when src and dst live on different devices.
func RenameWithFallback(src, dst string) error {
	_, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}

	err = rename(src, dst)
	if err == nil {
		return nil
	}

	return renameFallback(err, src, dst)
}

// renameByCopy emulates rename by copying src to dst and then removing src.
// Used when os.Rename fails with EXDEV (cross-device) on either platform.
func renameByCopy(src, dst string) error {
	var cerr error
	if dir, _ := IsDir(src); dir {
		cerr = CopyDir(src, dst)
		if cerr != nil {
			cerr = errors.Wrap(cerr, "copying directory failed")
		}
	} else {
		cerr = copyFile(src, dst)
		if cerr != nil {
			cerr = errors.Wrap(cerr, "copying file failed")
		}
	}

	if cerr != nil {
		return errors.Wrapf(cerr, "rename fallback failed: cannot rename %s to %s", src, dst)
	}

	return errors.Wrapf(os.RemoveAll(src), "cannot delete %s", src)
}

var errDstExist = errors.New("destination already exists")

// CopyDir recursively copies a directory tree. Source must exist and
// destination must not, mirroring os.Rename semantics for directories.
// The actual tree walk is delegated to go-shutil's CopyTree with its
// default options, under which symlinks are followed and their targets'
// contents copied.
func CopyDir(src, dst string) error {
	src = filepath.Clean(src)
	dst = filepath.Clean(dst)

	if _, err := os.Stat(dst); err == nil {
		return errDstExist
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := shutil.CopyTree(src, dst, nil); err != nil {
		return errors.Wrapf(err, "copying tree %s to %s failed", src, dst)
	}
	return nil
}

// copyFile copies src to dst, following src if it is a symlink. The
// destination is not fsynced.
func copyFile(src, dst string) error {
	if err := shutil.CopyFile(src, dst, true); err != nil {
		return errors.Wrapf(err, "copying file %s to %s failed", src, dst)
	}
	return nil
}

// IsDir determines if the path given is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, errors.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// Exists reports whether name exists at all, regardless of kind.
func Exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}
