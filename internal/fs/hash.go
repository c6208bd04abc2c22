// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// HashFile streams the contents of the file at path through SHA-256 and
// returns the digest as lowercase hex, without holding the whole file in
// memory. Used by the installer to verify a downloaded package zip against
// its sidecar hash, and to compute the sidecar when writing a fresh one.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "cannot open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "cannot hash %s", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
