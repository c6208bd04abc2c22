// Package installer materializes a changeplan.PendingChanges into a real
// Unity project: it fetches or reuses cached package zips, extracts them
// into Packages/<name>/, removes legacy assets, and flushes the updated
// vpm-manifest.json — in that fixed order, so a failure partway through
// never leaves the on-disk manifest describing packages that were never
// actually installed.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/internal/fs"
	"github.com/vrc-get-go/vpm/repocache"
)

// cachePaths returns the zip path and its sidecar hash path for pkg, rooted
// at <configDir>/Repos/<package-name>/ — the same directory a repository's
// own index cache lives under, keyed instead by package name and version.
func cachePaths(configDir string, pkg collection.PackageInfo) (zipPath, shaPath string) {
	dir := filepath.Join(configDir, "Repos", pkg.Manifest.Name)
	base := fmt.Sprintf("vrc-get-%s-%s.zip", pkg.Manifest.Name, pkg.Manifest.Version.String())
	zipPath = filepath.Join(dir, base)
	shaPath = zipPath + ".sha256"
	return zipPath, shaPath
}

// readSidecarHash parses a "<hex>  <filename>\n" sidecar and returns the hex
// digest, or ok=false if the file is missing or malformed.
func readSidecarHash(shaPath, wantName string) (digest string, ok bool) {
	data, err := os.ReadFile(shaPath)
	if err != nil {
		return "", false
	}
	line := strings.TrimRight(string(data), "\n")
	fields := strings.SplitN(line, "  ", 2)
	if len(fields) != 2 {
		return "", false
	}
	if len(fields[0]) != 64 {
		return "", false
	}
	if filepath.Base(fields[1]) != wantName {
		return "", false
	}
	return fields[0], true
}

func writeSidecarHash(shaPath, digest, name string) error {
	line := fmt.Sprintf("%s  %s\n", digest, name)
	return atomicWriteFile(shaPath, []byte(line))
}

// fetchZip ensures pkg's zip is present and verified at its cache path,
// downloading it over client if the cache is missing, stale, or corrupt.
// It returns the path to a verified zip file.
func fetchZip(ctx context.Context, client repocache.HTTPDoer, configDir string, pkg collection.PackageInfo) (string, error) {
	if pkg.Manifest.URL == "" {
		return "", errors.Errorf("package %s %s has no download URL", pkg.Manifest.Name, pkg.Manifest.Version)
	}

	zipPath, shaPath := cachePaths(configDir, pkg)
	zipName := filepath.Base(zipPath)

	if fs.Exists(zipPath) {
		if wantDigest, ok := readSidecarHash(shaPath, zipName); ok {
			if actual, err := fs.HashFile(zipPath); err == nil && actual == wantDigest {
				return zipPath, nil
			}
		}
		// Cache present but unverifiable or corrupt: fall through and
		// re-download rather than trusting it.
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return "", errors.Wrapf(err, "create cache directory for %s", pkg.Manifest.Name)
	}

	digest, err := downloadAndHash(ctx, client, pkg.Manifest.URL, zipPath)
	if err != nil {
		return "", errors.Wrapf(err, "download %s %s", pkg.Manifest.Name, pkg.Manifest.Version)
	}

	if pkg.Manifest.ZipSHA256 != "" && !strings.EqualFold(pkg.Manifest.ZipSHA256, digest) {
		os.Remove(zipPath)
		return "", errors.Errorf("downloaded %s %s failed checksum verification", pkg.Manifest.Name, pkg.Manifest.Version)
	}

	if err := writeSidecarHash(shaPath, digest, zipName); err != nil {
		return "", errors.Wrapf(err, "write sidecar hash for %s", pkg.Manifest.Name)
	}
	return zipPath, nil
}

// downloadAndHash streams url into dst while hashing the bytes as they
// arrive, so the digest is known the instant the download completes with no
// second read pass over the file.
func downloadAndHash(ctx context.Context, client repocache.HTTPDoer, url, dst string) (digest string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build download request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request package zip")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp download file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	if _, err = io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "write downloaded zip")
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "sync downloaded zip")
	}
	if err = tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close downloaded zip")
	}
	if err = fs.RenameWithFallback(tmpName, dst); err != nil {
		return "", errors.Wrap(err, "install downloaded zip into cache")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// atomicWriteFile writes data to path via a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated sidecar or manifest behind.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".vrc-get-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := fs.RenameWithFallback(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
