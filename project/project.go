// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project locates a Unity project's manifest root, reads its
// vpm-manifest.json and editor version, and classifies the directories
// under Packages/ as locked or unlocked.
package project

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/semver"
)

// ManifestName is the file whose presence marks a project root.
const ManifestName = "vpm-manifest.json"

// legacyManifestName is accepted in place of ManifestName for projects
// that predate the vpm- prefix.
const legacyManifestName = "manifest.json"

var errProjectNotFound = errors.New("could not find a Packages/vpm-manifest.json (or Packages/manifest.json) above the starting directory")

// findProjectRoot searches from the starting directory upwards looking for
// Packages/vpm-manifest.json (or its legacy name) until it reaches the
// root of the filesystem.
func findProjectRoot(from string) (string, error) {
	for {
		for _, name := range [...]string{ManifestName, legacyManifestName} {
			mp := filepath.Join(from, "Packages", name)
			if _, err := os.Stat(mp); err == nil {
				return from, nil
			} else if !os.IsNotExist(err) {
				return "", err
			}
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", errProjectNotFound
		}
		from = parent
	}
}

func manifestPathIn(root string) (string, error) {
	for _, name := range [...]string{ManifestName, legacyManifestName} {
		p := filepath.Join(root, "Packages", name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errProjectNotFound
}

// UnlockedPackage is a package.json found under Packages/<dir>/ whose
// name is not a key of the manifest's locked map.
type UnlockedPackage struct {
	Name     string
	Path     string
	Manifest *manifest.PackageManifest // nil when package.json fails to parse
}

// State is the loaded view of one Unity project.
type State struct {
	Root        string
	Manifest    *manifest.VpmManifest
	UnityVer    *manifest.PartialUnityVersion
	unlocked    []UnlockedPackage
}

// NewState builds a State directly from already-loaded parts, bypassing
// filesystem discovery — used by callers that assemble a project snapshot
// themselves (tests, or a driver re-using a manifest already read for some
// other purpose).
func NewState(root string, m *manifest.VpmManifest, unityVer *manifest.PartialUnityVersion, unlocked []UnlockedPackage) *State {
	return &State{Root: root, Manifest: m, UnityVer: unityVer, unlocked: unlocked}
}

// Find locates and loads a project starting from startPath (the current
// directory if startPath is empty).
func Find(startPath string) (*State, error) {
	if startPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "get working directory")
		}
		startPath = wd
	}
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return nil, errors.Wrap(err, "resolve start path")
	}

	root, err := findProjectRoot(abs)
	if err != nil {
		return nil, err
	}

	mp, err := manifestPathIn(root)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(mp)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", mp)
	}
	vm, err := manifest.ParseVpmManifest(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", mp)
	}

	s := &State{Root: root, Manifest: vm}
	s.UnityVer, err = readProjectVersion(root)
	if err != nil {
		return nil, err
	}
	if err := s.scanPackagesDir(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dependencies returns the user-facing "dependencies" map: the only
// surface a driver is expected to mutate directly.
func (s *State) Dependencies() map[string]semver.DependencyRange {
	return s.Manifest.Dependencies
}

// Locked returns the solver-owned "locked" map.
func (s *State) Locked() map[string]manifest.LockedDependency {
	return s.Manifest.Locked
}

// Unlocked returns every package.json directory under Packages/ that is
// not a key of Locked().
func (s *State) Unlocked() []UnlockedPackage {
	return s.unlocked
}

func (s *State) scanPackagesDir() error {
	packagesDir := filepath.Join(s.Root, "Packages")
	entries, err := os.ReadDir(packagesDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "list %s", packagesDir)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirName := e.Name()
		pkgPath := filepath.Join(packagesDir, dirName)
		pjPath := filepath.Join(pkgPath, "package.json")

		data, err := os.ReadFile(pjPath)
		if err != nil {
			continue // no package.json: not a package directory at all
		}
		pm, err := manifest.ParsePackageManifest(data)
		var name string
		if err == nil {
			name = pm.Name
		} else {
			name = dirName
		}

		if _, locked := s.Manifest.Locked[name]; locked {
			continue
		}
		s.unlocked = append(s.unlocked, UnlockedPackage{Name: name, Path: pkgPath, Manifest: pm})
	}
	return nil
}

// readProjectVersion parses ProjectSettings/ProjectVersion.txt, looking
// for the "m_EditorVersion:" key. A missing file or key yields a nil
// version rather than an error, since ProjectVersion.txt is informational.
func readProjectVersion(root string) (*manifest.PartialUnityVersion, error) {
	path := filepath.Join(root, "ProjectSettings", "ProjectVersion.txt")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, "m_EditorVersion:")
		if !ok {
			continue
		}
		versionStr := strings.TrimSpace(rest)
		// Unity version strings look like "2022.3.6f1"; only the
		// major.minor prefix matters for compatibility checks.
		dot := strings.IndexByte(versionStr, '.')
		if dot < 0 {
			return nil, nil
		}
		majorStr := versionStr[:dot]
		rest2 := versionStr[dot+1:]
		end := 0
		for end < len(rest2) && rest2[end] >= '0' && rest2[end] <= '9' {
			end++
		}
		minorStr := rest2[:end]

		major, err := parseUintField(majorStr)
		if err != nil {
			return nil, nil
		}
		minor, err := parseUintField(minorStr)
		if err != nil {
			return nil, nil
		}
		return &manifest.PartialUnityVersion{Major: uint16(major), Minor: uint8(minor)}, nil
	}
	return nil, scanner.Err()
}

func parseUintField(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("empty numeric field")
	}
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("non-digit %q", c)
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}
