package changeplan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/vrc-get-go/vpm/collection"
)

// collectLegacyAssets walks each installing package's declared
// LegacyFolders/LegacyFiles and resolves them against the
// project tree, returning the deduplicated on-disk paths (relative to
// projectDir) that should be deleted once the install completes.
//
// A legacy entry is matched in two passes: first by direct path existence
// (the path the manifest names, normalized to forward slashes, must exist
// and be the declared kind); if that fails and the entry declares a GUID,
// by a lazily-built GUID index over every .meta file under Assets/ and
// Packages/, matched again on kind. Unresolvable entries are silently
// skipped — the legacy asset they described has either already been
// removed or was never present in this project.
func collectLegacyAssets(projectDir string, installs []collection.PackageInfo) (files, folders []string) {
	var guidIndex map[string][]string
	seenFiles := map[string]bool{}
	seenFolders := map[string]bool{}

	record := func(rel string, isDir bool) {
		rel = filepath.ToSlash(rel)
		if isDir {
			if !seenFolders[rel] {
				seenFolders[rel] = true
				folders = append(folders, rel)
			}
			return
		}
		if !seenFiles[rel] {
			seenFiles[rel] = true
			files = append(files, rel)
		}
	}

	resolve := func(relPath, guid string, isDir bool) {
		relPath = strings.ReplaceAll(relPath, "\\", "/")
		if relPath != "" && !isAbsoluteAssetPath(relPath) {
			if matchesKind(filepath.Join(projectDir, filepath.FromSlash(relPath)), isDir) {
				record(relPath, isDir)
				return
			}
		}
		if guid == "" {
			return
		}
		if guidIndex == nil {
			guidIndex = buildGUIDIndex(projectDir)
		}
		for _, candidate := range guidIndex[guid] {
			if matchesKind(filepath.Join(projectDir, filepath.FromSlash(candidate)), isDir) {
				record(candidate, isDir)
				return
			}
		}
	}

	for _, pkg := range installs {
		m := pkg.Manifest
		for rel, guid := range m.LegacyFolders {
			resolve(rel, guid, true)
		}
		for rel, guid := range m.LegacyFiles {
			resolve(rel, guid, false)
		}
	}

	return files, folders
}

// isAbsoluteAssetPath rejects absolute paths and Windows drive-letter
// paths: a legacy asset path is always project-relative.
func isAbsoluteAssetPath(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		return true
	}
	return strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\")
}

func matchesKind(path string, wantDir bool) bool {
	fi, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return fi.IsDir() == wantDir
}

// buildGUIDIndex walks Assets/ and Packages/ under projectDir, reading
// every .meta file's guid line and mapping it to the project-relative path
// of the asset the .meta file describes (the same path with the .meta
// suffix stripped).
func buildGUIDIndex(projectDir string) map[string][]string {
	index := map[string][]string{}

	for _, top := range []string{"Assets", "Packages"} {
		root := filepath.Join(projectDir, top)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		_ = godirwalk.Walk(root, &godirwalk.Options{
			Unsorted: true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() || !strings.HasSuffix(path, ".meta") {
					return nil
				}
				guid, ok := readMetaGUID(path)
				if !ok {
					return nil
				}
				assetPath := strings.TrimSuffix(path, ".meta")
				rel, err := filepath.Rel(projectDir, assetPath)
				if err != nil {
					return nil
				}
				rel = filepath.ToSlash(rel)
				index[guid] = append(index[guid], rel)
				return nil
			},
		})
	}

	return index
}

func readMetaGUID(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if guid, ok := strings.CutPrefix(line, "guid: "); ok {
			return strings.TrimSpace(guid), true
		}
	}
	return "", false
}
