package installer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vrc-get-go/vpm/changeplan"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/environment"
	"github.com/vrc-get-go/vpm/log"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/semver"
)

// Apply materializes plan against state: it downloads (or reuses cached)
// zips and extracts every install into Packages/<name>/, then — only once
// every install has succeeded — folds the new locked/dependencies entries
// into state's manifest in memory, removes legacy assets, and flushes
// vpm-manifest.json to disk.
//
// A failure during any install returns before the manifest is changed and
// before any removal step runs: no package is dropped from the locked set,
// no legacy asset is deleted, and the on-disk manifest is left exactly as
// it was. Extraction replaces Packages/<name>/ in place, so a package whose
// extraction failed may be left with a partial directory, and packages of
// the same plan whose installs had already finished stay extracted.
func Apply(ctx context.Context, env *environment.Environment, state *project.State, plan changeplan.PendingChanges, logger *log.Logger) error {
	if isEmptyPlan(plan) {
		return nil
	}

	installs := plan.Installs()

	if err := installAll(ctx, env, state.Root, installs, logger); err != nil {
		return err
	}

	applyManifestChanges(state.Manifest, plan)

	removeLegacyPackages(state.Root, plan.Removals(), logger)
	removeLegacyAssets(state.Root, plan.RemoveLegacyFiles, plan.RemoveLegacyFolders, logger)

	return saveManifest(state.Root, state.Manifest)
}

// isEmptyPlan reports whether plan has nothing at all to apply — no
// package changes and no legacy assets to purge — so a second apply of an
// already-applied (or never-changed) plan is a true no-op on disk: Apply
// returns before touching the manifest or any package directory.
func isEmptyPlan(plan changeplan.PendingChanges) bool {
	return len(plan.PackageChanges) == 0 && len(plan.RemoveLegacyFiles) == 0 && len(plan.RemoveLegacyFolders) == 0
}

// installAll fans installs out across an errgroup — downloads and
// extractions of different packages may interleave freely, but each
// package's own download -> verify -> extract sequence stays strict and
// sequential, matching the single-package ordering the cache logic assumes.
func installAll(ctx context.Context, env *environment.Environment, projectRoot string, installs []collection.PackageInfo, logger *log.Logger) error {
	if len(installs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pkg := range installs {
		pkg := pkg
		g.Go(func() error {
			return installOne(gctx, env, projectRoot, pkg, logger)
		})
	}
	return g.Wait()
}

func installOne(ctx context.Context, env *environment.Environment, projectRoot string, pkg collection.PackageInfo, logger *log.Logger) error {
	zipPath, err := fetchZip(ctx, env.Client, env.ConfigDir(), pkg)
	if err != nil {
		return errors.Wrapf(err, "fetch package %s", pkg.Manifest.Name)
	}

	destDir := filepath.Join(projectRoot, "Packages", pkg.Manifest.Name)
	if err := extractPackage(zipPath, destDir); err != nil {
		return errors.Wrapf(err, "extract package %s into %s", pkg.Manifest.Name, destDir)
	}

	logger.With("package", pkg.Manifest.Name).With("version", pkg.Manifest.Version.String()).Logln("installed package")
	return nil
}

// applyManifestChanges folds plan's package changes into m in memory: every
// install both locks the package (with its dependency ranges frozen at the
// resolved version) and, when staged, updates the user-facing dependencies
// entry; every removal drops the locked entry.
func applyManifestChanges(m *manifest.VpmManifest, plan changeplan.PendingChanges) {
	for name, ch := range plan.PackageChanges {
		if ch.Install != nil {
			if ch.Install.AddToLocked && ch.Install.Package != nil {
				pkg := ch.Install.Package
				deps := make(map[string]semver.Range, len(pkg.Manifest.VpmDependencies))
				for dep, r := range pkg.Manifest.VpmDependencies {
					deps[dep] = r
				}
				m.Locked[name] = manifest.LockedDependency{Version: pkg.Manifest.Version, Dependencies: deps}
			}
			if ch.Install.ToDependencies != nil {
				m.Dependencies[name] = *ch.Install.ToDependencies
			}
		}
		if ch.Remove != nil {
			delete(m.Locked, name)
			if ch.Remove.Reason == changeplan.RemoveRequested {
				delete(m.Dependencies, name)
			}
		}
	}
}

// removeLegacyPackages deletes Packages/<name>/ for every package dropped
// from the locked set. Failures are logged, not fatal: a package directory
// that resists removal (e.g. a file held open by the Unity editor) should
// not abort an otherwise-successful install.
func removeLegacyPackages(projectRoot string, removals map[string]changeplan.RemoveReason, logger *log.Logger) {
	for name := range removals {
		dir := filepath.Join(projectRoot, "Packages", name)
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnf("remove package directory %s: %v", dir, err)
		}
	}
}

// removeLegacyAssets deletes the individual legacy files and folders a
// changeplan identified via their declared legacyFiles/legacyFolders paths
// or GUID fallback. Failures are logged, not fatal, per the same rule as
// removeLegacyPackages.
func removeLegacyAssets(projectRoot string, files, folders []string, logger *log.Logger) {
	for _, rel := range files {
		p := filepath.Join(projectRoot, rel)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warnf("remove legacy file %s: %v", p, err)
		}
	}
	for _, rel := range folders {
		p := filepath.Join(projectRoot, rel)
		if err := os.RemoveAll(p); err != nil {
			logger.Warnf("remove legacy folder %s: %v", p, err)
		}
	}
}

// saveManifest writes m to Packages/vpm-manifest.json atomically.
func saveManifest(projectRoot string, m *manifest.VpmManifest) error {
	data, err := m.Encode()
	if err != nil {
		return errors.Wrap(err, "encode vpm-manifest.json")
	}
	path := filepath.Join(projectRoot, "Packages", project.ManifestName)
	if err := atomicWriteFile(path, data); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
