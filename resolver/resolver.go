// Package resolver implements the worklist-driven dependency solver: given
// a project's declared and locked dependencies plus a package collection,
// it decides which packages need to be installed, which locked packages
// have become unreachable legacy entries, and where requirements
// disagree.
package resolver

import (
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/semver"
)

// RootDependency is one entry of the project's "dependencies" map,
// expanded to an effective range and whether pre-releases are allowed for
// it (a bare-version dependency contributes both).
type RootDependency struct {
	Name     string
	Range    semver.Range
	AllowPre bool
}

// LockedEntry mirrors manifest.LockedDependency but keyed by name, the
// shape the solver consumes.
type LockedEntry struct {
	Name         string
	Version      semver.Version
	Dependencies map[string]semver.Range
}

// UnlockedEntry is a package present on disk under Packages/ that is not
// part of the locked set; the solver must never touch it.
type UnlockedEntry struct {
	Name     string
	Manifest *manifest.PackageManifest // nil if package.json was missing/unparsable
}

// Input bundles everything the worklist needs. ProjectUnity is nil when
// ProjectSettings/ProjectVersion.txt couldn't be read.
type Input struct {
	RootDependencies []RootDependency
	Locked           []LockedEntry
	Unlocked         []UnlockedEntry
	ProjectUnity     *manifest.PartialUnityVersion
	Collection       *collection.Collection
	Requested        []collection.PackageInfo
	AllowPrerelease  bool
}

// Result is the solver's output: §4.6's new_packages, conflicts, and
// found_legacy_packages, plus the missing-dependency report.
type Result struct {
	NewPackages         []collection.PackageInfo
	Conflicts           map[string][]string
	FoundLegacyPackages []string
	MissingDependencies map[string]semver.Range
}

// dependencyInfo tracks everything known about one package name during
// resolution: its committed version (if any), who requires it and under
// what range, which names it legacies out, and which names legacy it out.
type dependencyInfo struct {
	using   *collection.PackageInfo
	current *semver.Version

	requirements map[string]semver.Range // source name ("" = root) -> range
	dependencies map[string]bool         // names this package currently depends on

	modernPackages map[string]bool // names of packages that supersede this one
	legacyPackages []string        // names this package declares as legacy

	allowPre bool
	touched  bool
}

func newDependencyInfo() *dependencyInfo {
	return &dependencyInfo{
		requirements:   map[string]semver.Range{},
		dependencies:   map[string]bool{},
		modernPackages: map[string]bool{},
	}
}

func (d *dependencyInfo) isLegacy() bool { return len(d.modernPackages) > 0 }

// worklist is a FIFO queue of candidates, with a name-keyed set of
// packages that must be committed even if the name's current version
// already satisfies its requirements — the explicitly requested packages
// passed in Input.Requested.
type worklist struct {
	items  []collection.PackageInfo
	forced map[string]bool
}

func newWorklist(requested []collection.PackageInfo) *worklist {
	w := &worklist{items: append([]collection.PackageInfo(nil), requested...), forced: map[string]bool{}}
	for _, p := range requested {
		w.forced[p.Manifest.Name] = true
	}
	return w
}

func (w *worklist) next() (collection.PackageInfo, bool, bool) {
	if len(w.items) == 0 {
		return collection.PackageInfo{}, false, false
	}
	item := w.items[0]
	w.items = w.items[1:]
	forced := w.forced[item.Manifest.Name]
	delete(w.forced, item.Manifest.Name)
	return item, forced, true
}

func (w *worklist) push(p collection.PackageInfo) {
	name := p.Manifest.Name
	kept := w.items[:0]
	for _, x := range w.items {
		if x.Manifest.Name != name {
			kept = append(kept, x)
		}
	}
	w.items = append(kept, p)
}

// Resolve runs the worklist algorithm described in the resolver component
// design: seed root/locked/unlocked relations, drain the worklist
// committing candidates and searching for missing dependencies, then
// build conflicts from whatever requirements remain unsatisfied.
func Resolve(in Input) Result {
	deps := map[string]*dependencyInfo{"": newDependencyInfo()}
	unlockedNames := map[string]bool{}

	get := func(name string) *dependencyInfo {
		d, ok := deps[name]
		if !ok {
			d = newDependencyInfo()
			deps[name] = d
		}
		return d
	}

	wl := newWorklist(in.Requested)
	for name := range wl.forced {
		get(name).allowPre = true
	}

	// 1. seed root dependencies
	for _, rd := range in.RootDependencies {
		get("").requirements[rd.Name] = rd.Range
		d := get(rd.Name)
		d.requirements[""] = rd.Range
		d.allowPre = d.allowPre || rd.AllowPre
	}

	// 2a. record locked entries as dependency relations
	for _, locked := range in.Locked {
		d := get(locked.Name)
		setUsingInfo(d, locked.Version, locked.Dependencies)

		if pkg, ok := in.Collection.Find(locked.Name, collection.Specific(locked.Version)); ok {
			applyLegacyPackages(get, locked.Name, d, pkg.Manifest.LegacyPackages)
		}
		for dep, r := range locked.Dependencies {
			get(dep).requirements[locked.Name] = r
		}
	}

	// 2b. record unlocked directories as dependency relations
	for _, u := range in.Unlocked {
		unlockedNames[u.Name] = true
		if u.Manifest == nil {
			continue
		}
		unlockedNames[u.Manifest.Name] = true
		d := get(u.Manifest.Name)
		setUsingInfo(d, u.Manifest.Version, u.Manifest.VpmDependencies)
		applyLegacyPackages(get, u.Manifest.Name, d, u.Manifest.LegacyPackages)
		for dep, r := range u.Manifest.VpmDependencies {
			get(dep).requirements[u.Manifest.Name] = r
		}
	}

	missing := map[string]semver.Range{}

	// 4-7. drain the worklist
	for {
		candidate, forced, ok := wl.next()
		if !ok {
			break
		}

		if !commitCandidate(get, unlockedNames, candidate, forced) {
			continue
		}

		for dep, r := range candidate.Manifest.VpmDependencies {
			if !shouldSearch(deps, unlockedNames, wl, in.AllowPrerelease, dep, r) {
				continue
			}
			found := search(in.Collection, in.ProjectUnity, in.AllowPrerelease, candidate.Manifest.Version.IsPre(), dep, r)
			if found != nil {
				wl.push(*found)
			} else {
				addMissing(missing, dep, r)
			}
		}
	}

	return buildResult(deps, in.AllowPrerelease, missing)
}

func setUsingInfo(d *dependencyInfo, version semver.Version, vpmDeps map[string]semver.Range) {
	v := version
	d.allowPre = d.allowPre || v.IsPre()
	d.current = &v
	d.dependencies = map[string]bool{}
	for name := range vpmDeps {
		d.dependencies[name] = true
	}
}

func applyLegacyPackages(get func(string) *dependencyInfo, name string, d *dependencyInfo, legacy []string) {
	d.legacyPackages = legacy
	for _, l := range legacy {
		get(l).modernPackages[name] = true
	}
}

// commitCandidate records candidate's version and dependency edges into
// the context, mirroring §4.6 step 4. It returns false when the candidate
// must be skipped (legacy name, or an unforced touch of an unlocked
// package).
func commitCandidate(get func(string) *dependencyInfo, unlockedNames map[string]bool, candidate collection.PackageInfo, forced bool) bool {
	name := candidate.Manifest.Name
	d := get(name)

	if d.isLegacy() {
		return false
	}
	if !forced && unlockedNames[name] {
		return false
	}

	d.touched = true

	oldDeps := d.dependencies
	oldLegacy := d.legacyPackages

	d.current = func() *semver.Version { v := candidate.Manifest.Version; return &v }()
	info := candidate
	d.using = &info
	d.dependencies = map[string]bool{}
	for dep := range candidate.Manifest.VpmDependencies {
		d.dependencies[dep] = true
	}
	d.legacyPackages = candidate.Manifest.LegacyPackages

	for dep := range oldDeps {
		if _, ok := d.dependencies[dep]; !ok {
			delete(get(dep).requirements, name)
		}
	}
	for dep, r := range candidate.Manifest.VpmDependencies {
		get(dep).requirements[name] = r
	}

	for _, l := range oldLegacy {
		delete(get(l).modernPackages, name)
	}
	for _, l := range candidate.Manifest.LegacyPackages {
		get(l).modernPackages[name] = true
	}

	return true
}

// shouldSearch implements §4.6 step 5's need-install predicate.
func shouldSearch(deps map[string]*dependencyInfo, unlockedNames map[string]bool, wl *worklist, allowPrerelease bool, name string, r semver.Range) bool {
	d := deps[name]
	if d != nil && d.isLegacy() {
		return false
	}
	if unlockedNames[name] {
		return false
	}

	policy := acceptancePolicy(d != nil && d.allowPre, allowPrerelease)

	for _, p := range wl.items {
		if p.Manifest.Name == name {
			return !r.MatchPre(p.Manifest.Version, policy)
		}
	}
	if d != nil && d.current != nil {
		return !r.MatchPre(*d.current, policy)
	}
	return true
}

func acceptancePolicy(allowPre, allowPrerelease bool) semver.PrereleaseAcceptance {
	if allowPre || allowPrerelease {
		return semver.Allow
	}
	return semver.Minimum
}

// search implements the staircase strategy of §4.6 step 6.
func search(col *collection.Collection, unity *manifest.PartialUnityVersion, allowPrerelease, seedIsPre bool, name string, r semver.Range) *collection.PackageInfo {
	try := func(u *manifest.PartialUnityVersion, policy semver.PrereleaseAcceptance) *collection.PackageInfo {
		if info, ok := col.Find(name, collection.RangeSelector(r, u, policy)); ok {
			return &info
		}
		return nil
	}

	if allowPrerelease {
		if found := try(unity, semver.Allow); found != nil {
			return found
		}
		return try(nil, semver.Allow)
	}

	if seedIsPre {
		for _, step := range []struct {
			u      *manifest.PartialUnityVersion
			policy semver.PrereleaseAcceptance
		}{
			{unity, semver.Deny}, {unity, semver.Minimum}, {unity, semver.Allow},
			{nil, semver.Deny}, {nil, semver.Minimum}, {nil, semver.Allow},
		} {
			if found := try(step.u, step.policy); found != nil {
				return found
			}
		}
		return nil
	}

	for _, step := range []struct {
		u      *manifest.PartialUnityVersion
		policy semver.PrereleaseAcceptance
	}{
		{unity, semver.Deny}, {unity, semver.Minimum},
		{nil, semver.Deny}, {nil, semver.Minimum},
	} {
		if found := try(step.u, step.policy); found != nil {
			return found
		}
	}
	return nil
}

func addMissing(missing map[string]semver.Range, name string, r semver.Range) {
	if existing, ok := missing[name]; ok {
		missing[name] = existing.Intersect(r)
	} else {
		missing[name] = r
	}
}

// buildResult implements §4.6 step 8: conflicts are built from every
// committed, touched, non-legacy package whose current version fails to
// satisfy a still-live (non-legacy source) requirement.
func buildResult(deps map[string]*dependencyInfo, allowPrerelease bool, missing map[string]semver.Range) Result {
	conflicts := map[string][]string{}
	var foundLegacy []string
	var newPackages []collection.PackageInfo

	for name, d := range deps {
		if d.isLegacy() {
			if name != "" {
				foundLegacy = append(foundLegacy, name)
			}
			continue
		}
		if d.using != nil {
			newPackages = append(newPackages, *d.using)
		}
		if !d.touched || d.current == nil {
			continue
		}

		policy := acceptancePolicy(d.allowPre, allowPrerelease)
		var conflictSources []string
		anyUsing := d.using != nil
		for source, r := range d.requirements {
			srcInfo, ok := deps[source]
			if ok && srcInfo.isLegacy() {
				continue
			}
			if r.MatchPre(*d.current, policy) {
				continue
			}
			conflictSources = append(conflictSources, source)
			if ok && srcInfo.using != nil {
				anyUsing = true
			}
		}
		if len(conflictSources) > 0 && anyUsing {
			conflicts[name] = conflictSources
		}
	}

	return Result{NewPackages: newPackages, Conflicts: conflicts, FoundLegacyPackages: foundLegacy, MissingDependencies: missing}
}
