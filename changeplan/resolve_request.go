package changeplan

import (
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/resolver"
	"github.com/vrc-get-go/vpm/semver"
)

// rootDependency converts one project.State dependency entry to the
// resolver's RootDependency shape: a pin on a pre-release version also
// allows the solver to select that exact pre-release.
func rootDependency(name string, dr semver.DependencyRange) resolver.RootDependency {
	rd := resolver.RootDependency{Name: name, Range: dr.AsRange()}
	if single, ok := dr.AsSingleVersion(); ok {
		rd.AllowPre = single.IsPre()
	}
	return rd
}

func buildInput(state *project.State, col *collection.Collection, allowPrerelease bool) resolver.Input {
	deps := state.Dependencies()
	locked := state.Locked()
	unlockedList := state.Unlocked()

	in := resolver.Input{
		ProjectUnity:    state.UnityVer,
		Collection:      col,
		AllowPrerelease: allowPrerelease,
	}

	for name, dr := range deps {
		in.RootDependencies = append(in.RootDependencies, rootDependency(name, dr))
	}

	for name, l := range locked {
		in.Locked = append(in.Locked, resolver.LockedEntry{Name: name, Version: l.Version, Dependencies: l.Dependencies})
	}

	for _, u := range unlockedList {
		in.Unlocked = append(in.Unlocked, resolver.UnlockedEntry{Name: u.Name, Manifest: u.Manifest})
	}

	// Requested: every currently-locked package is re-affirmed at its
	// locked version (so it is recorded as "using" and never orphaned by
	// mark-and-sweep just because nothing re-commits it), and every root
	// dependency without a lock entry yet is searched for fresh so a
	// newly-added manifest dependency actually gets installed.
	for name, l := range locked {
		if pkg, ok := col.Find(name, collection.Specific(l.Version)); ok {
			in.Requested = append(in.Requested, pkg)
		}
	}
	for name, dr := range deps {
		if _, isLocked := locked[name]; isLocked {
			continue
		}
		rd := rootDependency(name, dr)
		policy := semver.Minimum
		if allowPrerelease || rd.AllowPre {
			policy = semver.Allow
		}
		if pkg, ok := col.Find(name, collection.RangeSelector(rd.Range, state.UnityVer, policy)); ok {
			in.Requested = append(in.Requested, pkg)
		}
	}

	return in
}

// BuildResolveRequest runs the solver over state's current manifest and
// lock file against col and turns the result into a pending change set: new
// packages to install, locked packages that have become unreachable legacy
// entries (scheduled for removal), and conflicts/missing dependencies
// surfaced as-is for the caller to report.
func BuildResolveRequest(state *project.State, col *collection.Collection, allowPrerelease bool) (PendingChanges, resolver.Result) {
	in := buildInput(state, col, allowPrerelease)
	result := resolver.Resolve(in)

	b := NewBuilder()
	for _, pkg := range result.NewPackages {
		b.InstallLocked(pkg)
	}
	for _, name := range result.FoundLegacyPackages {
		if _, ok := state.Locked()[name]; ok {
			b.Remove(name, RemoveLegacy)
		}
	}
	for name, sources := range result.Conflicts {
		b.Conflicts(name, sources)
	}

	rootNames := make([]string, 0, len(in.RootDependencies))
	for _, rd := range in.RootDependencies {
		rootNames = append(rootNames, rd.Name)
	}

	changes := b.Finish(state, rootNames)
	return changes, result
}
