// Package changeplan converts resolver output and a project snapshot into
// a typed, reviewable plan: which packages to install, which to remove and
// why, which dependency-map entries to add, which legacy assets to purge,
// and which conflicts to surface before anything is applied.
package changeplan

import (
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/semver"
)

// RemoveReason explains why a locked package is being dropped.
type RemoveReason int

const (
	RemoveRequested RemoveReason = iota
	RemoveLegacy
	RemoveUnused
)

func (r RemoveReason) String() string {
	switch r {
	case RemoveRequested:
		return "requested"
	case RemoveLegacy:
		return "legacy"
	case RemoveUnused:
		return "unused"
	default:
		return "unknown"
	}
}

// Install is the InstallToLocked/AddToDependencies half of PendingChange: a
// package may be added to the locked set, added to the dependencies map, or
// both at once (a plain `add_to_dependencies` with no install happens when
// the requested version is already satisfied by a newer locked package).
type Install struct {
	Package        *collection.PackageInfo
	AddToLocked    bool
	ToDependencies *semver.DependencyRange
}

// Remove is the other half of PendingChange: drop name from the locked set.
type Remove struct {
	Reason RemoveReason
}

// PackageChange is the per-name union: at most one Install or one Remove,
// never both (installing and removing the same name in one plan is a
// caller bug).
type PackageChange struct {
	Install *Install
	Remove  *Remove
}

// ConflictInfo records why a package's change is contentious: version
// conflicts with the other requesters named, or a Unity-compatibility
// shortfall, or both.
type ConflictInfo struct {
	ConflictingPackages []string
	ConflictsWithUnity  bool

	// ConflictingUnlockedDirs holds the paths of the Packages/ directories whose
	// own declared package name collides with this install — an install
	// can't safely land while an unrelated unlocked checkout already
	// claims the same package name.
	ConflictingUnlockedDirs []string
}

// PendingChanges is the built, ready-to-review plan.
type PendingChanges struct {
	PackageChanges map[string]PackageChange

	RemoveLegacyFiles   []string
	RemoveLegacyFolders []string

	Conflicts map[string]*ConflictInfo
}

// Installs returns every package change that installs into the locked set.
func (p PendingChanges) Installs() []collection.PackageInfo {
	var out []collection.PackageInfo
	for _, ch := range p.PackageChanges {
		if ch.Install != nil && ch.Install.AddToLocked && ch.Install.Package != nil {
			out = append(out, *ch.Install.Package)
		}
	}
	return out
}

// Removals returns the names to drop from the locked set, with reasons.
func (p PendingChanges) Removals() map[string]RemoveReason {
	out := map[string]RemoveReason{}
	for name, ch := range p.PackageChanges {
		if ch.Remove != nil {
			out[name] = ch.Remove.Reason
		}
	}
	return out
}

// Builder accumulates package changes and conflicts before the plan is
// finalized with mark-and-sweep and legacy-asset collection.
type Builder struct {
	packageChanges map[string]PackageChange
	conflicts      map[string]*ConflictInfo
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{packageChanges: map[string]PackageChange{}, conflicts: map[string]*ConflictInfo{}}
}

func (b *Builder) entry(name string) PackageChange {
	return b.packageChanges[name]
}

// AddToDependencies records that name should get this range in the
// project's dependencies map, in addition to (or instead of) an install.
func (b *Builder) AddToDependencies(name string, r semver.DependencyRange) *Builder {
	ch := b.entry(name)
	if ch.Install == nil {
		ch.Install = &Install{}
	}
	rr := r
	ch.Install.ToDependencies = &rr
	b.packageChanges[name] = ch
	return b
}

// DependencyOverride returns the range most recently staged via
// AddToDependencies for name, mirroring the Rust builder's
// get_dependencies: a resolver input seeded from the project's current
// dependencies map should prefer this override when present.
func (b *Builder) DependencyOverride(name string) (semver.DependencyRange, bool) {
	ch, ok := b.packageChanges[name]
	if !ok || ch.Install == nil || ch.Install.ToDependencies == nil {
		return semver.DependencyRange{}, false
	}
	return *ch.Install.ToDependencies, true
}

// InstallLocked records that pkg should be materialized into the locked
// set at its version.
func (b *Builder) InstallLocked(pkg collection.PackageInfo) *Builder {
	ch := b.entry(pkg.Manifest.Name)
	if ch.Install == nil {
		ch.Install = &Install{}
	}
	p := pkg
	ch.Install.Package = &p
	ch.Install.AddToLocked = true
	b.packageChanges[pkg.Manifest.Name] = ch
	return b
}

// Conflicts records that name's resolved version disagrees with the listed
// requesters' ranges.
func (b *Builder) Conflicts(name string, conflictsWith []string) *Builder {
	c := b.conflicts[name]
	if c == nil {
		c = &ConflictInfo{}
		b.conflicts[name] = c
	}
	c.ConflictingPackages = append(c.ConflictingPackages, conflictsWith...)
	return b
}

// ConflictsUnity records that an installing package's Unity hint exceeds
// the project's Unity version.
func (b *Builder) ConflictsUnity(name string) *Builder {
	c := b.conflicts[name]
	if c == nil {
		c = &ConflictInfo{}
		b.conflicts[name] = c
	}
	c.ConflictsWithUnity = true
	return b
}

// UnlockedInstallationConflict records that installing name would collide
// with the unlocked checkout at dir, which independently claims the same
// package name.
func (b *Builder) UnlockedInstallationConflict(name, dir string) *Builder {
	c := b.conflicts[name]
	if c == nil {
		c = &ConflictInfo{}
		b.conflicts[name] = c
	}
	c.ConflictingUnlockedDirs = append(c.ConflictingUnlockedDirs, dir)
	return b
}

// Remove records that name should be dropped from the locked set. A name
// already staged for Install, or already staged for Remove under some
// other reason (mark-and-sweep revisiting a name the caller already
// queued directly), is left alone — first write wins, silently, rather
// than a caller-visible panic.
func (b *Builder) Remove(name string, reason RemoveReason) *Builder {
	ch := b.entry(name)
	if ch.Install != nil || ch.Remove != nil {
		return b
	}
	ch.Remove = &Remove{Reason: reason}
	b.packageChanges[name] = ch
	return b
}

// BuildNoResolve finalizes the plan as-is, with no mark-and-sweep or
// legacy-asset collection — used for the early-return path where nothing
// new needs installing.
func (b *Builder) BuildNoResolve() PendingChanges {
	return PendingChanges{
		PackageChanges: b.packageChanges,
		Conflicts:      b.conflicts,
	}
}

// Finish runs mark-and-sweep over state's locked graph (using rootNames as
// the target root-dependency names, which may differ from
// state.Dependencies() when the caller is mid add/remove), records any
// Unity conflicts among the packages being installed, collects legacy
// assets for those installs, and returns the finished plan.
func (b *Builder) Finish(state *project.State, rootNames []string) PendingChanges {
	locked := state.Locked()

	installs := b.Installs()
	if state.UnityVer != nil {
		for _, pkg := range installs {
			if !collection.UnityCompatible(pkg.Manifest, state.UnityVer) {
				b.ConflictsUnity(pkg.Manifest.Name)
			}
		}
	}

	var unlockedDepNames []string
	for _, u := range state.Unlocked() {
		if u.Manifest == nil {
			continue
		}
		for dep := range u.Manifest.VpmDependencies {
			unlockedDepNames = append(unlockedDepNames, dep)
		}
	}

	b.markAndSweep(locked, rootNames, unlockedDepNames)

	files, folders := collectLegacyAssets(state.Root, installs)

	return PendingChanges{
		PackageChanges:      b.packageChanges,
		Conflicts:           b.conflicts,
		RemoveLegacyFiles:   files,
		RemoveLegacyFolders: folders,
	}
}

// Installs returns the packages staged so far with AddToLocked set.
func (b *Builder) Installs() []collection.PackageInfo {
	var out []collection.PackageInfo
	for _, ch := range b.packageChanges {
		if ch.Install != nil && ch.Install.AddToLocked && ch.Install.Package != nil {
			out = append(out, *ch.Install.Package)
		}
	}
	return out
}

// markAndSweep implements §4.7's mark-and-sweep: a currently-locked package
// not reachable from the target root/unlocked dependency closure, but
// reachable from the closure of packages being installed-over or removed,
// becomes Remove(Unused).
func (b *Builder) markAndSweep(locked map[string]manifest.LockedDependency, rootNames, unlockedDepNames []string) {
	lockedDeps := func(name string) []string {
		l, ok := locked[name]
		if !ok {
			return nil
		}
		out := make([]string, 0, len(l.Dependencies))
		for d := range l.Dependencies {
			out = append(out, d)
		}
		return out
	}

	var entry []string
	for name, ch := range b.packageChanges {
		if _, isLocked := locked[name]; !isLocked {
			continue
		}
		if (ch.Install != nil && ch.Install.AddToLocked) || ch.Remove != nil {
			entry = append(entry, name)
		}
	}
	removable := markRecursive(entry, lockedDeps)
	if len(removable) == 0 {
		return
	}

	effectiveDeps := func(name string) []string {
		if ch, ok := b.packageChanges[name]; ok && ch.Install != nil && ch.Install.Package != nil {
			pkg := ch.Install.Package
			out := make([]string, 0, len(pkg.Manifest.VpmDependencies))
			for d := range pkg.Manifest.VpmDependencies {
				out = append(out, d)
			}
			return out
		}
		return lockedDeps(name)
	}

	seed := make([]string, 0, len(rootNames)+len(unlockedDepNames))
	seed = append(seed, rootNames...)
	seed = append(seed, unlockedDepNames...)
	using := markRecursive(seed, effectiveDeps)

	for name := range locked {
		if !using[name] && removable[name] {
			b.Remove(name, RemoveUnused)
		}
	}
}

func markRecursive(entry []string, getDeps func(string) []string) map[string]bool {
	mark := map[string]bool{}
	var queue []string
	for _, e := range entry {
		if !mark[e] {
			mark[e] = true
			queue = append(queue, e)
		}
	}
	for len(queue) > 0 {
		name := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, d := range getDeps(name) {
			if !mark[d] {
				mark[d] = true
				queue = append(queue, d)
			}
		}
	}
	return mark
}
