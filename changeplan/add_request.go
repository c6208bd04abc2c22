package changeplan

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/project"
	"github.com/vrc-get-go/vpm/resolver"
	"github.com/vrc-get-go/vpm/semver"
)

// AddPackageOperation picks which validation/branch logic BuildAddRequest
// applies to each requested package.
type AddPackageOperation int

const (
	// InstallToDependencies adds the package to the dependencies map
	// (unless a newer version is already there) and installs it only if
	// nothing newer is already locked.
	InstallToDependencies AddPackageOperation = iota
	// UpgradeLocked requires the package already be locked and installs
	// the requested version if it is newer than what's locked.
	UpgradeLocked
	// Downgrade requires the package already be locked at a version newer
	// than requested, and always installs the requested (older) version.
	Downgrade
	// AutoDetected picks UpgradeLocked/Downgrade/reinstall/
	// InstallToDependencies automatically by comparing the requested
	// version against whatever is currently locked.
	AutoDetected
)

// AddPackageNotFoundError reports that some dependency required to satisfy
// the requested install could not be found in the collection.
type AddPackageNotFoundError struct {
	Dependencies []string
}

func (e *AddPackageNotFoundError) Error() string {
	return "following dependencies are not found: " + strings.Join(e.Dependencies, ", ")
}

// UpgradingNonLockedError reports that UpgradeLocked was requested for a
// package that isn't locked at all.
type UpgradingNonLockedError struct{ PackageName string }

func (e *UpgradingNonLockedError) Error() string {
	return fmt.Sprintf("package %s is not locked, so it cannot be upgraded", e.PackageName)
}

// DowngradingNonLockedError reports that Downgrade was requested for a
// package that isn't locked at all.
type DowngradingNonLockedError struct{ PackageName string }

func (e *DowngradingNonLockedError) Error() string {
	return fmt.Sprintf("package %s is not locked, so it cannot be downgraded", e.PackageName)
}

// UpgradingWithDowngradeError reports that Downgrade was requested for a
// package whose locked version is already older than the requested one —
// that would be an upgrade, not a downgrade.
type UpgradingWithDowngradeError struct{ PackageName string }

func (e *UpgradingWithDowngradeError) Error() string {
	return fmt.Sprintf("package %s is locked at an older version, so it cannot be downgraded", e.PackageName)
}

// BuildAddRequest validates and resolves installing packages (one pass per
// entry in packages) against operation's rules, then runs the solver to
// pull in whatever new transitive dependencies the install needs.
func BuildAddRequest(state *project.State, col *collection.Collection, packages []collection.PackageInfo, operation AddPackageOperation, allowPrerelease bool) (PendingChanges, error) {
	deps := state.Dependencies()
	locked := state.Locked()

	b := NewBuilder()
	var adding []collection.PackageInfo

	checkAndAddAdding := func(request collection.PackageInfo) {
		if l, ok := locked[request.Manifest.Name]; !ok || l.Version.LessThan(request.Manifest.Version) {
			adding = append(adding, request)
		}
	}

	installToDependencies := func(request collection.PackageInfo) {
		addToDeps := true
		if dr, ok := deps[request.Manifest.Name]; ok {
			if full, ok := dr.AsSingleVersion(); ok {
				addToDeps = full.LessThan(request.Manifest.Version)
			}
		}
		if addToDeps {
			b.AddToDependencies(request.Manifest.Name, semver.DependencyRangeFromVersion(request.Manifest.Version))
		}
		checkAndAddAdding(request)
	}

	upgradeLocked := func(request collection.PackageInfo) {
		checkAndAddAdding(request)
	}

	downgrade := func(request collection.PackageInfo) {
		if dr, ok := deps[request.Manifest.Name]; ok {
			if !dr.Matches(request.Manifest.Version) {
				b.AddToDependencies(request.Manifest.Name, semver.DependencyRangeFromVersion(request.Manifest.Version))
			}
		}
		adding = append(adding, request)
	}

	for _, request := range packages {
		name := request.Manifest.Name

		switch operation {
		case InstallToDependencies:
			installToDependencies(request)

		case UpgradeLocked:
			if _, ok := locked[name]; !ok {
				return PendingChanges{}, errors.WithStack(&UpgradingNonLockedError{PackageName: name})
			}
			upgradeLocked(request)

		case Downgrade:
			l, ok := locked[name]
			if !ok {
				return PendingChanges{}, errors.WithStack(&DowngradingNonLockedError{PackageName: name})
			}
			if l.Version.LessThan(request.Manifest.Version) {
				return PendingChanges{}, errors.WithStack(&UpgradingWithDowngradeError{PackageName: name})
			}
			downgrade(request)

		case AutoDetected:
			l, ok := locked[name]
			if !ok {
				installToDependencies(request)
				break
			}
			switch {
			case l.Version.LessThan(request.Manifest.Version):
				upgradeLocked(request)
			case l.Version.Equal(request.Manifest.Version):
				adding = append(adding, request)
			default:
				downgrade(request)
			}
		}
	}

	if len(adding) == 0 {
		return b.BuildNoResolve(), nil
	}

	in := resolver.Input{
		ProjectUnity:    state.UnityVer,
		Collection:      col,
		AllowPrerelease: allowPrerelease,
		Requested:       adding,
	}
	for name, dr := range deps {
		if override, ok := b.DependencyOverride(name); ok {
			dr = override
		}
		in.RootDependencies = append(in.RootDependencies, rootDependency(name, dr))
	}
	for name, l := range locked {
		in.Locked = append(in.Locked, resolver.LockedEntry{Name: name, Version: l.Version, Dependencies: l.Dependencies})
	}
	for _, u := range state.Unlocked() {
		in.Unlocked = append(in.Unlocked, resolver.UnlockedEntry{Name: u.Name, Manifest: u.Manifest})
	}

	result := resolver.Resolve(in)
	if len(result.MissingDependencies) > 0 {
		missing := make([]string, 0, len(result.MissingDependencies))
		for name := range result.MissingDependencies {
			missing = append(missing, name)
		}
		return PendingChanges{}, errors.WithStack(&AddPackageNotFoundError{Dependencies: missing})
	}

	for _, pkg := range result.NewPackages {
		b.InstallLocked(pkg)

		for _, u := range state.Unlocked() {
			collides := u.Name == pkg.Manifest.Name || (u.Manifest != nil && u.Manifest.Name == pkg.Manifest.Name)
			if collides {
				b.UnlockedInstallationConflict(pkg.Manifest.Name, u.Path)
			}
		}
	}

	for name, sources := range result.Conflicts {
		b.Conflicts(name, sources)
	}

	for _, name := range result.FoundLegacyPackages {
		if _, ok := locked[name]; ok {
			b.Remove(name, RemoveLegacy)
		}
	}

	rootNames := make([]string, 0, len(in.RootDependencies))
	for _, rd := range in.RootDependencies {
		rootNames = append(rootNames, rd.Name)
	}

	return b.Finish(state, rootNames), nil
}
