package changeplan

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/project"
)

// NotInstalledError reports that some of the requested names aren't
// currently locked at all.
type NotInstalledError struct{ Names []string }

func (e *NotInstalledError) Error() string {
	return "not installed: " + strings.Join(e.Names, ", ")
}

// RemoveConflictsError reports that removing the requested names would
// leave a dangling dependency: some other still-locked package (not also
// being removed) declares one of the requested names as a dependency.
type RemoveConflictsError struct{ Names []string }

func (e *RemoveConflictsError) Error() string {
	return "the following packages depend on a package being removed: " + strings.Join(e.Names, ", ")
}

// BuildRemoveRequest validates that every name in names is currently
// locked and that removing all of them at once leaves no other locked
// package depending on a removed name, then stages the removals and runs
// mark-and-sweep so any package that was only present to satisfy one of
// the removed names is swept away too.
func BuildRemoveRequest(state *project.State, names []string) (PendingChanges, error) {
	locked := state.Locked()
	removing := make(map[string]bool, len(names))
	for _, n := range names {
		removing[n] = true
	}

	var notFound []string
	for _, n := range names {
		if _, ok := locked[n]; !ok {
			notFound = append(notFound, n)
		}
	}
	if len(notFound) > 0 {
		return PendingChanges{}, errors.WithStack(&NotInstalledError{Names: notFound})
	}

	var conflicts []string
	for name, l := range locked {
		if removing[name] {
			continue
		}
		for dep := range l.Dependencies {
			if removing[dep] {
				conflicts = append(conflicts, name)
				break
			}
		}
	}
	if len(conflicts) > 0 {
		return PendingChanges{}, errors.WithStack(&RemoveConflictsError{Names: conflicts})
	}

	b := NewBuilder()
	for _, n := range names {
		b.Remove(n, RemoveRequested)
	}

	var rootNames []string
	for name := range state.Dependencies() {
		if !removing[name] {
			rootNames = append(rootNames, name)
		}
	}

	return b.Finish(state, rootNames), nil
}
