package environment

import (
	"context"

	"github.com/vrc-get-go/vpm/collection"
	"github.com/vrc-get-go/vpm/log"
)

// LoadPackageInfos builds a Collection view over this environment's
// repositories plus the caller-supplied unlocked packages. When update is
// true, every repository is refreshed first (network errors are logged,
// not fatal — see RefreshAll); otherwise whatever is already on disk or in
// memory is used as-is.
func (e *Environment) LoadPackageInfos(ctx context.Context, logger *log.Logger, update bool, unlocked []collection.UnlockedPackage) *collection.Collection {
	if update {
		e.RefreshAll(ctx, logger)
	}
	return collection.New(e.Repos(), unlocked)
}

// FindPackage is a thin convenience wrapper so callers holding only an
// Environment (no separately-built Collection) can still do a single
// name+selector lookup without constructing one by hand.
func (e *Environment) FindPackage(col *collection.Collection, name string, selector collection.VersionSelector) (collection.PackageInfo, bool) {
	return col.Find(name, selector)
}
