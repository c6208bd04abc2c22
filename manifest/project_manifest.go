package manifest

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/semver"
)

// LockedDependency is one entry of vpm-manifest.json's "locked" map: the
// resolved version a package was installed at, plus the dependency ranges
// it declared at that version (frozen at install time so the resolver can
// reconstruct the dependency graph without re-reading every package.json).
type LockedDependency struct {
	Version      semver.Version
	Dependencies map[string]semver.Range
}

// VpmManifest is the project's vpm-manifest.json: the user-facing
// "dependencies" map plus the solver-owned "locked" map.
type VpmManifest struct {
	Dependencies map[string]semver.DependencyRange
	Locked       map[string]LockedDependency
}

type wireLockedDependency struct {
	Version      semver.Version            `json:"version"`
	Dependencies map[string]semver.Range   `json:"dependencies,omitempty"`
}

type wireVpmManifest struct {
	Dependencies map[string]semver.DependencyRange `json:"dependencies,omitempty"`
	Locked       map[string]wireLockedDependency    `json:"locked,omitempty"`
}

// ParseVpmManifest decodes a vpm-manifest.json document. Unlike
// PackageManifest this isn't lenient at the field level: the project
// manifest is the one document this module owns end to end, so a malformed
// entry is a real error rather than something to silently drop.
func ParseVpmManifest(data []byte) (*VpmManifest, error) {
	raw, err := dedupDecode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode vpm-manifest.json")
	}
	var w wireVpmManifest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "decode vpm-manifest.json")
	}

	m := &VpmManifest{
		Dependencies: w.Dependencies,
		Locked:       make(map[string]LockedDependency, len(w.Locked)),
	}
	for name, l := range w.Locked {
		m.Locked[name] = LockedDependency{Version: l.Version, Dependencies: l.Dependencies}
	}
	return m, nil
}

// Encode renders the manifest back to its canonical JSON form.
func (m *VpmManifest) Encode() ([]byte, error) {
	w := wireVpmManifest{
		Dependencies: m.Dependencies,
		Locked:       make(map[string]wireLockedDependency, len(m.Locked)),
	}
	for name, l := range m.Locked {
		w.Locked[name] = wireLockedDependency{Version: l.Version, Dependencies: l.Dependencies}
	}
	return json.MarshalIndent(w, "", "  ")
}

// NewVpmManifest returns an empty manifest, used when no vpm-manifest.json
// exists yet for a freshly-initialized project.
func NewVpmManifest() *VpmManifest {
	return &VpmManifest{
		Dependencies: make(map[string]semver.DependencyRange),
		Locked:       make(map[string]LockedDependency),
	}
}
