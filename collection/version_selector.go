package collection

import (
	"github.com/vrc-get-go/vpm/manifest"
	"github.com/vrc-get-go/vpm/semver"
)

type selectorKind int

const (
	selSpecific selectorKind = iota
	selLatest
	selRange
	selRanges
)

// VersionSelector is the closed union of ways the resolver and driver can
// ask a Collection for "the package I want": an exact version, the
// highest available, a single range, or the intersection of several.
type VersionSelector struct {
	kind             selectorKind
	version          semver.Version
	ranges           []semver.Range
	unity            *manifest.PartialUnityVersion
	includePre       bool
	prereleasePolicy semver.PrereleaseAcceptance
}

// Specific selects an exact version, ignoring yank — the one case where a
// yanked package can still be chosen, since the caller named it by exact
// version on purpose.
func Specific(v semver.Version) VersionSelector {
	return VersionSelector{kind: selSpecific, version: v}
}

// Latest selects the highest Unity-compatible, non-yanked version,
// optionally including pre-releases.
func Latest(includePrerelease bool, unity *manifest.PartialUnityVersion) VersionSelector {
	return VersionSelector{kind: selLatest, includePre: includePrerelease, unity: unity}
}

// RangeSelector selects the highest Unity-compatible, non-yanked version
// satisfying r under policy.
func RangeSelector(r semver.Range, unity *manifest.PartialUnityVersion, policy semver.PrereleaseAcceptance) VersionSelector {
	return VersionSelector{kind: selRange, ranges: []semver.Range{r}, unity: unity, prereleasePolicy: policy}
}

// Ranges selects the highest Unity-compatible, non-yanked version
// satisfying every range in rs (their intersection), tested directly
// rather than precomputed, per the "no pre-compute; test each" rule.
func Ranges(rs []semver.Range, unity *manifest.PartialUnityVersion, policy semver.PrereleaseAcceptance) VersionSelector {
	return VersionSelector{kind: selRanges, ranges: rs, unity: unity, prereleasePolicy: policy}
}

func (s VersionSelector) accepts(info PackageInfo) bool {
	switch s.kind {
	case selSpecific:
		return info.Manifest.Version.Equal(s.version)
	case selLatest:
		if info.Manifest.IsYanked() {
			return false
		}
		if !UnityCompatible(info.Manifest, s.unity) {
			return false
		}
		if info.Manifest.Version.IsPre() && !s.includePre {
			return false
		}
		return true
	case selRange, selRanges:
		if info.Manifest.IsYanked() {
			return false
		}
		if !UnityCompatible(info.Manifest, s.unity) {
			return false
		}
		for _, r := range s.ranges {
			if !r.MatchPre(info.Manifest.Version, s.prereleasePolicy) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
