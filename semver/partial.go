package semver

import "strconv"

// segmentKind distinguishes the four shapes a PartialVersion's major, minor,
// or patch component can take: an absent segment (the field simply stops,
// e.g. "1.2"), one of the two wildcard spellings, or a concrete number.
type segmentKind int

const (
	segAbsent segmentKind = iota
	segStar
	segLowerX
	segUpperX
	segNumber
)

type segment struct {
	kind  segmentKind
	value uint64
}

func numberSegment(v uint64) segment { return segment{kind: segNumber, value: v} }

// asNumber returns the numeric value and true if this segment is a concrete
// number; wildcards and absent segments return (0, false).
func (s segment) asNumber() (uint64, bool) {
	if s.kind == segNumber {
		return s.value, true
	}
	return 0, false
}

func (s segment) String() string {
	switch s.kind {
	case segStar:
		return "*"
	case segLowerX:
		return "x"
	case segUpperX:
		return "X"
	case segNumber:
		return strconv.FormatUint(s.value, 10)
	default:
		return ""
	}
}

// PartialVersion is a version whose minor and/or patch segments may be
// absent or wildcarded (*, x, X). It only ever appears inside a Range
// expression: "1.2", "1.x", "*" are all valid PartialVersions but not valid
// Versions.
type PartialVersion struct {
	major, minor, patch segment
	Pre, Build          string
}

// FromVersion lifts a full Version into a PartialVersion with every segment
// set, used when a Range needs to wrap an already-parsed concrete version
// (e.g. DependencyRangeFromVersion).
func FromVersion(v Version) PartialVersion {
	return PartialVersion{
		major: numberSegment(v.Major),
		minor: numberSegment(v.Minor),
		patch: numberSegment(v.Patch),
		Pre:   v.Pre,
		Build: v.Build,
	}
}

func (p PartialVersion) Major() (uint64, bool) { return p.major.asNumber() }
func (p PartialVersion) Minor() (uint64, bool) { return p.minor.asNumber() }
func (p PartialVersion) Patch() (uint64, bool) { return p.patch.asNumber() }

func (p PartialVersion) majorOr(d uint64) uint64 {
	if v, ok := p.major.asNumber(); ok {
		return v
	}
	return d
}
func (p PartialVersion) minorOr(d uint64) uint64 {
	if v, ok := p.minor.asNumber(); ok {
		return v
	}
	return d
}
func (p PartialVersion) patchOr(d uint64) uint64 {
	if v, ok := p.patch.asNumber(); ok {
		return v
	}
	return d
}

// ToFull returns the fully-specified Version and true, or the zero Version
// and false if any of major/minor/patch is absent or wildcarded.
func (p PartialVersion) ToFull() (Version, bool) {
	major, ok := p.Major()
	if !ok {
		return Version{}, false
	}
	minor, ok := p.Minor()
	if !ok {
		return Version{}, false
	}
	patch, ok := p.Patch()
	if !ok {
		return Version{}, false
	}
	return Version{Major: major, Minor: minor, Patch: patch, Pre: p.Pre, Build: p.Build}, true
}

// ToFullOrNext returns (v, true) when p is fully specified, or the version
// one step past the wildcarded segment's range together with false: "1.2"
// becomes "1.3.0-0", "1" becomes "2.0.0-0", and "*"/"x" become the maximum
// representable version. The "-0" pre-release ensures the bound acts as an
// exclusive upper bound even against pre-release versions of the next
// number, matching the hyphen-range rounding rule.
func (p PartialVersion) ToFullOrNext() (Version, bool) {
	major, ok := p.Major()
	if !ok {
		return NewPre(maxSegment, maxSegment, maxSegment, "0"), false
	}
	minor, ok := p.Minor()
	if !ok {
		return NewPre(major+1, 0, 0, "0"), false
	}
	patch, ok := p.Patch()
	if !ok {
		return NewPre(major, minor+1, 0, "0"), false
	}
	return Version{Major: major, Minor: minor, Patch: patch, Pre: p.Pre, Build: p.Build}, true
}

// ToZeros fills every absent/wildcarded segment with 0, keeping pre-release
// and build metadata as written.
func (p PartialVersion) ToZeros() Version {
	return Version{Major: p.majorOr(0), Minor: p.minorOr(0), Patch: p.patchOr(0), Pre: p.Pre, Build: p.Build}
}

// ToZerosWithPre is ToZeros but defaults an absent pre-release to "0" so the
// result can serve as an inclusive lower bound that still sorts below any
// real pre-release of the same base version.
func (p PartialVersion) ToZerosWithPre() Version {
	pre := p.Pre
	if pre == "" {
		pre = "0"
	}
	return Version{Major: p.majorOr(0), Minor: p.minorOr(0), Patch: p.patchOr(0), Pre: pre, Build: p.Build}
}

func (p PartialVersion) String() string {
	s := p.major.String()
	if p.minor.kind != segAbsent {
		s += "." + p.minor.String()
	}
	if p.patch.kind != segAbsent {
		s += "." + p.patch.String()
	}
	if p.Pre != "" {
		s += "-" + p.Pre
	}
	if p.Build != "" {
		s += "+" + p.Build
	}
	return s
}

// parsePartialVersion parses the PartialVersion grammar: an optional
// leading "v", a required major segment, then up to two more
// dot-prefixed segments (each a number or a wildcard), optionally followed
// by a pre-release and build metadata. Pre-release/build are only
// recognized after the patch segment; in "1-alpha" the "-" is not consumed
// here and no pre-release is recorded.
func parsePartialVersion(p *parser) (PartialVersion, error) {
	p.skipWS()
	if p.first() == 'v' {
		p.skip()
	}

	major, err := parsePartialSegment(p)
	if err != nil {
		return PartialVersion{}, err
	}

	minor := segment{kind: segAbsent}
	if p.first() == '.' {
		p.skip()
		minor, err = parsePartialSegment(p)
		if err != nil {
			return PartialVersion{}, err
		}
	}

	patch := segment{kind: segAbsent}
	var pre, build string
	if p.first() == '.' {
		p.skip()
		patch, err = parsePartialSegment(p)
		if err != nil {
			return PartialVersion{}, err
		}

		if p.first() == '-' {
			p.skip()
			pre, err = parseIdentifier(p, false)
			if err != nil {
				return PartialVersion{}, err
			}
		} else if isIDStart(p.first()) {
			pre, err = parseIdentifier(p, false)
			if err != nil {
				return PartialVersion{}, err
			}
		}
		if p.first() == '+' {
			p.skip()
			build, err = parseIdentifier(p, true)
			if err != nil {
				return PartialVersion{}, err
			}
		}
	}

	return PartialVersion{major: major, minor: minor, patch: patch, Pre: pre, Build: build}, nil
}

func parsePartialSegment(p *parser) (segment, error) {
	switch p.first() {
	case 'x':
		p.skip()
		return segment{kind: segLowerX}, nil
	case 'X':
		p.skip()
		return segment{kind: segUpperX}, nil
	case '*':
		p.skip()
		return segment{kind: segStar}, nil
	case '0':
		p.skip()
		if isDigit(p.first()) {
			return segment{}, p.errf("leading zero in partial version segment at position %d in %q", p.i, p.s)
		}
		return numberSegment(0), nil
	default:
		if p.first() < '1' || p.first() > '9' {
			return segment{}, p.errf("expected version segment at position %d in %q", p.i, p.s)
		}
		start := p.i
		for isDigit(p.first()) {
			p.skip()
		}
		v, err := parseUint63(p.s[start:p.i])
		if err != nil {
			return segment{}, err
		}
		return numberSegment(v), nil
	}
}
