package semver

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Version is a SemVer-shaped version: three unsigned 64-bit segments plus a
// pre-release identifier and build metadata. Equality and ordering ignore
// build metadata per SemVer §10.
type Version struct {
	Major, Minor, Patch uint64
	Pre                 string
	Build               string
}

// New builds a stable version with no pre-release or build metadata.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// NewPre builds a version carrying the given pre-release identifier.
func NewPre(major, minor, patch uint64, pre string) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Pre: pre}
}

// Parse parses a strict version string. Leading zeros in numeric segments
// are rejected (the literal "0" is the only accepted zero), segments larger
// than 2^63-1 are rejected as too big, and any trailing input after a
// successful parse is rejected. Parse(s).String() == s for every s it accepts.
func Parse(s string) (Version, error) {
	p := newParser(s)
	v, err := parseVersion(p)
	if err != nil {
		return Version{}, err
	}
	if !p.eof() {
		return Version{}, p.errf("trailing characters at position %d in %q", p.i, s)
	}
	return v, nil
}

func parseVersion(p *parser) (Version, error) {
	major, err := parseNumericSegment(p)
	if err != nil {
		return Version{}, err
	}
	if err := p.read('.'); err != nil {
		return Version{}, err
	}
	minor, err := parseNumericSegment(p)
	if err != nil {
		return Version{}, err
	}
	if err := p.read('.'); err != nil {
		return Version{}, err
	}
	patch, err := parseNumericSegment(p)
	if err != nil {
		return Version{}, err
	}

	var pre, build string
	if p.first() == '-' {
		p.skip()
		pre, err = parseIdentifier(p, false)
		if err != nil {
			return Version{}, err
		}
	}
	if p.first() == '+' {
		p.skip()
		build, err = parseIdentifier(p, true)
		if err != nil {
			return Version{}, err
		}
	}

	return Version{Major: major, Minor: minor, Patch: patch, Pre: pre, Build: build}, nil
}

// MustParse parses s and panics on error. Intended for tests and
// compile-time-known version literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in canonical form.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// BaseVersion drops pre-release and build metadata, keeping major.minor.patch.
func (v Version) BaseVersion() Version {
	return New(v.Major, v.Minor, v.Patch)
}

// IsStable reports whether v carries no pre-release identifier.
func (v Version) IsStable() bool {
	return v.Pre == ""
}

// IsPre is the complement of IsStable.
func (v Version) IsPre() bool {
	return !v.IsStable()
}

// Equal compares major, minor, patch, and pre-release; build metadata is
// ignored, matching SemVer precedence rules.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Compare orders versions by (major, minor, patch, pre), where an empty
// pre-release ranks above any non-empty one. Build metadata never
// participates. Returns -1, 0, or 1.
func (v Version) Compare(o Version) int {
	if c := cmpUint(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmpUint(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := cmpUint(v.Patch, o.Patch); c != 0 {
		return c
	}
	return comparePre(v.Pre, o.Pre)
}

// LessThan reports whether v orders strictly before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// GreaterThan reports whether v orders strictly after o.
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePre implements SemVer pre-release precedence: empty beats
// non-empty; dot-separated identifiers compare numerically when both sides
// are all-digit, else lexically; numeric identifiers always rank below
// alphanumeric ones; a prerelease with fewer fields that is otherwise equal
// ranks below one with more fields.
func comparePre(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as); i++ {
		if i >= len(bs) {
			return 1
		}
		if c := comparePreField(as[i], bs[i]); c != 0 {
			return c
		}
	}
	if len(bs) > len(as) {
		return -1
	}
	return 0
}

func comparePreField(a, b string) int {
	aNum, bNum := isAllDigits(a), isAllDigits(b)
	switch {
	case aNum && bNum:
		if len(a) != len(b) {
			return cmpUint(uint64(len(a)), uint64(len(b)))
		}
		return strings.Compare(a, b)
	case aNum && !bNum:
		return -1
	case !aNum && bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler so Version round-trips
// through JSON as a bare string, matching the wire format of every manifest
// that embeds a version.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return errors.Wrapf(err, "unmarshal version %q", text)
	}
	*v = parsed
	return nil
}
