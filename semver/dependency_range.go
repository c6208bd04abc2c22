package semver

// DependencyRange is the type of value found in a project's or a package's
// `dependencies`/`vpm_dependencies` map. It is written the same way as a
// Range, and a bare single version parsed from text ("1.0.0") is an exact
// pin, as it is inside a Range. A DependencyRange built by
// DependencyRangeFromVersion is the exception: Matches and AsRange treat
// it as ">=" that version.
type DependencyRange struct {
	r Range
}

// DependencyRangeFromVersion returns the DependencyRange for v with
// minimum-version semantics: it matches v and every version above it.
func DependencyRangeFromVersion(v Version) DependencyRange {
	return DependencyRange{r: Range{sets: []comparatorSet{{comparators: []Comparator{{kind: cmpStar, v: FromVersion(v)}}}}}}
}

// DependencyRangeFromRange lifts a parsed Range into a DependencyRange,
// applying the bare-version-means-exact-pin rule: if r is syntactically a
// single bare version, it is rewritten to an exact comparator.
func DependencyRangeFromRange(r Range) DependencyRange {
	dr := DependencyRange{r: r}
	if full, ok := dr.AsSingleVersion(); ok {
		return DependencyRange{r: ExactRange(full)}
	}
	return dr
}

// ParseDependencyRange parses s as a Range and applies the dependency-range
// pin rule (see DependencyRangeFromRange).
func ParseDependencyRange(s string) (DependencyRange, error) {
	r, err := ParseRange(s)
	if err != nil {
		return DependencyRange{}, err
	}
	return DependencyRangeFromRange(r), nil
}

// AsSingleVersion returns the exact version and true only when this
// DependencyRange is still the un-rewritten output of
// DependencyRangeFromVersion: a single bare (Star-kind) comparator naming
// one full version. A text-parsed bare version has already been rewritten
// to an Exact comparator by DependencyRangeFromRange and so no longer
// qualifies here — that rewrite is what keeps the two constructors'
// matching behavior apart (see Matches).
func (d DependencyRange) AsSingleVersion() (Version, bool) {
	if len(d.r.sets) != 1 || len(d.r.sets[0].comparators) != 1 {
		return Version{}, false
	}
	c := d.r.sets[0].comparators[0]
	if c.kind != cmpStar {
		return Version{}, false
	}
	return c.v.ToFull()
}

// Matches reports whether v satisfies this dependency range. A range built
// by DependencyRangeFromVersion (the ">= installed version" pin written
// after an install) matches any version at or above it. Everything else —
// including a bare version typed by a user, which DependencyRangeFromRange
// rewrites to an exact comparator — defers to Range.MatchPre under Allow,
// which gives a bare version plain equality and a real range its ordinary
// range semantics.
func (d DependencyRange) Matches(v Version) bool {
	if single, ok := d.AsSingleVersion(); ok {
		return !single.GreaterThan(v)
	}
	return d.r.MatchPre(v, Allow)
}

// AsRange returns the equivalent Range: a single-version pin becomes
// ">=version", anything else is returned unchanged.
func (d DependencyRange) AsRange() Range {
	if single, ok := d.AsSingleVersion(); ok {
		return SameOrLater(single)
	}
	return d.r
}

func (d DependencyRange) String() string {
	return d.r.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d DependencyRange) MarshalText() ([]byte, error) {
	return []byte(d.r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DependencyRange) UnmarshalText(text []byte) error {
	parsed, err := ParseDependencyRange(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
