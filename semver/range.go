package semver

import "strings"

// comparatorSet is a conjunction of Comparators: every one must match.
type comparatorSet struct {
	comparators []Comparator
}

func (cs comparatorSet) String() string {
	parts := make([]string, len(cs.comparators))
	for i, c := range cs.comparators {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (cs comparatorSet) matches(v Version, accept PrereleaseAcceptance) bool {
	for _, c := range cs.comparators {
		if !c.matches(v, Allow) {
			return false
		}
	}
	if v.IsStable() || accept == Allow {
		return true
	}
	if accept == Deny {
		return false
	}
	// Minimum: one comparator written against v's base as a pre-release is enough.
	for _, c := range cs.comparators {
		if c.matches(v, Minimum) {
			return true
		}
	}
	return false
}

func (cs comparatorSet) containsPre() bool {
	for _, c := range cs.comparators {
		if c.containsPre() {
			return true
		}
	}
	return false
}

// Range is a disjunction of ComparatorSets: the npm-semver-style range
// grammar ("1.0.0 - 2.0.0", "^1.2.3", "~2.4 || >=3.0.0", ...).
type Range struct {
	sets []comparatorSet
}

// Empty is the range matching every stable version ("" or "*").
var Empty = Range{sets: []comparatorSet{{comparators: []Comparator{{kind: cmpStar, v: PartialVersion{}}}}}}

// SameOrLater returns the range ">=v", used to express "install at least
// this version" after a plain add-to-dependencies pin.
func SameOrLater(v Version) Range {
	return Range{sets: []comparatorSet{{comparators: []Comparator{{kind: cmpGreaterThanOrEqual, v: FromVersion(v)}}}}}
}

// ExactRange returns the range "=v".
func ExactRange(v Version) Range {
	return Range{sets: []comparatorSet{{comparators: []Comparator{{kind: cmpExact, v: FromVersion(v)}}}}}
}

// ParseRange parses the full range grammar described in the package doc: a
// "||"-separated union of comparator sets, each comparator set a
// whitespace-separated conjunction of comparators.
func ParseRange(s string) (Range, error) {
	if strings.TrimSpace(s) == "" {
		return Empty, nil
	}
	parts := strings.Split(s, "||")
	sets := make([]comparatorSet, len(parts))
	for i, part := range parts {
		p := newParser(strings.TrimSpace(part))
		var comparators []Comparator
		for !p.eof() {
			c, err := parseComparator(p)
			if err != nil {
				return Range{}, err
			}
			comparators = append(comparators, c)
			p.skipWS()
		}
		if len(comparators) == 0 {
			return Range{}, p.errf("empty comparator set in range %q", s)
		}
		sets[i] = comparatorSet{comparators: comparators}
	}
	return Range{sets: sets}, nil
}

// MustParseRange parses s and panics on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) String() string {
	parts := make([]string, len(r.sets))
	for i, cs := range r.sets {
		parts[i] = cs.String()
	}
	return strings.Join(parts, " || ")
}

// ContainsPre reports whether any comparator in the range was written
// against a pre-release literal.
func (r Range) ContainsPre() bool {
	for _, cs := range r.sets {
		if cs.containsPre() {
			return true
		}
	}
	return false
}

// Matches is the stable-only query: equivalent to MatchPre(v, Minimum).
func (r Range) Matches(v Version) bool {
	return r.MatchPre(v, Minimum)
}

// MatchPre matches v against the range under the given pre-release policy.
func (r Range) MatchPre(v Version, accept PrereleaseAcceptance) bool {
	for _, cs := range r.sets {
		if cs.matches(v, accept) {
			return true
		}
	}
	return false
}

// Intersect returns the range whose comparator sets are the pairwise
// concatenation of r's and other's comparator sets ("A ∩ B"), used to
// combine multiple required ranges on the same dependency.
func (r Range) Intersect(other Range) Range {
	sets := make([]comparatorSet, 0, len(r.sets)*len(other.sets))
	for _, a := range r.sets {
		for _, b := range other.sets {
			merged := make([]Comparator, 0, len(a.comparators)+len(b.comparators))
			merged = append(merged, a.comparators...)
			merged = append(merged, b.comparators...)
			sets = append(sets, comparatorSet{comparators: merged})
		}
	}
	return Range{sets: sets}
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
