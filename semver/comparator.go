package semver

// PrereleaseAcceptance controls how a Range treats pre-release versions
// when matching, following npm-semver's convention that pre-releases are
// normally invisible to a stable-oriented range.
type PrereleaseAcceptance int

const (
	// Deny rejects every pre-release version outright.
	Deny PrereleaseAcceptance = iota
	// Allow accepts any pre-release that otherwise satisfies the range.
	Allow
	// Minimum accepts a pre-release only when some comparator in the
	// matching set was itself written against the same base version.
	Minimum
)

type comparatorKind int

const (
	cmpTilde comparatorKind = iota
	cmpCaret
	cmpExact
	cmpGreaterThan
	cmpGreaterThanOrEqual
	cmpLessThan
	cmpLessThanOrEqual
	cmpHyphen
	cmpStar
)

// Comparator is a single constraint inside a ComparatorSet: a bare version,
// an operator-prefixed version, or a hyphen range between two versions.
type Comparator struct {
	kind  comparatorKind
	v     PartialVersion
	upper PartialVersion // only used by cmpHyphen
}

func (c Comparator) String() string {
	switch c.kind {
	case cmpTilde:
		return "~" + c.v.String()
	case cmpCaret:
		return "^" + c.v.String()
	case cmpExact:
		return "=" + c.v.String()
	case cmpGreaterThan:
		return ">" + c.v.String()
	case cmpGreaterThanOrEqual:
		return ">=" + c.v.String()
	case cmpLessThan:
		return "<" + c.v.String()
	case cmpLessThanOrEqual:
		return "<=" + c.v.String()
	case cmpHyphen:
		return c.v.String() + " - " + c.upper.String()
	default: // cmpStar
		return c.v.String()
	}
}

// containsPre reports whether this comparator's own operand(s) carry a
// pre-release tag, making that base version pre-release-visible under
// PrereleaseAcceptance.Minimum.
func (c Comparator) containsPre() bool {
	if c.kind == cmpHyphen {
		return c.v.Pre != "" || c.upper.Pre != ""
	}
	return c.v.Pre != ""
}

func (c Comparator) matches(v Version, accept PrereleaseAcceptance) bool {
	if !c.matchesInternal(v) {
		return false
	}
	if v.IsStable() {
		return true
	}
	switch accept {
	case Deny:
		return false
	case Allow:
		return true
	default: // Minimum
		operands := []PartialVersion{c.v}
		if c.kind == cmpHyphen {
			operands = append(operands, c.upper)
		}
		for _, op := range operands {
			zeroed := op.ToZeros()
			if zeroed.IsPre() && zeroed.BaseVersion().Equal(v.BaseVersion()) {
				return true
			}
		}
		return false
	}
}

func (c Comparator) matchesInternal(v Version) bool {
	switch c.kind {
	case cmpTilde:
		if v.LessThan(c.v.ToZeros()) {
			return false
		}
		if v.Major != c.v.majorOr(0) {
			return false
		}
		if minor, ok := c.v.Minor(); ok && v.Minor != minor {
			return false
		}
		return true

	case cmpCaret:
		if v.LessThan(c.v.ToZeros()) {
			return false
		}
		if _, ok := c.v.Major(); !ok {
			return true // ^* matches anything >= 0.0.0
		}
		if v.Major != c.v.majorOr(0) {
			return false
		}
		if c.v.majorOr(0) == 0 {
			if minor, ok := c.v.Minor(); ok {
				if v.Minor != minor {
					return false
				}
				if patch, ok := c.v.Patch(); ok && minor == 0 {
					if v.Patch != patch {
						return false
					}
				}
			}
		}
		return true

	case cmpStar, cmpExact:
		if full, isFull := c.v.ToFull(); isFull {
			return full.Equal(v)
		}
		next, _ := c.v.ToFullOrNext()
		return !v.LessThan(c.v.ToZerosWithPre()) && v.LessThan(next)

	case cmpGreaterThan:
		return greaterThan(v, c.v)
	case cmpGreaterThanOrEqual:
		return greaterThanOrEqual(v, c.v)
	case cmpLessThan:
		return lessThan(v, c.v)
	case cmpLessThanOrEqual:
		return lessThanOrEqual(v, c.v)
	case cmpHyphen:
		return greaterThanOrEqual(v, c.v) && lessThanOrEqual(v, c.upper)
	default:
		return false
	}
}

func greaterThan(v Version, p PartialVersion) bool {
	if next, isFull := p.ToFullOrNext(); isFull {
		return v.GreaterThan(next)
	} else {
		return !v.LessThan(next)
	}
}

func greaterThanOrEqual(v Version, p PartialVersion) bool {
	if full, ok := p.ToFull(); ok {
		return !v.LessThan(full)
	}
	return !v.LessThan(p.ToZerosWithPre())
}

// lessThan treats an exclusive upper bound written without its own
// pre-release tag (e.g. "<1.1.0") as excluding every pre-release of that
// same base version too, not just the stable release itself — otherwise
// "<1.1.0" would admit "1.1.0-pre", which defeats the point of an exclusive
// bound. A bound that itself carries a pre-release tag (e.g. "<1.1.0-rc")
// is left as written.
func lessThan(v Version, p PartialVersion) bool {
	if full, ok := p.ToFull(); ok {
		if full.Pre == "" {
			full.Pre = "0"
		}
		return v.LessThan(full)
	}
	return v.LessThan(p.ToZerosWithPre())
}

func lessThanOrEqual(v Version, p PartialVersion) bool {
	if next, isFull := p.ToFullOrNext(); isFull {
		return !v.GreaterThan(next)
	} else {
		return v.LessThan(next)
	}
}

// parseComparator parses one comparator: an operator-prefixed PartialVersion,
// a bare PartialVersion (Star), or a hyphen range of two PartialVersions.
func parseComparator(p *parser) (Comparator, error) {
	p.skipWS()
	switch p.first() {
	case '~':
		p.skip()
		v, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		return Comparator{kind: cmpTilde, v: v}, nil
	case '^':
		p.skip()
		v, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		return Comparator{kind: cmpCaret, v: v}, nil
	case '=':
		p.skip()
		v, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		return Comparator{kind: cmpExact, v: v}, nil
	case '>':
		p.skip()
		kind := cmpGreaterThan
		if p.first() == '=' {
			p.skip()
			kind = cmpGreaterThanOrEqual
		}
		p.skipWS()
		v, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		return Comparator{kind: kind, v: v}, nil
	case '<':
		p.skip()
		kind := cmpLessThan
		if p.first() == '=' {
			p.skip()
			kind = cmpLessThanOrEqual
		}
		p.skipWS()
		v, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		return Comparator{kind: kind, v: v}, nil
	default:
		first, err := parsePartialVersion(p)
		if err != nil {
			return Comparator{}, err
		}
		p.skipWS()
		if p.first() == '-' {
			p.skip()
			p.skipWS()
			second, err := parsePartialVersion(p)
			if err != nil {
				return Comparator{}, err
			}
			return Comparator{kind: cmpHyphen, v: first, upper: second}, nil
		}
		return Comparator{kind: cmpStar, v: first}, nil
	}
}
