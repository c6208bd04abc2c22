// Package semver implements the version and range grammar used by package
// manifests and dependency declarations: a SemVer-shaped Version, a
// PartialVersion used only inside range expressions, and a Range type that
// parses the familiar npm-style comparator grammar (tildes, carets, hyphens,
// bare wildcards, unions).
package semver

import "github.com/pkg/errors"

// ErrInvalidVersion is wrapped by every parse failure in this package so
// callers can match the sentinel with errors.Is or errors.Cause, while the
// wrapping error's own message carries the position-specific detail.
var ErrInvalidVersion = errors.New("invalid version")

// parser is a single-pass cursor over a version or range string with
// one-byte lookahead. It never backtracks past the current position.
type parser struct {
	s string
	i int
}

func newParser(s string) *parser {
	return &parser{s: s}
}

func (p *parser) eof() bool {
	return p.i >= len(p.s)
}

// peek returns the byte at p.i+offset, or 0 if out of range.
func (p *parser) peek(offset int) byte {
	j := p.i + offset
	if j < 0 || j >= len(p.s) {
		return 0
	}
	return p.s[j]
}

func (p *parser) first() byte {
	return p.peek(0)
}

func (p *parser) skip() {
	p.i++
}

func (p *parser) skipWS() {
	for !p.eof() && (p.first() == ' ' || p.first() == '\t') {
		p.skip()
	}
}

// take consumes and returns the next n bytes.
func (p *parser) take(n int) string {
	s := p.s[p.i : p.i+n]
	p.i += n
	return s
}

// read consumes exactly the byte b, or fails.
func (p *parser) read(b byte) error {
	if p.first() != b {
		return errors.Wrapf(ErrInvalidVersion, "expected %q at position %d in %q", b, p.i, p.s)
	}
	p.skip()
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidVersion, format, args...)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIDStart(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-'
}

// parseNumericSegment parses a run of digits with no leading zero (except
// the literal "0") into a uint64, rejecting overflow past 2^63-1.
func parseNumericSegment(p *parser) (uint64, error) {
	switch {
	case p.first() >= '1' && p.first() <= '9':
		start := p.i
		for isDigit(p.first()) {
			p.skip()
		}
		return parseUint63(p.s[start:p.i])
	case p.first() == '0':
		p.skip()
		if isDigit(p.first()) {
			return 0, p.errf("leading zero in numeric segment at position %d in %q", p.i, p.s)
		}
		return 0, nil
	default:
		return 0, p.errf("expected numeric segment at position %d in %q", p.i, p.s)
	}
}

const maxSegment = uint64(1)<<63 - 1

func parseUint63(digits string) (uint64, error) {
	var v uint64
	for i := 0; i < len(digits); i++ {
		d := uint64(digits[i] - '0')
		if v > (maxSegment-d)/10 {
			return 0, errors.Wrapf(ErrInvalidVersion, "numeric segment %q is too big", digits)
		}
		v = v*10 + d
	}
	return v, nil
}

// parseIdentifier parses a dot-separated run of alphanumeric/hyphen
// identifiers (a pre-release or build-metadata tag) and returns the raw
// text, stopping at the first byte that can't extend it (', ', '+', end of
// input, or a second '+' while reading build metadata).
func parseIdentifier(p *parser, allowLeadingZero bool) (string, error) {
	start := p.i
outer:
	for segStart := p.i; ; segStart = p.i {
		leadingZero := false
		alnum := false
		switch {
		case p.eof():
			return "", p.errf("unexpected end of input while reading identifier in %q", p.s)
		case p.first() == '0':
			p.skip()
			leadingZero = true
		case isDigit(p.first()):
			p.skip()
		case isAlphaOrHyphen(p.first()):
			p.skip()
			alnum = true
		default:
			return "", p.errf("invalid identifier character at position %d in %q", p.i, p.s)
		}

		for {
			switch {
			case isDigit(p.first()):
				p.skip()
			case isAlphaOrHyphen(p.first()):
				p.skip()
				alnum = true
			case p.first() == '.':
				// Leading zeros are only disallowed on purely numeric
				// segments longer than one digit ("01", not "0" or "0a").
				if !allowLeadingZero && leadingZero && !alnum && p.i-segStart > 1 {
					return "", p.errf("leading zero in numeric identifier segment at position %d in %q", p.i, p.s)
				}
				p.skip()
				continue outer
			default:
				if !allowLeadingZero && leadingZero && !alnum && p.i-segStart > 1 {
					return "", p.errf("leading zero in numeric identifier segment at position %d in %q", p.i, p.s)
				}
				break outer
			}
		}
	}
	return p.s[start:p.i], nil
}

func isAlphaOrHyphen(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-'
}
