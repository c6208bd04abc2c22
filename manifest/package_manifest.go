// Package manifest decodes the JSON dialects this module reads and writes:
// a package's own package.json (PackageManifest), a repository's index
// (RepositoryIndex) plus its on-disk cache wrapper (LocalCachedRepository),
// and the project's vpm-manifest.json (VpmManifest, in project_manifest.go).
//
// Decoding is lenient at the field level: a malformed optional field falls
// back to its zero value instead of failing the whole document, because
// real manifests in the wild occasionally carry junk in fields nothing
// reads. Only the two fields every consumer depends on, name and version,
// fail the document outright when missing or unparseable.
package manifest

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/semver"
)

// Yank is the tri-valued state a package version can be marked with:
// present-and-false, present-and-true, or a reason string. All three mean
// "not yanked" only in the first case.
type Yank struct {
	Yanked bool
	Reason string
}

// IsYanked reports whether this version has been pulled from the index.
func (y Yank) IsYanked() bool { return y.Yanked }

// UnmarshalJSON accepts false, true, or a non-empty string.
func (y *Yank) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*y = Yank{Yanked: b}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*y = Yank{Yanked: s != "", Reason: s}
		return nil
	}
	// lenient: any other shape (null, object, ...) degrades to not-yanked
	// rather than failing the whole manifest.
	*y = Yank{}
	return nil
}

// MarshalJSON round-trips the tri-valued shape: false when not yanked, the
// reason string when one was recorded, else bare true.
func (y Yank) MarshalJSON() ([]byte, error) {
	switch {
	case !y.Yanked:
		return json.Marshal(false)
	case y.Reason != "":
		return json.Marshal(y.Reason)
	default:
		return json.Marshal(true)
	}
}

// PartialUnityVersion is the "2019.4" style Unity compatibility hint on a
// package manifest: major.minor only, no patch.
type PartialUnityVersion struct {
	Major uint16
	Minor uint8
}

// Compare orders two PartialUnityVersions by (major, minor).
func (u PartialUnityVersion) Compare(o PartialUnityVersion) int {
	if u.Major != o.Major {
		if u.Major < o.Major {
			return -1
		}
		return 1
	}
	switch {
	case u.Minor < o.Minor:
		return -1
	case u.Minor > o.Minor:
		return 1
	default:
		return 0
	}
}

func (u PartialUnityVersion) String() string {
	return itoa(int(u.Major)) + "." + itoa(int(u.Minor))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PackageManifest is a package's package.json, in the VPM dialect: name and
// version are required, everything else is optional and decoded leniently.
type PackageManifest struct {
	Name        string
	Version     semver.Version
	DisplayName string
	Description string

	URL        string
	ZipSHA256  string
	Unity      *PartialUnityVersion
	ChangelogURL string

	VpmDependencies map[string]semver.Range
	LegacyFolders   map[string]string // path -> guid, guid == "" means none recorded
	LegacyFiles     map[string]string
	LegacyPackages  []string

	Yank    Yank
	Aliases []string
}

// IsYanked is a shorthand for Yank.IsYanked.
func (m *PackageManifest) IsYanked() bool { return m.Yank.IsYanked() }

// wireManifest mirrors the camelCase JSON shape of package.json. Every
// optional field is decoded into json.RawMessage first so a malformed value
// can be dropped instead of failing the document; see decodeLenient.
type wireManifest struct {
	Name            string                     `json:"name"`
	Version         *semver.Version            `json:"version"`
	DisplayName     json.RawMessage            `json:"displayName,omitempty"`
	Description     json.RawMessage            `json:"description,omitempty"`
	URL             json.RawMessage            `json:"url,omitempty"`
	ZipSHA256       json.RawMessage            `json:"zipSHA256,omitempty"`
	Unity           json.RawMessage            `json:"unity,omitempty"`
	ChangelogURL    json.RawMessage            `json:"changelogUrl,omitempty"`
	VpmDependencies map[string]json.RawMessage `json:"vpmDependencies,omitempty"`
	LegacyFolders   map[string]json.RawMessage `json:"legacyFolders,omitempty"`
	LegacyFiles     map[string]json.RawMessage `json:"legacyFiles,omitempty"`
	LegacyPackages  []string                   `json:"legacyPackages,omitempty"`
	VrcGet          struct {
		Yanked  Yank     `json:"yanked,omitempty"`
		Aliases []string `json:"aliases,omitempty"`
	} `json:"vrc-get,omitempty"`
}

// ParsePackageManifest decodes a package.json document. Required fields
// (name, version) that are missing or unparseable fail the document; every
// other field degrades to its zero value on a decode error.
func ParsePackageManifest(data []byte) (*PackageManifest, error) {
	raw, err := dedupDecode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode package manifest")
	}

	var w wireManifest
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "decode package manifest")
	}
	if w.Name == "" {
		return nil, errors.New("package manifest missing required field \"name\"")
	}
	if w.Version == nil {
		return nil, errors.New("package manifest missing required field \"version\"")
	}

	m := &PackageManifest{
		Name:           w.Name,
		Version:        *w.Version,
		LegacyPackages: w.LegacyPackages,
		Yank:           w.VrcGet.Yanked,
		Aliases:        w.VrcGet.Aliases,
	}

	m.DisplayName = lenientString(w.DisplayName)
	m.Description = lenientString(w.Description)
	m.URL = lenientString(w.URL)
	m.ZipSHA256 = lenientString(w.ZipSHA256)
	m.ChangelogURL = lenientString(w.ChangelogURL)
	m.Unity = lenientUnity(w.Unity)
	m.VpmDependencies = lenientRangeMap(w.VpmDependencies)
	m.LegacyFolders = lenientGuidMap(w.LegacyFolders)
	m.LegacyFiles = lenientGuidMap(w.LegacyFiles)

	return m, nil
}

func lenientString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func lenientUnity(raw json.RawMessage) *PartialUnityVersion {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	u, ok := parsePartialUnityVersion(s)
	if !ok {
		return nil
	}
	return &u
}

func lenientRangeMap(raw map[string]json.RawMessage) map[string]semver.Range {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]semver.Range, len(raw))
	for name, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		r, err := semver.ParseRange(s)
		if err != nil {
			continue
		}
		out[name] = r
	}
	return out
}

func lenientGuidMap(raw map[string]json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for path, v := range raw {
		var guid string
		_ = json.Unmarshal(v, &guid) // null or malformed both degrade to ""
		out[path] = guid
	}
	return out
}

func parsePartialUnityVersion(s string) (PartialUnityVersion, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			major, ok1 := parseUint16(s[:i])
			minor, ok2 := parseUint8(s[i+1:])
			if !ok1 || !ok2 {
				return PartialUnityVersion{}, false
			}
			return PartialUnityVersion{Major: major, Minor: minor}, true
		}
	}
	major, ok := parseUint16(s)
	if !ok {
		return PartialUnityVersion{}, false
	}
	return PartialUnityVersion{Major: major}, true
}

func parseUint16(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + uint64(s[i]-'0')
		if v > 0xFFFF {
			return 0, false
		}
	}
	return uint16(v), true
}

func parseUint8(s string) (uint8, bool) {
	v, ok := parseUint16(s)
	if !ok || v > 0xFF {
		return 0, false
	}
	return uint8(v), true
}
