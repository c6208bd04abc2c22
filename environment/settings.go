// Package environment owns the global, cross-project state: settings.json,
// the user's added repositories, and the fan-out that keeps every
// repository cache fresh.
package environment

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/internal/fs"
)

// UserRepoSetting is one entry of settings.json's "userRepos" list: a
// user-added repository's local cache file plus the remote identity used
// to refresh it.
type UserRepoSetting struct {
	LocalPath string
	Name      string
	URL       string
	ID        string
	Headers   map[string]string
}

// EffectiveID returns ID, defaulting to URL when ID was never set — the
// same default the wire format itself uses.
func (s UserRepoSetting) EffectiveID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.URL
}

type wireUserRepoSetting struct {
	LocalPath string            `json:"localPath"`
	Name      string            `json:"name,omitempty"`
	URL       string            `json:"url,omitempty"`
	ID        string            `json:"id,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// rawConfig is settings.json decoded field-by-field, preserving any
// key this module doesn't understand in extra so round-tripping the file
// never drops user or third-party data.
type rawConfig struct {
	UserRepos          []wireUserRepoSetting `json:"userRepos,omitempty"`
	UserPackageFolders []string              `json:"userPackageFolders,omitempty"`
	extra              map[string]json.RawMessage
}

func (r *rawConfig) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m["userRepos"]; ok {
		if err := json.Unmarshal(raw, &r.UserRepos); err != nil {
			return err
		}
		delete(m, "userRepos")
	}
	if raw, ok := m["userPackageFolders"]; ok {
		if err := json.Unmarshal(raw, &r.UserPackageFolders); err != nil {
			return err
		}
		delete(m, "userPackageFolders")
	}
	r.extra = m
	return nil
}

func (r rawConfig) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(r.extra)+2)
	for k, v := range r.extra {
		m[k] = v
	}
	if b, err := json.Marshal(r.UserRepos); err == nil {
		m["userRepos"] = b
	}
	if b, err := json.Marshal(r.UserPackageFolders); err == nil {
		m["userPackageFolders"] = b
	}
	return json.Marshal(m)
}

// Settings is the in-memory form of settings.json, with a dirty flag so an
// unmutated Settings never triggers a write.
type Settings struct {
	UserRepos          []UserRepoSetting
	UserPackageFolders []string

	raw   rawConfig
	dirty bool
}

const settingsFileName = "settings.json"

// LoadSettings reads settings.json from configDir, or returns an empty,
// already-dirty Settings if the file doesn't exist yet — the first Save
// will create it.
func LoadSettings(configDir string) (*Settings, error) {
	path := filepath.Join(configDir, settingsFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{dirty: true}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	s := &Settings{raw: raw, UserPackageFolders: raw.UserPackageFolders}
	s.UserRepos = make([]UserRepoSetting, len(raw.UserRepos))
	for i, w := range raw.UserRepos {
		s.UserRepos[i] = UserRepoSetting{
			LocalPath: w.LocalPath,
			Name:      w.Name,
			URL:       w.URL,
			ID:        w.ID,
			Headers:   w.Headers,
		}
	}
	return s, nil
}

// Save writes settings.json if and only if the settings have been mutated
// since load, elision matching the "write a single owner, skip no-op
// writes" rule.
func (s *Settings) Save(configDir string) error {
	if !s.dirty {
		return nil
	}

	s.raw.UserPackageFolders = s.UserPackageFolders
	s.raw.UserRepos = make([]wireUserRepoSetting, len(s.UserRepos))
	for i, r := range s.UserRepos {
		s.raw.UserRepos[i] = wireUserRepoSetting{
			LocalPath: r.LocalPath,
			Name:      r.Name,
			URL:       r.URL,
			ID:        r.ID,
			Headers:   r.Headers,
		}
	}

	doc, err := json.MarshalIndent(s.raw, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode settings.json")
	}

	path := filepath.Join(configDir, settingsFileName)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := fs.RenameWithFallback(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replace %s", path)
	}

	s.dirty = false
	return nil
}

// FindUserRepo returns the index of the user repo matching url-or-id,
// per the "already added" rule: a match on either field counts.
func (s *Settings) FindUserRepo(urlOrID string) (int, bool) {
	for i, r := range s.UserRepos {
		if r.URL == urlOrID || r.EffectiveID() == urlOrID {
			return i, true
		}
	}
	return -1, false
}

// AddUserRepo records a newly-added repository and marks the settings
// dirty. Callers are expected to have already checked FindUserRepo.
func (s *Settings) AddUserRepo(r UserRepoSetting) {
	s.UserRepos = append(s.UserRepos, r)
	s.dirty = true
}

// RemoveUserRepoAt removes the repo at index i.
func (s *Settings) RemoveUserRepoAt(i int) {
	s.UserRepos = append(s.UserRepos[:i], s.UserRepos[i+1:]...)
	s.dirty = true
}
