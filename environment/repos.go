package environment

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vrc-get-go/vpm/log"
	"github.com/vrc-get-go/vpm/repocache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// idFileNamePattern is the set of characters add-remote-repo will accept
// as a cache file name derived directly from a repository's id; anything
// else falls back to a random UUID-based name.
var idFileNamePattern = regexp.MustCompile(`^[0-9A-Za-z._-]+$`)

// Environment is the global, cross-project driver state: the config
// directory, its settings.json, and the repository caches it owns.
type Environment struct {
	configDir string
	Settings  *Settings
	Client    repocache.HTTPDoer

	repos map[string]*repocache.Cache // keyed by effective repo id
	sf    singleflight.Group
}

// Load reads settings.json (if present) and seeds the two built-in
// repositories plus every user repo recorded in settings, loading each
// repository's cache file from disk if it exists.
func Load(configDir string) (*Environment, error) {
	s, err := LoadSettings(configDir)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		configDir: configDir,
		Settings:  s,
		Client:    http.DefaultClient,
		repos:     make(map[string]*repocache.Cache),
	}

	reposDir := filepath.Join(configDir, "Repos")
	if err := env.seedBuiltin(reposDir, repocache.OfficialID, repocache.OfficialURL, repocache.OfficialFileName); err != nil {
		return nil, err
	}
	if err := env.seedBuiltin(reposDir, repocache.CuratedID, repocache.CuratedURL, repocache.CuratedFileName); err != nil {
		return nil, err
	}

	for _, r := range s.UserRepos {
		env.loadOrSeedUserRepo(r)
	}

	return env, nil
}

func (e *Environment) seedBuiltin(reposDir, id, url, fileName string) error {
	path := filepath.Join(reposDir, fileName)
	if pathExists(path) {
		c, err := repocache.Load(path)
		if err != nil {
			return errors.Wrapf(err, "load built-in repository %s", id)
		}
		e.repos[id] = c
		return nil
	}
	e.repos[id] = repocache.NewSeed(path, url, id, nil)
	return nil
}

func (e *Environment) loadOrSeedUserRepo(r UserRepoSetting) {
	id := r.EffectiveID()
	if pathExists(r.LocalPath) {
		if c, err := repocache.Load(r.LocalPath); err == nil {
			e.repos[id] = c
			return
		}
	}
	e.repos[id] = repocache.NewSeed(r.LocalPath, r.URL, r.ID, r.Headers)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfigDir returns the root directory this environment was loaded from —
// the installer uses it to compute the package download cache path under
// <config>/Repos/<package-name>/.
func (e *Environment) ConfigDir() string {
	return e.configDir
}

// Repos returns every repository cache this environment currently knows
// about, in a stable order: official, curated, then user repos in the
// order they appear in settings.
func (e *Environment) Repos() []*repocache.Cache {
	out := make([]*repocache.Cache, 0, len(e.repos))
	if c, ok := e.repos[repocache.OfficialID]; ok {
		out = append(out, c)
	}
	if c, ok := e.repos[repocache.CuratedID]; ok {
		out = append(out, c)
	}
	for _, r := range e.Settings.UserRepos {
		if c, ok := e.repos[r.EffectiveID()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ErrAlreadyAdded is returned by AddRemoteRepo when the url or id is
// already present among the user's repositories.
var ErrAlreadyAdded = errors.New("repository already added")

// AddRemoteRepo registers a new remote repository. If url or the derived
// id is already present, it returns ErrAlreadyAdded and writes nothing.
// The cache file is named after the id when the id looks like a safe file
// name component, otherwise a random UUID is used.
func (e *Environment) AddRemoteRepo(url, name string, headers map[string]string) error {
	if _, ok := e.Settings.FindUserRepo(url); ok {
		return ErrAlreadyAdded
	}

	var fileName string
	if idFileNamePattern.MatchString(url) {
		fileName = url + ".json"
	} else {
		fileName = uuid.NewString() + ".json"
	}
	path := filepath.Join(e.configDir, "Repos", fileName)

	setting := UserRepoSetting{LocalPath: path, Name: name, URL: url, Headers: headers}
	e.Settings.AddUserRepo(setting)
	e.repos[setting.EffectiveID()] = repocache.NewSeed(path, url, "", headers)
	return nil
}

// RemoveRepo deletes every user repo for which predicate returns true,
// both from settings and from the in-memory repo set. Its cache file is
// left on disk; callers that want it gone should remove it explicitly.
func (e *Environment) RemoveRepo(predicate func(UserRepoSetting) bool) int {
	removed := 0
	kept := e.Settings.UserRepos[:0]
	for _, r := range e.Settings.UserRepos {
		if predicate(r) {
			delete(e.repos, r.EffectiveID())
			removed++
			continue
		}
		kept = append(kept, r)
	}
	if removed > 0 {
		e.Settings.UserRepos = kept
		e.Settings.dirty = true
	}
	return removed
}

// RefreshAll refreshes every known repository concurrently. A refresh
// failure for one repository is logged and does not abort the others;
// RefreshAll itself never returns an error. Concurrent refreshes of the
// same repository id are collapsed into one flight via singleflight, per
// the "callers must not refresh the same repository concurrently" rule.
func (e *Environment) RefreshAll(ctx context.Context, logger *log.Logger) {
	var g errgroup.Group
	for id, c := range e.repos {
		id, c := id, c
		g.Go(func() error {
			_, err, _ := e.sf.Do(id, func() (interface{}, error) {
				return nil, c.Refresh(ctx, e.Client)
			})
			if err != nil {
				logger.Warnf("refresh repository %s: %v", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Save persists settings.json if it has been mutated.
func (e *Environment) Save() error {
	return e.Settings.Save(e.configDir)
}
