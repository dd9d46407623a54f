// Package config stores named connection profiles. Profiles live in JSON
// files: a project-local .dbplane/config.json and a global
// ~/.config/dbplane/connections.json. Passwords are never written to disk;
// a profile names an environment variable instead.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/dbplane/dbplane/pkg/logger"
)

const (
	localDir   = ".dbplane"
	localFile  = "config.json"
	globalDir  = "dbplane"
	globalFile = "connections.json"
)

// Profile is one stored connection descriptor. The password is represented
// only by the name of the environment variable that holds it.
type Profile struct {
	Engine      dbcapabilities.Engine `json:"engine"`
	Host        string                `json:"host,omitempty"`
	Port        int                   `json:"port,omitempty"`
	User        string                `json:"user,omitempty"`
	Database    string                `json:"database,omitempty"`
	FilePath    string                `json:"file,omitempty"`
	PasswordEnv string                `json:"password_env,omitempty"`
}

// Resolve turns a profile into a live connection descriptor, reading the
// password from the environment. A named but unset variable is an error.
func (p Profile) Resolve() (adapter.ConnectionConfig, error) {
	cfg := adapter.ConnectionConfig{
		Engine:   p.Engine,
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Database: p.Database,
		FilePath: p.FilePath,
	}
	if p.PasswordEnv != "" {
		password, ok := os.LookupEnv(p.PasswordEnv)
		if !ok {
			return adapter.ConnectionConfig{}, adapter.NewConfigurationError(p.Engine, "password_env",
				fmt.Sprintf("environment variable '%s' is not set", p.PasswordEnv))
		}
		cfg.Password = password
	}
	return cfg, nil
}

// Registry is the on-disk shape of a profile file.
type Registry struct {
	Connections map[string]Profile `json:"connections"`
	Current     string             `json:"current,omitempty"`
}

// Store reads and writes profile registries with local/global precedence.
type Store struct {
	localPath  string
	globalPath string
	log        *logger.Logger
}

// NewStore creates a store rooted at the working directory and the user's
// config directory.
func NewStore(log *logger.Logger) (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, adapter.NewConfigurationError("", "", fmt.Sprintf("cannot locate user config directory: %v", err))
	}
	return &Store{
		localPath:  filepath.Join(localDir, localFile),
		globalPath: filepath.Join(configDir, globalDir, globalFile),
		log:        log,
	}, nil
}

// NewStoreAt creates a store with explicit file paths.
func NewStoreAt(localPath, globalPath string, log *logger.Logger) *Store {
	return &Store{localPath: localPath, globalPath: globalPath, log: log}
}

func readRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, adapter.NewConfigurationError("", "", fmt.Sprintf("error reading profile file: %v", err))
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, adapter.NewConfigurationError("", "", fmt.Sprintf("error parsing profile file %s: %v", path, err))
	}
	if reg.Connections == nil {
		reg.Connections = map[string]Profile{}
	}
	return &reg, nil
}

func writeRegistry(path string, reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return adapter.NewConfigurationError("", "", fmt.Sprintf("error creating profile directory: %v", err))
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return adapter.NewConfigurationError("", "", fmt.Sprintf("error encoding profiles: %v", err))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return adapter.NewConfigurationError("", "", fmt.Sprintf("error writing profile file: %v", err))
	}
	return nil
}

// LoadMerged merges the global and local registries. Local profiles win per
// name, and a local current selection shadows the global one. Used for
// named lookups and listing.
func (s *Store) LoadMerged() (*Registry, error) {
	global, err := readRegistry(s.globalPath)
	if err != nil {
		return nil, err
	}
	local, err := readRegistry(s.localPath)
	if err != nil {
		return nil, err
	}

	merged := &Registry{Connections: map[string]Profile{}}
	if global != nil {
		for name, p := range global.Connections {
			merged.Connections[name] = p
		}
		merged.Current = global.Current
	}
	if local != nil {
		for name, p := range local.Connections {
			merged.Connections[name] = p
		}
		if local.Current != "" {
			merged.Current = local.Current
		}
	}
	return merged, nil
}

// LoadCurrent resolves the implicit current profile. A local registry, when
// present, is authoritative even if it names no current profile.
func (s *Store) LoadCurrent() (string, Profile, error) {
	reg, err := readRegistry(s.localPath)
	if err != nil {
		return "", Profile{}, err
	}
	if reg == nil {
		reg, err = readRegistry(s.globalPath)
		if err != nil {
			return "", Profile{}, err
		}
	}
	if reg == nil || reg.Current == "" {
		return "", Profile{}, adapter.NewConfigurationError("", "",
			"no current connection; save one with 'connect' or name one explicitly")
	}
	profile, ok := reg.Connections[reg.Current]
	if !ok {
		return "", Profile{}, adapter.NewConfigurationError("", "",
			fmt.Sprintf("current connection '%s' does not exist", reg.Current))
	}
	return reg.Current, profile, nil
}

// Lookup finds a named profile across local and global registries.
func (s *Store) Lookup(name string) (Profile, error) {
	reg, err := s.LoadMerged()
	if err != nil {
		return Profile{}, err
	}
	profile, ok := reg.Connections[name]
	if !ok {
		return Profile{}, adapter.NewConfigurationError("", "",
			fmt.Sprintf("connection '%s' does not exist", name))
	}
	return profile, nil
}

// Save writes a profile into the local or global registry. The first saved
// profile, or an explicit request, becomes the current selection.
func (s *Store) Save(name string, profile Profile, global bool, setCurrent bool) error {
	path := s.localPath
	if global {
		path = s.globalPath
	}
	reg, err := readRegistry(path)
	if err != nil {
		return err
	}
	if reg == nil {
		reg = &Registry{Connections: map[string]Profile{}}
	}
	reg.Connections[name] = profile
	if setCurrent || reg.Current == "" {
		reg.Current = name
	}
	return writeRegistry(path, reg)
}

// List returns resolvable profiles by name. Profiles whose password
// variable is unset are skipped with a warning so one stale entry does not
// break listing.
func (s *Store) List() (map[string]adapter.ConnectionConfig, string, error) {
	reg, err := s.LoadMerged()
	if err != nil {
		return nil, "", err
	}
	out := map[string]adapter.ConnectionConfig{}
	for name, profile := range reg.Connections {
		cfg, err := profile.Resolve()
		if err != nil {
			if s.log != nil {
				s.log.Warn("skipping connection '%s': %v", name, err)
			}
			continue
		}
		out[name] = cfg
	}
	return out, reg.Current, nil
}
