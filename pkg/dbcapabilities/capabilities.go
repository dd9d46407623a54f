package dbcapabilities

import "strings"

// Engine is the canonical identifier for a database engine supported by dbplane.
// Use these constants to look up capability information.
type Engine string

const (
	PostgreSQL Engine = "postgres"
	MySQL      Engine = "mysql"
	SQLite     Engine = "sqlite"
)

// Capability describes what an engine supports so that callers can route
// operations uniformly without engine-specific branching.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see Engine constants), e.g., "postgres".
	ID Engine `json:"id"`

	// Default network port for server engines. Zero for file-based engines.
	DefaultPort int `json:"defaultPort,omitempty"`

	// Whether the engine is addressed by a file path instead of a network endpoint.
	FileBased bool `json:"fileBased"`

	// Whether the engine has a schema namespace distinct from the database.
	SupportsSchemas bool `json:"supportsSchemas"`

	// Whether the server can enumerate databases other than the connected one.
	SupportsDatabaseList bool `json:"supportsDatabaseList"`

	// Whether connections carry an authenticated user identity.
	HasUserConcept bool `json:"hasUserConcept"`

	// Schemas/databases that belong to the engine itself and are skipped
	// during catalog listings.
	SystemSchemas []string `json:"systemSchemas,omitempty"`

	// Common aliases (driver names, env labels) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical engine ID.
var All = map[Engine]Capability{
	PostgreSQL: {
		Name:                 "PostgreSQL",
		ID:                   PostgreSQL,
		DefaultPort:          5432,
		SupportsSchemas:      true,
		SupportsDatabaseList: true,
		HasUserConcept:       true,
		SystemSchemas:        []string{"pg_catalog", "information_schema", "pg_toast"},
		Aliases:              []string{"postgresql", "pg", "pgsql"},
	},
	MySQL: {
		Name:                 "MySQL",
		ID:                   MySQL,
		DefaultPort:          3306,
		SupportsSchemas:      true,
		SupportsDatabaseList: true,
		HasUserConcept:       true,
		SystemSchemas:        []string{"information_schema", "mysql", "performance_schema", "sys"},
		Aliases:              []string{"mariadb", "maria"},
	},
	SQLite: {
		Name:           "SQLite",
		ID:             SQLite,
		FileBased:      true,
		SystemSchemas:  []string{"sqlite_master", "sqlite_temp_master"},
		Aliases:        []string{"sqlite3"},
		HasUserConcept: false,
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical Engine.
var nameToID map[string]Engine

func init() {
	nameToID = make(map[string]Engine, len(All)*2)
	for id, cap := range All {
		nameToID[strings.ToLower(string(id))] = id
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
		for _, a := range cap.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseEngine attempts to resolve an arbitrary engine name (canonical id,
// alias, or product name) to a canonical Engine. Returns false if unknown.
func ParseEngine(name string) (Engine, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns the Capability for a canonical engine ID.
func Get(id Engine) (Capability, bool) {
	cap, ok := All[id]
	return cap, ok
}

// MustGet returns the Capability for a canonical engine ID or panics if unknown.
func MustGet(id Engine) Capability {
	cap, ok := All[id]
	if !ok {
		panic("dbcapabilities: unknown engine: " + string(id))
	}
	return cap
}

// IDs returns the canonical engine IDs in stable order.
func IDs() []Engine {
	return []Engine{PostgreSQL, MySQL, SQLite}
}

// IsFileBased reports whether the engine is addressed by a file path.
func IsFileBased(id Engine) bool {
	cap, ok := All[id]
	return ok && cap.FileBased
}

// SupportsSchemas reports whether the engine has a schema namespace.
func SupportsSchemas(id Engine) bool {
	cap, ok := All[id]
	return ok && cap.SupportsSchemas
}
