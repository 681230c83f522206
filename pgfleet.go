package pgfleet

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pgfleet/pgfleet/internal/registry"
)

// Fleet is the core engine exposing the query and introspection tools over
// a set of configured databases. All exported methods are safe for
// concurrent use from multiple goroutines: every call opens and closes its
// own connection, and the schema cache is the only shared mutable state.
type Fleet struct {
	registry *registry.Registry
	cache    *schemaCache
	logger   zerolog.Logger
}

// New creates a Fleet from config. Only the Databases section is consumed;
// Logging and Server drive the CLI, not the engine. Panics on invalid
// database entries. File-based callers are expected to have gone through
// LoadConfig, which reports the same problems as errors.
func New(config Config, logger zerolog.Logger) *Fleet {
	for name, db := range config.Databases {
		if db.Host == "" {
			panic(fmt.Sprintf("pgfleet: database %q: host must be non-empty", name))
		}
		if db.Port <= 0 {
			panic(fmt.Sprintf("pgfleet: database %q: port must be > 0", name))
		}
		if db.User == "" {
			panic(fmt.Sprintf("pgfleet: database %q: user must be non-empty", name))
		}
		if db.Password == "" {
			panic(fmt.Sprintf("pgfleet: database %q: password must be non-empty", name))
		}
	}

	return &Fleet{
		registry: registry.New(config.profiles()),
		cache:    newSchemaCache(),
		logger:   logger,
	}
}

// Databases returns the configured logical database names in sorted order.
func (f *Fleet) Databases() []string {
	return f.registry.Names()
}

// notFoundMessage is the outcome error for a database name absent from the
// configuration.
func notFoundMessage(database string) string {
	return fmt.Sprintf("database %q not found in configuration", database)
}
