// Package registry maps logical database names to connection profiles and
// opens connections on demand. Every Resolve call dials a fresh connection;
// there is no pooling and no reuse. The caller owns the returned connection
// and must close it on every path.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrUnknownDatabase is returned by Resolve when the requested name is not
// in the registry. The check happens before any network I/O.
var ErrUnknownDatabase = errors.New("database not found in configuration")

// connectTimeout bounds the connection handshake for every Resolve call.
const connectTimeout = 10 * time.Second

// Profile holds the connection parameters for one configured database.
type Profile struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConnString renders the profile in the key=value form accepted by pgx.
func (p Profile) ConnString() string {
	parts := []string{
		"host=" + quoteConnValue(p.Host),
		fmt.Sprintf("port=%d", p.Port),
		"dbname=" + quoteConnValue(p.Database),
		"user=" + quoteConnValue(p.User),
		"password=" + quoteConnValue(p.Password),
	}
	return strings.Join(parts, " ")
}

// quoteConnValue quotes a key=value setting value when it is empty or
// contains characters that would break unquoted parsing.
func quoteConnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + escaped + "'"
}

// Registry is the read-only table of configured databases. Built once from
// configuration; safe for concurrent use.
type Registry struct {
	profiles map[string]Profile
}

// New builds a Registry from the given profiles. The map is copied so later
// mutation of the argument cannot affect the Registry.
func New(profiles map[string]Profile) *Registry {
	m := make(map[string]Profile, len(profiles))
	for name, p := range profiles {
		m[name] = p
	}
	return &Registry{profiles: m}
}

// Lookup returns the profile for name and whether it exists.
func (r *Registry) Lookup(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns the configured database names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured databases.
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Resolve opens a new connection to the named database. The handshake is
// bounded by a fixed 10 second timeout. The caller must close the returned
// connection; Resolve never retains it.
func (r *Registry) Resolve(ctx context.Context, name string) (*pgx.Conn, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("database %q: %w", name, ErrUnknownDatabase)
	}

	cfg, err := pgx.ParseConfig(p.ConnString())
	if err != nil {
		return nil, fmt.Errorf("invalid connection parameters for database %q: %w", name, err)
	}
	cfg.ConnectTimeout = connectTimeout

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", name, err)
	}
	return conn, nil
}
