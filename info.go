package pgfleet

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgfleet/pgfleet/internal/registry"
)

const serverInfoSQL = `
SELECT
	current_database() AS database_name,
	current_user AS current_user,
	version() AS version,
	pg_database_size(current_database()) AS size_bytes
`

const tableCountSQL = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = 'public'
`

const tableSizesSQL = `
SELECT
	tablename,
	pg_size_pretty(pg_total_relation_size(schemaname || '.' || tablename)) AS size
FROM pg_tables
WHERE schemaname = 'public'
ORDER BY pg_total_relation_size(schemaname || '.' || tablename) DESC
`

// ListDatabases probes every configured database and reports one status
// entry per name, in sorted order. An unreachable database is reported as
// unavailable with its error, never as a call failure: the entries that
// did connect still carry their full status.
func (f *Fleet) ListDatabases(ctx context.Context) map[string]*DatabaseStatus {
	statuses := make(map[string]*DatabaseStatus, f.registry.Len())
	for _, name := range f.registry.Names() {
		statuses[name] = f.probeDatabase(ctx, name)
	}
	return statuses
}

func (f *Fleet) probeDatabase(ctx context.Context, name string) *DatabaseStatus {
	profile, _ := f.registry.Lookup(name)
	info := connectionInfo(profile)

	conn, err := f.registry.Resolve(ctx, name)
	if err != nil {
		f.logger.Warn().Err(err).Str("database", name).Msg("database unavailable")
		return &DatabaseStatus{Error: err.Error(), ConnectionConfig: info}
	}
	defer conn.Close(ctx)

	status, err := fetchStatus(ctx, conn)
	if err != nil {
		f.logger.Warn().Err(err).Str("database", name).Msg("database probe failed")
		return &DatabaseStatus{Error: err.Error(), ConnectionConfig: info}
	}
	status.ConnectionConfig = info
	status.Available = true
	return status
}

func fetchStatus(ctx context.Context, conn *pgx.Conn) (*DatabaseStatus, error) {
	var s DatabaseStatus
	err := conn.QueryRow(ctx, serverInfoSQL).Scan(&s.DatabaseName, &s.CurrentUser, &s.Version, &s.SizeBytes)
	if err != nil {
		return nil, err
	}
	if err := conn.QueryRow(ctx, tableCountSQL).Scan(&s.TablesCount); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetDatabaseInfo reports server identity, total size, and per-table sizes
// for one database. Failures after the name resolved still identify the
// target via connection_config; an unknown name omits it.
func (f *Fleet) GetDatabaseInfo(ctx context.Context, database string) *DatabaseInfo {
	profile, ok := f.registry.Lookup(database)
	if !ok {
		f.logger.Warn().Str("database", database).Msg("info request for unknown database")
		return &DatabaseInfo{Error: notFoundMessage(database), Database: database}
	}
	info := connectionInfo(profile)

	result, err := f.fetchDatabaseInfo(ctx, database)
	if err != nil {
		f.logger.Error().Err(err).Str("database", database).Msg("database info fetch failed")
		return &DatabaseInfo{
			Error:            err.Error(),
			Database:         database,
			ConnectionConfig: &info,
		}
	}
	result.ConnectionConfig = &info
	f.logger.Info().
		Str("database", database).
		Int("table_count", result.TablesCount).
		Msg("database info fetched")
	return result
}

func (f *Fleet) fetchDatabaseInfo(ctx context.Context, database string) (*DatabaseInfo, error) {
	conn, err := f.registry.Resolve(ctx, database)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	var server ServerInfo
	err = conn.QueryRow(ctx, serverInfoSQL).Scan(&server.DatabaseName, &server.CurrentUser, &server.Version, &server.SizeBytes)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, tableSizesSQL)
	if err != nil {
		return nil, err
	}
	tables, err := scanTableSizes(rows)
	if err != nil {
		return nil, err
	}

	return &DatabaseInfo{
		Success:     true,
		Database:    database,
		Info:        &server,
		Tables:      tables,
		TablesCount: len(tables),
	}, nil
}

func scanTableSizes(rows pgx.Rows) ([]TableSize, error) {
	defer rows.Close()
	tables := []TableSize{}
	for rows.Next() {
		var ts TableSize
		if err := rows.Scan(&ts.TableName, &ts.Size); err != nil {
			return nil, err
		}
		tables = append(tables, ts)
	}
	return tables, rows.Err()
}

// connectionInfo reduces a profile to the fields safe to echo back to
// clients. The password never leaves the registry.
func connectionInfo(p registry.Profile) ConnectionInfo {
	return ConnectionInfo{
		Host:     p.Host,
		Database: p.Database,
		User:     p.User,
	}
}
