package pgfleet

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Column metadata comes from information_schema.columns. The lookup is by
// table name alone, so a table present in several schemas reports the
// union of their columns.
const tableColumnsSQL = `
SELECT
	column_name,
	data_type,
	CASE is_nullable WHEN 'YES' THEN true ELSE false END AS is_nullable,
	column_default,
	character_maximum_length,
	numeric_precision,
	numeric_scale
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position
`

const tableIndexesSQL = `
SELECT indexname, indexdef
FROM pg_indexes
WHERE tablename = $1
`

const allColumnsSQL = `
SELECT
	table_name,
	column_name,
	data_type,
	CASE is_nullable WHEN 'YES' THEN true ELSE false END AS is_nullable,
	column_default,
	character_maximum_length,
	numeric_precision,
	numeric_scale
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position
`

const allIndexesSQL = `
SELECT tablename, indexname, indexdef
FROM pg_indexes
WHERE schemaname = 'public'
ORDER BY tablename, indexname
`

// GetTableSchema reports the columns and indexes of one table. Results are
// cached per (database, table) pair for the life of the process; a cached
// entry is returned as stored, including its original cached_at stamp. A
// nonexistent table is not an error: it yields an empty column and index
// list, and that empty answer is cached like any other.
func (f *Fleet) GetTableSchema(ctx context.Context, tableName, database string) *TableSchema {
	if _, ok := f.registry.Lookup(database); !ok {
		f.logger.Warn().Str("database", database).Msg("schema request for unknown database")
		return &TableSchema{
			Error:     notFoundMessage(database),
			TableName: tableName,
			Database:  database,
		}
	}

	key := cacheKey{database: database, table: tableName}
	if cached, ok := f.cache.get(key); ok {
		f.logger.Debug().
			Str("database", database).
			Str("table", tableName).
			Msg("schema served from cache")
		return cached
	}

	schema, err := f.fetchTableSchema(ctx, tableName, database)
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("database", database).
			Str("table", tableName).
			Msg("schema fetch failed")
		return &TableSchema{
			Error:     err.Error(),
			TableName: tableName,
			Database:  database,
		}
	}

	f.logger.Info().
		Str("database", database).
		Str("table", tableName).
		Int("column_count", len(schema.Columns)).
		Int("index_count", len(schema.Indexes)).
		Msg("schema fetched")
	return f.cache.setIfAbsent(key, schema)
}

func (f *Fleet) fetchTableSchema(ctx context.Context, tableName, database string) (*TableSchema, error) {
	conn, err := f.registry.Resolve(ctx, database)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, tableColumnsSQL, tableName)
	if err != nil {
		return nil, err
	}
	columns, err := scanColumns(rows)
	if err != nil {
		return nil, err
	}

	rows, err = conn.Query(ctx, tableIndexesSQL, tableName)
	if err != nil {
		return nil, err
	}
	indexes, err := scanIndexes(rows)
	if err != nil {
		return nil, err
	}

	return &TableSchema{
		Success:   true,
		TableName: tableName,
		Database:  database,
		Columns:   columns,
		Indexes:   indexes,
		CachedAt:  time.Now(),
	}, nil
}

// GetAllTableSchemas reports columns and indexes for every table in the
// public schema using two bulk catalog queries, regardless of table count.
// Results are grouped client-side; a table that only has catalog rows on
// one side (for example an index whose table lives outside
// information_schema's view) still appears with the other list empty.
// Bulk results are never cached.
func (f *Fleet) GetAllTableSchemas(ctx context.Context, database string) *DatabaseSchemas {
	if _, ok := f.registry.Lookup(database); !ok {
		f.logger.Warn().Str("database", database).Msg("schema request for unknown database")
		return &DatabaseSchemas{Error: notFoundMessage(database), Database: database}
	}

	conn, err := f.registry.Resolve(ctx, database)
	if err != nil {
		return f.schemasError(err, database)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, allColumnsSQL)
	if err != nil {
		return f.schemasError(err, database)
	}
	columns, err := scanTableColumns(rows)
	if err != nil {
		return f.schemasError(err, database)
	}

	rows, err = conn.Query(ctx, allIndexesSQL)
	if err != nil {
		return f.schemasError(err, database)
	}
	indexes, err := scanTableIndexes(rows)
	if err != nil {
		return f.schemasError(err, database)
	}

	tables := groupSchemas(columns, indexes)
	f.logger.Info().
		Str("database", database).
		Int("table_count", len(tables)).
		Msg("all table schemas fetched")
	return &DatabaseSchemas{
		Success:     true,
		Database:    database,
		Tables:      tables,
		TablesCount: len(tables),
	}
}

func (f *Fleet) schemasError(err error, database string) *DatabaseSchemas {
	f.logger.Error().Err(err).Str("database", database).Msg("bulk schema fetch failed")
	return &DatabaseSchemas{Error: err.Error(), Database: database}
}

// columnRow and indexRow pair a catalog row with the table it belongs to,
// for client-side grouping.
type columnRow struct {
	Table  string
	Column Column
}

type indexRow struct {
	Table string
	Index Index
}

func scanColumns(rows pgx.Rows) ([]Column, error) {
	defer rows.Close()
	columns := []Column{}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.Default, &c.MaxLength, &c.NumericPrecision, &c.NumericScale); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func scanIndexes(rows pgx.Rows) ([]Index, error) {
	defer rows.Close()
	indexes := []Index{}
	for rows.Next() {
		var ix Index
		if err := rows.Scan(&ix.Name, &ix.Definition); err != nil {
			return nil, err
		}
		indexes = append(indexes, ix)
	}
	return indexes, rows.Err()
}

func scanTableColumns(rows pgx.Rows) ([]columnRow, error) {
	defer rows.Close()
	out := []columnRow{}
	for rows.Next() {
		var cr columnRow
		c := &cr.Column
		if err := rows.Scan(&cr.Table, &c.Name, &c.DataType, &c.IsNullable, &c.Default, &c.MaxLength, &c.NumericPrecision, &c.NumericScale); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func scanTableIndexes(rows pgx.Rows) ([]indexRow, error) {
	defer rows.Close()
	out := []indexRow{}
	for rows.Next() {
		var ir indexRow
		if err := rows.Scan(&ir.Table, &ir.Index.Name, &ir.Index.Definition); err != nil {
			return nil, err
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

// groupSchemas merges bulk column and index rows into per-table entries.
// Every table named on either side gets an entry with both lists non-nil.
func groupSchemas(columns []columnRow, indexes []indexRow) map[string]TableDef {
	tables := make(map[string]TableDef)
	ensure := func(name string) TableDef {
		def, ok := tables[name]
		if !ok {
			def = TableDef{Columns: []Column{}, Indexes: []Index{}}
		}
		return def
	}
	for _, cr := range columns {
		def := ensure(cr.Table)
		def.Columns = append(def.Columns, cr.Column)
		tables[cr.Table] = def
	}
	for _, ir := range indexes {
		def := ensure(ir.Table)
		def.Indexes = append(def.Indexes, ir.Index)
		tables[ir.Table] = def
	}
	return tables
}
