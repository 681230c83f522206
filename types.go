package pgfleet

import "time"

// QueryResult is the outcome of ExecuteQuery. All failures (gate
// rejections, unknown databases, connection and SQL errors) are placed in
// Error; callers only ever inspect the result, never a Go error. Data is
// non-nil exactly when Success is true; a statement that produces no rows
// yields an empty, non-nil Data.
type QueryResult struct {
	Success       bool                     `json:"success"`
	Data          []map[string]interface{} `json:"data,omitzero"`
	RowsCount     int                      `json:"rows_count"`
	ExecutionTime float64                  `json:"execution_time"`
	Error         string                   `json:"error,omitempty"`
	Database      string                   `json:"database"`
}

// Column describes a single table column, named after the
// information_schema.columns fields it is read from. Optional fields are
// pointers so that absent values serialize as JSON null.
type Column struct {
	Name             string  `json:"column_name"`
	DataType         string  `json:"data_type"`
	IsNullable       bool    `json:"is_nullable"`
	Default          *string `json:"column_default"`
	MaxLength        *int    `json:"character_maximum_length"`
	NumericPrecision *int    `json:"numeric_precision"`
	NumericScale     *int    `json:"numeric_scale"`
}

// Index describes a single index as reported by pg_indexes.
type Index struct {
	Name       string `json:"indexname"`
	Definition string `json:"indexdef"`
}

// TableSchema is the outcome of GetTableSchema. Successful results are
// cached for the lifetime of the process and returned verbatim on later
// calls, CachedAt included.
type TableSchema struct {
	Success   bool      `json:"success"`
	TableName string    `json:"table_name"`
	Database  string    `json:"database"`
	Columns   []Column  `json:"columns,omitzero"`
	Indexes   []Index   `json:"indexes,omitzero"`
	CachedAt  time.Time `json:"cached_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// TableDef pairs the columns and indexes of one table in the
// GetAllTableSchemas output. Both slices are always non-nil; a table known
// only through its indexes still appears, with Columns empty.
type TableDef struct {
	Columns []Column `json:"columns"`
	Indexes []Index  `json:"indexes"`
}

// DatabaseSchemas is the outcome of GetAllTableSchemas.
type DatabaseSchemas struct {
	Success     bool                `json:"success"`
	Database    string              `json:"database"`
	Tables      map[string]TableDef `json:"tables,omitzero"`
	TablesCount int                 `json:"tables_count,omitzero"`
	Error       string              `json:"error,omitempty"`
}

// ConnectionInfo is the sanitized connection summary echoed in status
// outputs. The password is never included.
type ConnectionInfo struct {
	Host     string `json:"host"`
	Database string `json:"database"`
	User     string `json:"user"`
}

// DatabaseStatus describes one configured database in the ListDatabases
// output. When the probe fails, Available is false and only Error and the
// connection summary are populated.
type DatabaseStatus struct {
	DatabaseName     string         `json:"database_name,omitempty"`
	CurrentUser      string         `json:"current_user,omitempty"`
	Version          string         `json:"version,omitempty"`
	SizeBytes        int64          `json:"size_bytes,omitzero"`
	TablesCount      int            `json:"tables_count,omitzero"`
	ConnectionConfig ConnectionInfo `json:"connection_config"`
	Available        bool           `json:"available"`
	Error            string         `json:"error,omitempty"`
}

// ServerInfo is the fixed status block reported by GetDatabaseInfo.
type ServerInfo struct {
	DatabaseName string `json:"database_name"`
	CurrentUser  string `json:"current_user"`
	Version      string `json:"version"`
	SizeBytes    int64  `json:"size_bytes"`
}

// TableSize is one row of the per-table size listing in GetDatabaseInfo,
// largest table first.
type TableSize struct {
	TableName string `json:"tablename"`
	Size      string `json:"size"`
}

// DatabaseInfo is the outcome of GetDatabaseInfo. ConnectionConfig is nil
// only when the database name is not configured at all.
type DatabaseInfo struct {
	Success          bool            `json:"success"`
	Database         string          `json:"database"`
	Info             *ServerInfo     `json:"info,omitempty"`
	Tables           []TableSize     `json:"tables,omitzero"`
	TablesCount      int             `json:"tables_count,omitzero"`
	ConnectionConfig *ConnectionInfo `json:"connection_config,omitempty"`
	Error            string          `json:"error,omitempty"`
}
