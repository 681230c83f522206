// Package pgfleet provides read-only inspection of a fleet of PostgreSQL
// databases for AI agents through the Model Context Protocol (MCP).
//
// It exposes five tools (ExecuteQuery, GetTableSchema, ListDatabases,
// GetDatabaseInfo, and GetAllTableSchemas) over a named set of databases
// loaded from configuration. Every operation opens a fresh connection,
// does its work, and closes it; there is no pooling and no cross-call
// connection state.
//
// Writes are refused by a cooperative textual gate: after stripping SQL
// comments, a query must open with a read-only keyword (SELECT, WITH,
// EXPLAIN, SHOW, DESCRIBE, VALUES) and must not contain a write keyword
// anywhere as a whole word. The gate is a guardrail against accidental
// writes by well-behaved agents, not a security boundary; grant the
// configured roles read-only privileges for real enforcement.
//
// # Library Usage
//
//	cfg, err := pgfleet.LoadConfig(pgfleet.ResolveConfigPath(""))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fleet := pgfleet.New(*cfg, logger)
//
//	// Use directly
//	result := fleet.ExecuteQuery(ctx, "SELECT * FROM users LIMIT 10", "orders")
//
//	// Or register as MCP tools
//	pgfleet.RegisterMCPTools(mcpServer, fleet)
//
// # Caveats
//
// Queries run without a statement timeout; a long-running SELECT occupies
// its connection until the server closes it or the context is cancelled.
// Table schemas returned by GetTableSchema are cached for the life of the
// process and never refreshed, so a restart is required to observe DDL
// changes through that tool.
package pgfleet
