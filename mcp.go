package pgfleet

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the pgfleet tool set on the given MCP server.
// Every tool reports its outcome as indented JSON in a text content block,
// failed outcomes included; a call only becomes a protocol-level tool error
// when a required argument is missing.
func RegisterMCPTools(mcpServer *server.MCPServer, fleet *Fleet) {
	// ExecuteQuery tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT, WITH, EXPLAIN, SHOW, DESCRIBE, VALUES) against a configured database. Returns rows as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute. Write statements are rejected."),
		),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("Name of the configured database to query"),
		),
	)

	mcpServer.AddTool(executeQueryTool, fleet.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		database, err := req.RequireString("database")
		if err != nil {
			return mcp.NewToolResultError("database parameter is required"), nil
		}
		return toolResultJSON(fleet.ExecuteQuery(ctx, query, database), "query result")
	}))

	// GetTableSchema tool
	getTableSchemaTool := mcp.NewTool("get_table_schema",
		mcp.WithDescription("Get column definitions and indexes for a table. Results are cached for the lifetime of the server."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("Name of the table to describe"),
		),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("Name of the configured database"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(getTableSchemaTool, fleet.loggedToolHandler("get_table_schema", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError("table_name parameter is required"), nil
		}
		database, err := req.RequireString("database")
		if err != nil {
			return mcp.NewToolResultError("database parameter is required"), nil
		}
		return toolResultJSON(fleet.GetTableSchema(ctx, tableName, database), "table schema")
	}))

	// ListDatabases tool
	listDatabasesTool := mcp.NewTool("list_databases",
		mcp.WithDescription("List all configured databases with availability, server version, total size, and table count."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listDatabasesTool, fleet.loggedToolHandler("list_databases", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResultJSON(fleet.ListDatabases(ctx), "database list")
	}))

	// GetDatabaseInfo tool
	getDatabaseInfoTool := mcp.NewTool("get_database_info",
		mcp.WithDescription("Get server information and per-table sizes for one configured database."),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("Name of the configured database"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(getDatabaseInfoTool, fleet.loggedToolHandler("get_database_info", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, err := req.RequireString("database")
		if err != nil {
			return mcp.NewToolResultError("database parameter is required"), nil
		}
		return toolResultJSON(fleet.GetDatabaseInfo(ctx, database), "database info")
	}))

	// GetAllTableSchemas tool
	getAllTablesSchemasTool := mcp.NewTool("get_all_tables_schemas",
		mcp.WithDescription("Get column definitions and indexes for every table in the public schema using two bulk queries."),
		mcp.WithString("database",
			mcp.Required(),
			mcp.Description("Name of the configured database"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(getAllTablesSchemasTool, fleet.loggedToolHandler("get_all_tables_schemas", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		database, err := req.RequireString("database")
		if err != nil {
			return mcp.NewToolResultError("database parameter is required"), nil
		}
		return toolResultJSON(fleet.GetAllTableSchemas(ctx, database), "all table schemas")
	}))
}

// toolResultJSON marshals an outcome as indented JSON text. This is the
// single serialization path for tool responses, success or failure.
func toolResultJSON(v interface{}, what string) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal " + what), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (f *Fleet) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		f.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
