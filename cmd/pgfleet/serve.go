package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	pgfleet "github.com/pgfleet/pgfleet"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

func runServe(args []string) error {
	// 1. Load config
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to configuration file")
	fs.Parse(args)

	cfg, err := pgfleet.LoadConfig(pgfleet.ResolveConfigPath(*configFlag))
	if err != nil {
		return err
	}

	// 2. Setup logger. On stdio transport stdout carries the MCP
	// protocol, so logs can never go there.
	if cfg.Server.Transport != "http" && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	logger := setupLogger(cfg.Logging)

	// 3. Create the Fleet engine. No connections are opened here; each
	// tool call connects on its own.
	fleet := pgfleet.New(*cfg, logger)
	logger.Info().
		Int("database_count", len(fleet.Databases())).
		Strs("databases", fleet.Databases()).
		Msg("starting pgfleet")

	// 4. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("pgfleet", version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	pgfleet.RegisterMCPTools(mcpServer, fleet)

	// 5. Serve on the configured transport
	if cfg.Server.Transport == "http" {
		return serveHTTP(mcpServer, cfg, logger)
	}
	logger.Info().Msg("serving on stdio")
	return server.ServeStdio(mcpServer)
}

func serveHTTP(mcpServer *server.MCPServer, cfg *pgfleet.Config, logger zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if cfg.Server.HealthCheckEnabled {
		mux.HandleFunc(cfg.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", cfg.Server.Port).Msg("serving on http")
	return streamableServer.Start(addr)
}

func setupLogger(config pgfleet.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
