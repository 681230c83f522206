package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

func main() {
	// A local .env may supply PGFLEET_* variables.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		// Bare invocation starts the stdio server. MCP clients launch
		// the binary with no arguments.
		if err := runServe(nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rest := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		if err := runServe(rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "databases":
		if err := runDatabases(rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "check":
		if err := runCheck(rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(rest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pgfleet — read-only PostgreSQL MCP server for a fleet of databases")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pgfleet [serve]     Start the MCP server (stdio unless configured otherwise)")
	fmt.Println("  pgfleet databases   Show configured databases with live status")
	fmt.Println("  pgfleet check       Test connectivity to every configured database")
	fmt.Println("  pgfleet doctor      Validate the configuration and print setup snippets")
	fmt.Println("  pgfleet init        Write a starter configuration file")
	fmt.Println("  pgfleet --help      Show this help message")
	fmt.Println()
	fmt.Println("All commands accept -config <path>; otherwise the config is resolved")
	fmt.Println("from $PGFLEET_CONFIG, ./pgfleet.yaml, or ~/.config/pgfleet/config.yaml.")
}
