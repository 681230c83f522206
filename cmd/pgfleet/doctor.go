package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	pgfleet "github.com/pgfleet/pgfleet"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to configuration file")
	fs.Parse(args)

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, pgfleet.ResolveConfigPath(*configFlag))
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "pgfleet %s\n\n", version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'pgfleet doctor' again.")
		return nil
	}

	// Probe every configured database
	fmt.Fprintln(w)
	doctorConnectivity(w, useColor, config)

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the config file, printing check
// results. Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*pgfleet.Config, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid YAML
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		return nil, false
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid YAML: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, "Config file is valid YAML")

	// Check 2: Not the legacy auto-detected format
	if isLegacyConfig(raw) {
		printCheck(w, useColor, false, "Config uses named database fields")
		fmt.Fprintln(w, "      Older configs listed bare values per database and guessed their")
		fmt.Fprintln(w, "      meaning from the type. Rewrite each entry with explicit fields:")
		fmt.Fprintln(w, "      host, port, user, password, and optionally database.")
		return nil, false
	}
	printCheck(w, useColor, true, "Config uses named database fields")

	var fileCfg pgfleet.Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config matches the expected schema: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, "Config matches the expected schema")

	// Check 3: At least one database with a complete profile
	if len(fileCfg.Databases) == 0 {
		printCheck(w, useColor, false, "At least one database is configured")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("%d database(s) configured", len(fileCfg.Databases)))
	}

	names := make([]string, 0, len(fileCfg.Databases))
	for name := range fileCfg.Databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := fileCfg.Databases[name]
		missing := ""
		switch {
		case db.Host == "":
			missing = "host"
		case db.Port <= 0:
			missing = "port"
		case db.User == "":
			missing = "user"
		case db.Password == "":
			missing = "password"
		}
		if missing != "" {
			printCheck(w, useColor, false, fmt.Sprintf("databases.%s is complete: %s is missing", name, missing))
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("databases.%s is complete (%s@%s:%d)", name, db.User, db.Host, db.Port))
		}
	}

	// Check 4: Server section
	switch fileCfg.Server.Transport {
	case "", "stdio":
		printCheck(w, useColor, true, "server.transport is valid (stdio)")
	case "http":
		if fileCfg.Server.Port <= 0 {
			printCheck(w, useColor, false, "server.port is > 0 (required for http transport)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("server.transport is valid (http on port %d)", fileCfg.Server.Port))
		}
	default:
		printCheck(w, useColor, false, fmt.Sprintf("server.transport is stdio or http (got %q)", fileCfg.Server.Transport))
		allPassed = false
	}

	if fileCfg.Server.HealthCheckEnabled && fileCfg.Server.HealthCheckPath == "" {
		printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
		allPassed = false
	}

	if !allPassed {
		return nil, false
	}

	// Reload through the real loader so environment overrides apply.
	config, err := pgfleet.LoadConfig(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config loads: %v", err))
		return nil, false
	}
	return config, true
}

// isLegacyConfig detects the retired config format where each top-level
// key was a database and its fields carried no names: an integer value
// meant host and port, a string value meant user and password. The loader
// rejects such files outright; doctor explains how to migrate.
func isLegacyConfig(raw map[string]interface{}) bool {
	if len(raw) == 0 {
		return false
	}
	if _, ok := raw["databases"]; ok {
		return false
	}
	for _, v := range raw {
		entry, ok := v.(map[string]interface{})
		if !ok {
			return false
		}
		ints, strs := 0, 0
		for _, field := range entry {
			switch field.(type) {
			case int:
				ints++
			case string:
				strs++
			default:
				return false
			}
		}
		if ints == 0 || strs == 0 {
			return false
		}
	}
	return true
}

func doctorConnectivity(w io.Writer, useColor bool, config *pgfleet.Config) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}
	heading("Connectivity")
	fmt.Fprintln(w)

	fleet := pgfleet.New(*config, zerolog.Nop())
	names := fleet.Databases()
	if len(names) == 0 {
		fmt.Fprintln(w, "  No databases configured.")
		return
	}

	statuses := fleet.ListDatabases(context.Background())
	working := 0
	for _, name := range names {
		st := statuses[name]
		if st.Available {
			working++
			printCheck(w, useColor, true, fmt.Sprintf("%s (%s / %s)", name, st.ConnectionConfig.Host, st.ConnectionConfig.Database))
		} else {
			printCheck(w, useColor, false, fmt.Sprintf("%s: %s", name, st.Error))
		}
	}
	fmt.Fprintf(w, "\n  %d/%d databases available\n", working, len(names))
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *pgfleet.Config) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	if config.Server.Transport != "http" {
		subheading("Claude Code")
		fmt.Fprintf(w, "  Run this command to add the server:\n\n")
		fmt.Fprintf(w, "    claude mcp add pgfleet -- pgfleet serve\n\n")
		fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
		fmt.Fprint(w, `  {
    "mcpServers": {
      "pgfleet": {
        "command": "pgfleet",
        "args": ["serve"]
      }
    }
  }
`)
		fmt.Fprintln(w)

		subheading("Cursor (.cursor/mcp.json)")
		fmt.Fprint(w, `  {
    "mcpServers": {
      "pgfleet": {
        "command": "pgfleet",
        "args": ["serve"]
      }
    }
  }
`)
		return
	}

	url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)

	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http pgfleet %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "pgfleet": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "pgfleet": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "pgfleet": {
        "url": "%s"
      }
    }
  }
`, url)
}
