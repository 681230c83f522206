package main

import (
	"flag"
	"fmt"
	"os"
)

// configTemplate is the starter config written by 'pgfleet init'. Keep it
// in sync with the Config struct; cmd tests load it through LoadConfig.
const configTemplate = `# pgfleet configuration.
#
# Each entry under databases: is one logical database, addressed by its key
# in every tool call. host, port, user, and password are required; database
# defaults to the entry key when omitted.
databases:
  example:
    host: localhost
    port: 5432
    user: readonly
    password: changeme
    # database: example

logging:
  # debug, info, warn, or error
  level: info
  # json or text
  format: json
  # stderr, stdout, or a file path
  output: stderr

server:
  # stdio or http
  transport: stdio
  # http transport only
  port: 8080
  health_check_enabled: false
  health_check_path: /healthz
`

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configFlag := fs.String("config", "pgfleet.yaml", "Path to write the starter config")
	fs.Parse(args)

	path := *configFlag
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists, not overwriting", path)
	}

	// 0600: the file holds database passwords.
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	fmt.Println("Edit it to add your databases, then run 'pgfleet check'.")
	return nil
}
