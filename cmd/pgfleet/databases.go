package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	pgfleet "github.com/pgfleet/pgfleet"

	"github.com/rs/zerolog"
)

// loadFleet builds a quiet Fleet for the one-shot inspection commands.
func loadFleet(name string, args []string) (*pgfleet.Fleet, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to configuration file")
	fs.Parse(args)

	cfg, err := pgfleet.LoadConfig(pgfleet.ResolveConfigPath(*configFlag))
	if err != nil {
		return nil, err
	}
	return pgfleet.New(*cfg, zerolog.Nop()), nil
}

func runDatabases(args []string) error {
	fleet, err := loadFleet("databases", args)
	if err != nil {
		return err
	}

	names := fleet.Databases()
	if len(names) == 0 {
		fmt.Println("No databases configured.")
		return nil
	}

	statuses := fleet.ListDatabases(context.Background())
	useColor := isTTY(os.Stdout.Fd())

	fmt.Printf("Configured databases (%d):\n\n", len(names))
	for _, name := range names {
		st := statuses[name]
		printCheck(os.Stdout, useColor, st.Available, name)
		fmt.Printf("    └─ %s / %s\n", st.ConnectionConfig.Host, st.ConnectionConfig.Database)
		if st.Available {
			fmt.Printf("       %s, %d tables, %s\n", shortVersion(st.Version), st.TablesCount, formatBytes(st.SizeBytes))
		} else {
			fmt.Printf("       %s\n", st.Error)
		}
	}
	return nil
}

func runCheck(args []string) error {
	fleet, err := loadFleet("check", args)
	if err != nil {
		return err
	}

	names := fleet.Databases()
	if len(names) == 0 {
		fmt.Println("No databases configured.")
		return nil
	}

	fmt.Printf("Testing %d database connection(s)...\n\n", len(names))
	statuses := fleet.ListDatabases(context.Background())
	useColor := isTTY(os.Stdout.Fd())

	working := 0
	for _, name := range names {
		st := statuses[name]
		printCheck(os.Stdout, useColor, st.Available, name)
		fmt.Printf("    └─ %s / %s\n", st.ConnectionConfig.Host, st.ConnectionConfig.Database)
		if st.Available {
			working++
		} else {
			fmt.Printf("       %s\n", st.Error)
		}
	}

	fmt.Printf("\n%d/%d databases available\n", working, len(names))
	if working < len(names) {
		return fmt.Errorf("%d database(s) unavailable", len(names)-working)
	}
	return nil
}

// shortVersion reduces version() output like "PostgreSQL 16.3 (Debian ...)
// on x86_64..." to "PostgreSQL 16.3".
func shortVersion(v string) string {
	if i := strings.Index(v, " ("); i > 0 {
		return v[:i]
	}
	if i := strings.Index(v, " on "); i > 0 {
		return v[:i]
	}
	return v
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
