package pgfleet_test

import (
	"reflect"
	"testing"

	pgfleet "github.com/pgfleet/pgfleet"
)

func TestNew_ValidConfig(t *testing.T) {
	t.Parallel()
	expectNoPanic(t, func() {
		fleet := pgfleet.New(validConfig(), testLogger())
		if fleet == nil {
			t.Fatal("expected a Fleet")
		}
	})
}

func TestNew_ZeroDatabases(t *testing.T) {
	t.Parallel()
	// An empty fleet is legal; every call then reports an unknown database.
	fleet := pgfleet.New(pgfleet.Config{}, testLogger())
	if got := fleet.Databases(); len(got) != 0 {
		t.Fatalf("expected no databases, got %v", got)
	}
}

func TestNew_PanicsOnMissingHost(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	db := cfg.Databases["orders"]
	db.Host = ""
	cfg.Databases["orders"] = db

	expectPanic(t, "host must be non-empty", func() {
		pgfleet.New(cfg, testLogger())
	})
}

func TestNew_PanicsOnZeroPort(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	db := cfg.Databases["orders"]
	db.Port = 0
	cfg.Databases["orders"] = db

	expectPanic(t, "port must be > 0", func() {
		pgfleet.New(cfg, testLogger())
	})
}

func TestNew_PanicsOnMissingUser(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	db := cfg.Databases["orders"]
	db.User = ""
	cfg.Databases["orders"] = db

	expectPanic(t, "user must be non-empty", func() {
		pgfleet.New(cfg, testLogger())
	})
}

func TestNew_PanicsOnMissingPassword(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	db := cfg.Databases["orders"]
	db.Password = ""
	cfg.Databases["orders"] = db

	expectPanic(t, "password must be non-empty", func() {
		pgfleet.New(cfg, testLogger())
	})
}

func TestDatabases_SortedNames(t *testing.T) {
	t.Parallel()
	cfg := pgfleet.Config{
		Databases: map[string]pgfleet.DatabaseConfig{
			"zeta":  {Host: "h", Port: 1, User: "u", Password: "p"},
			"alpha": {Host: "h", Port: 1, User: "u", Password: "p"},
			"mid":   {Host: "h", Port: 1, User: "u", Password: "p"},
		},
	}
	fleet := pgfleet.New(cfg, testLogger())

	want := []string{"alpha", "mid", "zeta"}
	if got := fleet.Databases(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
