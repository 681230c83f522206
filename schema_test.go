package pgfleet

import (
	"context"
	"testing"
	"time"
)

func TestGetTableSchema_UnknownDatabase(t *testing.T) {
	t.Parallel()
	f := queryTestFleet()

	res := f.GetTableSchema(context.Background(), "users", "missing")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != `database "missing" not found in configuration` {
		t.Fatalf("unexpected error message: %q", res.Error)
	}
	if res.TableName != "users" || res.Database != "missing" {
		t.Fatalf("expected request echo, got %+v", res)
	}
	if res.Columns != nil || res.Indexes != nil {
		t.Fatal("expected no columns or indexes on failure")
	}
	if !res.CachedAt.IsZero() {
		t.Fatal("expected no cached_at on failure")
	}
}

func TestGetTableSchema_ServesCachedEntryVerbatim(t *testing.T) {
	t.Parallel()
	f := queryTestFleet()

	cachedAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	seeded := &TableSchema{
		Success:   true,
		TableName: "users",
		Database:  "main",
		Columns:   []Column{{Name: "id", DataType: "integer"}},
		Indexes:   []Index{},
		CachedAt:  cachedAt,
	}
	f.cache.setIfAbsent(cacheKey{database: "main", table: "users"}, seeded)

	got := f.GetTableSchema(context.Background(), "users", "main")
	if got != seeded {
		t.Fatal("expected the cached entry itself, not a refetch")
	}
	if !got.CachedAt.Equal(cachedAt) {
		t.Fatalf("expected the original cached_at, got %v", got.CachedAt)
	}
}

func TestGetAllTableSchemas_UnknownDatabase(t *testing.T) {
	t.Parallel()
	f := queryTestFleet()

	res := f.GetAllTableSchemas(context.Background(), "missing")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != `database "missing" not found in configuration` {
		t.Fatalf("unexpected error message: %q", res.Error)
	}
	if res.Tables != nil {
		t.Fatal("expected no tables on failure")
	}
}

// --- Bulk grouping ---

func TestGroupSchemas_MergesColumnsAndIndexes(t *testing.T) {
	t.Parallel()
	columns := []columnRow{
		{Table: "users", Column: Column{Name: "id", DataType: "integer"}},
		{Table: "users", Column: Column{Name: "email", DataType: "text"}},
		{Table: "orders", Column: Column{Name: "id", DataType: "integer"}},
	}
	indexes := []indexRow{
		{Table: "users", Index: Index{Name: "users_pkey", Definition: "CREATE UNIQUE INDEX users_pkey ON public.users USING btree (id)"}},
	}

	tables := groupSchemas(columns, indexes)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	users := tables["users"]
	if len(users.Columns) != 2 || users.Columns[0].Name != "id" || users.Columns[1].Name != "email" {
		t.Fatalf("unexpected users columns: %+v", users.Columns)
	}
	if len(users.Indexes) != 1 || users.Indexes[0].Name != "users_pkey" {
		t.Fatalf("unexpected users indexes: %+v", users.Indexes)
	}
	orders := tables["orders"]
	if len(orders.Columns) != 1 {
		t.Fatalf("unexpected orders columns: %+v", orders.Columns)
	}
	if orders.Indexes == nil || len(orders.Indexes) != 0 {
		t.Fatal("expected a non-nil empty index list for a table without indexes")
	}
}

func TestGroupSchemas_IndexOnlyTableStillAppears(t *testing.T) {
	t.Parallel()
	indexes := []indexRow{
		{Table: "ghost", Index: Index{Name: "ghost_idx", Definition: "CREATE INDEX ghost_idx ON public.ghost USING btree (x)"}},
	}

	tables := groupSchemas(nil, indexes)
	ghost, ok := tables["ghost"]
	if !ok {
		t.Fatal("expected index-only table to appear")
	}
	if ghost.Columns == nil || len(ghost.Columns) != 0 {
		t.Fatal("expected a non-nil empty column list")
	}
	if len(ghost.Indexes) != 1 {
		t.Fatalf("unexpected indexes: %+v", ghost.Indexes)
	}
}

func TestGroupSchemas_Empty(t *testing.T) {
	t.Parallel()
	tables := groupSchemas(nil, nil)
	if tables == nil {
		t.Fatal("expected a non-nil map")
	}
	if len(tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(tables))
	}
}

func TestGroupSchemas_PreservesColumnOrderWithinTable(t *testing.T) {
	t.Parallel()
	// Bulk rows arrive ordered by (table, ordinal_position); grouping must
	// not reorder them.
	columns := []columnRow{
		{Table: "t", Column: Column{Name: "first"}},
		{Table: "t", Column: Column{Name: "second"}},
		{Table: "t", Column: Column{Name: "third"}},
	}
	tables := groupSchemas(columns, nil)
	got := tables["t"].Columns
	if got[0].Name != "first" || got[1].Name != "second" || got[2].Name != "third" {
		t.Fatalf("column order changed: %+v", got)
	}
}
