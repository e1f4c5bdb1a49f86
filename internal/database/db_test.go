package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tradedesk/internal/config"
)

func openTemp(t *testing.T) (string, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg.DBPath(), cfg
}

func TestDSN(t *testing.T) {
	cfg := config.Default()
	cfg.BusyTimeoutMS = 1234
	dsn := DSN("/tmp/x.db", cfg)
	for _, want := range []string{"file:/tmp/x.db?", "busy_timeout%281234%29", "foreign_keys%281%29", "journal_mode%28WAL%29", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	path, cfg := openTemp(t)
	db, err := OpenPath(path, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	// Hold two connections at once so both come from the pool.
	c1, err := db.Connx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	c2, err := db.Connx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	for i, c := range []interface {
		GetContext(context.Context, interface{}, string, ...interface{}) error
	}{c1, c2} {
		var fk int
		if err := c.GetContext(ctx, &fk, "PRAGMA foreign_keys"); err != nil || fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, err %v", i, fk, err)
		}
		var mode string
		if err := c.GetContext(ctx, &mode, "PRAGMA journal_mode"); err != nil || mode != "wal" {
			t.Errorf("conn %d: journal_mode = %q, err %v", i, mode, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path, cfg := openTemp(t)
	db, err := OpenPath(path, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db); err != nil {
			t.Fatalf("migrate %d: %v", i, err)
		}
	}
	var tables []string
	if err := db.SelectContext(ctx, &tables, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"); err != nil {
		t.Fatal(err)
	}
	want := "audit_log,clients,daily_rates,employees,offers,purchase_orders,quotes,sales_orders,vendors"
	if got := strings.Join(tables, ","); got != want {
		t.Errorf("tables = %s, want %s", got, want)
	}
}

func TestSeedAdmin(t *testing.T) {
	path, cfg := openTemp(t)
	db, err := OpenPath(path, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := SeedAdmin(ctx, db, "first-pass"); err != nil {
		t.Fatal(err)
	}
	var hash string
	if err := db.GetContext(ctx, &hash, "SELECT password_hash FROM employees WHERE emp_id = ?", AdminID); err != nil {
		t.Fatal(err)
	}
	// Reseeding keeps the original password.
	if err := SeedAdmin(ctx, db, "second-pass"); err != nil {
		t.Fatal(err)
	}
	var again string
	db.GetContext(ctx, &again, "SELECT password_hash FROM employees WHERE emp_id = ?", AdminID)
	if again != hash {
		t.Error("reseed changed the admin password")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	path, cfg := openTemp(t)
	db, err := OpenPath(filepath.Clean(path), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatal(err)
	}
	_, err = db.ExecContext(ctx, "INSERT INTO quotes (quote_id, cli_id, inquiry_mpn) VALUES ('Q1', 'C999', 'X')")
	if err == nil || !strings.Contains(err.Error(), "FOREIGN KEY") {
		t.Errorf("expected foreign key failure, got %v", err)
	}
}
