package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"tradedesk/internal/config"
)

// DSN builds a modernc sqlite DSN. Pragmas are applied to every pooled
// connection, not just the first one. Transactions start IMMEDIATE so a
// read-then-write batch queues for the writer slot instead of failing on upgrade.
func DSN(path string, cfg config.Config) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout().Milliseconds()))
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

// Open connects to the database file chosen by cfg and configures the pool.
// It does not create the schema; call Migrate (or store.InitSchema) for that.
func Open(cfg config.Config) (*sqlx.DB, error) {
	return OpenPath(cfg.DBPath(), cfg)
}

// OpenPath is Open for an explicit file path.
func OpenPath(path string, cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", DSN(path, cfg))
	if err != nil {
		return nil, merry.Append(err, "open "+path)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, merry.Append(err, "ping "+path)
	}
	var fk int
	if err := db.Get(&fk, "PRAGMA foreign_keys"); err != nil || fk != 1 {
		db.Close()
		if err == nil {
			err = merry.New("foreign keys are not enforced")
		}
		return nil, merry.Append(err, "check pragmas")
	}
	return db, nil
}

// Migrate creates tables and indexes and applies column upgrades.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return merry.Appendf(err, "%s migration", t.name)
		}
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return merry.Appendf(err, "index creation: %s", idx)
		}
	}
	// Databases created before these columns existed get them added here.
	for _, m := range columnUpgrades {
		if _, err := db.ExecContext(ctx, m); err != nil {
			if !strings.Contains(err.Error(), "duplicate column") {
				return merry.Appendf(err, "column upgrade: %s", m)
			}
		}
	}
	return nil
}
