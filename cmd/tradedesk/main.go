package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/powerman/structlog"

	"tradedesk/internal/audit"
	"tradedesk/internal/config"
	"tradedesk/internal/database"
	"tradedesk/internal/server"
	"tradedesk/internal/store"
	"tradedesk/internal/websocket"
)

var log = structlog.New(structlog.KeyUnit, "main")

func main() {
	configPath := flag.String("config", "tradedesk.yaml", "config file (.yaml or .toml)")
	retention := flag.Int("audit-retention-days", 365, "delete audit entries older than this; 0 keeps them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	structlog.DefaultLogger.SetLogLevel(structlog.ParseLevel(logLevel(cfg.LogLevel)))
	log.Info("starting", "env", cfg.Env, "db", cfg.DBPath(), "addr", cfg.Addr)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer log.ErrIfFail(db.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	s := store.New(db, cfg, store.WithNotifier(hub), store.WithLogger(structlog.New(structlog.KeyUnit, "store")))
	if err := s.InitSchema(ctx); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedAdmin(ctx, db, cfg.AdminPassword); err != nil {
		log.Fatal(err)
	}

	if *retention > 0 {
		go cleanupAudit(ctx, s, *retention)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, s, hub).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BatchTimeout()+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.PrintErr("shutdown", "err", err)
		}
	}()

	log.Info("listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Info("stopped")
}

// cleanupAudit trims the audit log once at startup and then daily.
func cleanupAudit(ctx context.Context, s *store.Store, days int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := audit.CleanupOldAuditLogs(ctx, s.DB(), days)
		if err != nil {
			log.Warn("audit cleanup failed", "err", err)
		} else if n > 0 {
			log.Info("audit cleanup", "deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func logLevel(name string) string {
	switch strings.ToLower(name) {
	case "debug", "dbg":
		return structlog.DBG.String()
	case "warn", "warning", "wrn":
		return structlog.WRN.String()
	case "error", "err":
		return structlog.ERR.String()
	}
	return structlog.INF.String()
}

func init() {
	structlog.DefaultLogger.
		SetLogLevel(structlog.INF).
		SetPrefixKeys(
			structlog.KeyApp, structlog.KeyPID, structlog.KeyLevel, structlog.KeyUnit, structlog.KeyTime,
		).
		SetDefaultKeyvals(
			structlog.KeyApp, filepath.Base(os.Args[0]),
			structlog.KeySource, structlog.Auto,
		).
		SetSuffixKeys(
			structlog.KeyStack,
		).
		SetSuffixKeys(structlog.KeySource).
		SetKeysFormat(map[string]string{
			structlog.KeyTime:   " %[2]s",
			structlog.KeySource: " %6[2]s",
			structlog.KeyUnit:   " %6[2]s",
		}).SetTimeFormat("15:04:05")
}
