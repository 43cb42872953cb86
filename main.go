// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/rango-polls/cliparse"
	"github.com/danielhkuo/rango-polls/db"
	"github.com/danielhkuo/rango-polls/handlers"
	"github.com/danielhkuo/rango-polls/router"
	"github.com/danielhkuo/rango-polls/session"
)

const sessionPurgeInterval = time.Hour

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect and verify
	dbConn, err := db.Open(cfg)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Drop sessions that expired while the server was down, then keep
	// purging while it runs
	sessions := session.NewStore(dbConn, cfg)
	purged, err := sessions.Purge(context.Background())
	if err != nil {
		slog.Warn("session purge failed", "error", err)
	} else if purged > 0 {
		slog.Info("Expired sessions purged", "count", purged)
	}

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go sessions.RunPurger(purgeCtx, sessionPurgeInterval)

	if err := os.MkdirAll(filepath.Join(cfg.MediaDir, handlers.ProfileImageDir), 0o755); err != nil {
		slog.Error("media directory unavailable", "path", cfg.MediaDir, "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg)

	// Create server
	server := http.Server{
		Handler: mux,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
