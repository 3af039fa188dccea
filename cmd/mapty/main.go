package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/view"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrations := flag.String("migrations", "migrations", "path to migration files (postgres store)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Mapty starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open store
	ctx := context.Background()
	kv, err := storage.Open(ctx, storage.Options{
		Driver:     cfg.Store.Driver,
		Path:       cfg.Store.Path,
		DSN:        cfg.Database.DSN(),
		Migrations: *migrations,
	}, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	// Build the application and restore the saved workouts
	a := app.New(storage.NewSnapshots(kv), view.Options{
		BulkThreshold: cfg.View.BulkThreshold,
		Zoom:          cfg.Map.Zoom,
		FitPadding:    cfg.Map.FitPadding,
	}, log)
	a.Load(ctx)

	// The map waits for one position fix: from config, or posted by the browser
	var loc geo.Locator
	var browser *geo.Browser
	if cfg.Map.Home != nil {
		loc = geo.Static{Position: *cfg.Map.Home}
	} else {
		browser = geo.NewBrowser()
		loc = browser
	}
	mapCtx, cancelMap := context.WithCancel(ctx)
	defer cancelMap()
	go func() {
		if err := a.InitMap(mapCtx, loc); err != nil {
			log.Warn("map unavailable", "error", err)
		}
	}()

	// Create server
	srv := server.New(a, browser, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcp.New(mcp.Local{App: a}, Version, log)))
	if cfg.Server.WebDir != "" {
		srv.SetFrontend(os.DirFS(cfg.Server.WebDir))
		log.Info("serving frontend", "dir", cfg.Server.WebDir)
	}

	// Start server: tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
