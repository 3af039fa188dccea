package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/upload"
	"github.com/claude/mapty/internal/workout"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to a JSON workouts export (required)")
	migrations := flag.String("migrations", "migrations", "path to migration files (postgres store)")
	serverURL := flag.String("server", "", "push to a running Mapty server instead of writing the store directly")
	merge := flag.Bool("merge", false, "keep stored workouts and add only unknown ids")
	dryRun := flag.Bool("dry-run", false, "validate and report counts without writing to the store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-import [-config config.yaml | -server <URL>] -file workouts.json [-merge] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Error("failed to read export", "path", *filePath, "error", err)
		os.Exit(1)
	}
	incoming, err := storage.Decode(data)
	if err != nil {
		log.Error("export is not a valid workouts snapshot", "path", *filePath, "error", err)
		os.Exit(1)
	}
	log.Info("export parsed", "workouts", len(incoming))

	if *serverURL != "" {
		if *dryRun {
			log.Info("DRY RUN mode, nothing sent", "workouts", len(incoming))
			return
		}
		res, err := upload.NewClient(*serverURL).SendSnapshot(data, *merge)
		if err != nil {
			log.Error("upload failed", "server", *serverURL, "error", err)
			os.Exit(1)
		}
		log.Info("import complete", "server", *serverURL, "workouts", res.Workouts)
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

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

	snaps := storage.NewSnapshots(kv)
	records := incoming
	if *merge {
		existing, err := snaps.Load(ctx)
		if err != nil {
			log.Error("stored workouts unreadable, refusing to merge", "error", err)
			os.Exit(1)
		}
		records = workout.MergeByID(existing, incoming)
		log.Info("merged", "stored", len(existing), "added", len(records)-len(existing))
	}

	if *dryRun {
		log.Info("DRY RUN mode, nothing written", "workouts", len(records))
		return
	}

	if err := snaps.Save(ctx, records); err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete", "workouts", len(records))
}
