// ABOUTME: Standalone snapshot exporter
// ABOUTME: Seeds a store from fixtures and writes it to a SQLite file, with an optional backup of the previous file

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/db"
	"github.com/harperreed/leadpipe/store"
)

func main() {
	cfg := config.Load()
	dbPath := flag.String("db", cfg.ExportPath, "Path to the export database")
	fixturesDir := flag.String("fixtures", cfg.FixturesDir, "Directory with fixture overrides")
	backup := flag.Bool("backup", true, "Back up an existing export before overwriting it")
	flag.Parse()

	if err := export(*dbPath, *fixturesDir, *backup); err != nil {
		log.Fatal("Export failed", "err", err)
	}
}

func export(dbPath, fixturesDir string, createBackup bool) error {
	if createBackup {
		if err := backupFile(dbPath); err != nil {
			return err
		}
	}

	fixtures, err := store.LoadFixtures(fixturesDir)
	if err != nil {
		return err
	}
	s := store.New(store.Options{Latency: store.NoLatency, Fixtures: fixtures})

	database, err := db.OpenExport(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	res, err := db.ExportSnapshot(context.Background(), database, s.Snapshot())
	if err != nil {
		return err
	}
	log.Info("Export completed", "path", dbPath, "id", res.ID, "leads", res.Leads, "deals", res.Deals, "activities", res.Activities)
	return nil
}

func backupFile(path string) error {
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}
	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, input, 0644); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	log.Info("Backup created", "path", backupPath)
	return nil
}
