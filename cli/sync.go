// ABOUTME: Sync CLI commands: one-shot scan and the periodic daemon
// ABOUTME: The daemon loops a full scan on a ticker until interrupted
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

// SyncRunCommand performs a single full reconciliation scan.
func SyncRunCommand(database *sql.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()
	engine, err := buildEngine(ctx, database, cfg)
	if err != nil {
		return err
	}

	stats, err := engine.FullScan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printStats(stats)
	return nil
}

// SyncDaemonCommand runs full scans on a fixed interval until interrupted.
// One scan runs immediately on startup.
func SyncDaemonCommand(database *sql.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	interval := fs.Duration("interval", time.Duration(cfg.SyncInterval)*time.Second, "Time between scans")
	_ = fs.Parse(args)

	if *interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", *interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, database, cfg)
	if err != nil {
		return err
	}

	log.Printf("Sync daemon started, scanning every %s", *interval)

	runScan(ctx, engine)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runScan(ctx, engine)
		case <-ctx.Done():
			log.Println("Sync daemon shutting down")
			return nil
		}
	}
}

func runScan(ctx context.Context, engine *sync.Engine) {
	stats, err := engine.FullScan(ctx)
	if err != nil {
		log.Printf("Scan failed: %v", err)
		return
	}
	printStats(stats)
}

func printStats(stats models.ScanStats) {
	log.Printf("Scan complete: %d leads checked, %d cards created, %d statuses updated, %d errors",
		stats.LeadsChecked, stats.CardsCreated, stats.StatusesUpdated, stats.Errors)
}
