// ABOUTME: Serve command: runs the webhook HTTP server
// ABOUTME: Graceful shutdown on SIGINT/SIGTERM with a bounded drain window
package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/handlers"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand starts the webhook server and blocks until interrupted.
func ServeCommand(database *sql.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "HTTP listen port")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, database, cfg)
	if err != nil {
		return err
	}

	e := handlers.NewServer(engine, database).Echo()
	addr := fmt.Sprintf(":%d", *port)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Printf("Webhook server listening on %s", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
