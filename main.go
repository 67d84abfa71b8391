// ABOUTME: Entry point for the lead/task sync service and CLI
// ABOUTME: Routes to the webhook server or sync commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/leadsync/cli"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/db"
)

const version = "1.0.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/leadsync/sync.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadsync version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.OpenDatabase(getDatabasePath(*dbPath, cfg))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *initOnly {
		log.Println("Database initialized successfully")
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "serve":
		if err := cli.ServeCommand(database, cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "sync":
		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand (run or daemon)")
			printUsage()
			os.Exit(1)
		}

		syncCommand := commandArgs[0]
		syncArgs := commandArgs[1:]

		switch syncCommand {
		case "run":
			if err := cli.SyncRunCommand(database, cfg, syncArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "daemon":
			if err := cli.SyncDaemonCommand(database, cfg, syncArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown sync command: %s\n\n", syncCommand)
			printUsage()
			os.Exit(1)
		}

	case "add-lead":
		if err := cli.AddLeadCommand(database, cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "mappings":
		if err := cli.MappingsCommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "history":
		if err := cli.HistoryCommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(dbPath string, cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return db.DefaultPath()
}

func printUsage() {
	fmt.Printf(`leadsync v%s - Lead tracker / kanban board sync

USAGE:
  leadsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/leadsync/sync.db)
  --init                 Initialize database and exit

COMMANDS:
  serve                  Start the webhook HTTP server
    --port <n>             Listen port (default: $PORT or 8000)

  sync run               Run one full reconciliation scan
  sync daemon            Run full scans on an interval
    --interval <dur>       Time between scans (default: $SYNC_INTERVAL seconds)

  add-lead               Add a lead to the tracker and sync it
    --name <name>          Lead name (required)
    --email <email>        Email address (required)
    --phone <phone>        Phone number
    --company <company>    Company name
    --status <status>      Initial status (default: New)
    --notes <notes>        Free-form notes

  mappings               List lead/card mappings
  history                List recent sync actions
    --limit <n>            Max entries (default: 50)

CONFIGURATION:
  Settings come from config.env, .env.local, or .env (first found), then the
  process environment: GOOGLE_SHEETS_ID, GOOGLE_CREDENTIALS_JSON,
  GOOGLE_SHEETS_RANGE, TRELLO_API_KEY, TRELLO_API_TOKEN, TRELLO_BOARD_ID,
  TRELLO_{NEW,CONTACTED,QUALIFIED,CLOSED}_LIST_ID, LEADSYNC_DB_PATH, PORT,
  SYNC_INTERVAL.
`, version)
}
