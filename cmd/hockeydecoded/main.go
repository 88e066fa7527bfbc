package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/logging"
)

// version is set at build time via ldflags.
var version = "dev"

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"serve":   runServe,
	"initdb":  runInitDB,
	"ingest":  runIngest,
	"analyze": runAnalyze,
	"poll":    runPoll,
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch name := os.Args[1]; name {
	case "version":
		fmt.Printf("hockeydecoded %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		run, ok := commands[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
			printUsage()
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := run(ctx, os.Args[2:])
		stop()
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println(`hockeydecoded - NHL deep-dives, live dashboards and roster analysis

Usage:
  hockeydecoded <command> [flags]

Commands:
  serve      Run the website (-poll also runs the live-game poller)
  initdb     Create the schema and seed the deep-dive posts
  ingest     Download team rosters and write them to CSV
  analyze    Render the deep-dive charts from a roster CSV
  poll       Poll live NHL scores into the database
  version    Print the hockeydecoded version
  help       Show this help message

Examples:
  hockeydecoded serve -poll
  hockeydecoded ingest -teams EDM,TOR -from 1990 -to 2024 -out data/rosters.csv
  hockeydecoded ingest -all-seasons -store-players
  hockeydecoded analyze -in data/rosters.csv -out static/images/charts -publish`)
}

// loadEnv reads .env when present. Commands other than serve only need the
// database and logging keys, so they skip full site validation.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func newLogger() *logrus.Logger {
	return logging.New(logging.Options{
		Level: hockeydecoded.EnvOr("LOG_LEVEL", "info"),
		File:  hockeydecoded.EnvOr("LOG_FILE", ""),
	})
}

func openStore() (*hockeydecoded.Store, error) {
	return hockeydecoded.NewStore(
		hockeydecoded.EnvOr("DATABASE_DRIVER", hockeydecoded.DriverSQLite),
		hockeydecoded.EnvOr("DATABASE_URL", "data/hockey.db"),
	)
}

func runInitDB(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("initdb", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := loadEnv(); err != nil {
		return err
	}
	log := newLogger()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := hockeydecoded.Seed(ctx, store, log)
	if err != nil {
		return err
	}
	log.WithField("seeded", n).Info("database ready")
	return nil
}
