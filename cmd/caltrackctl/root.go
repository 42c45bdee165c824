package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/caltrack/internal/config"
	"github.com/mmynk/caltrack/internal/storage"
	"github.com/mmynk/caltrack/internal/storage/postgres"
	"github.com/mmynk/caltrack/internal/storage/sqlite"
)

var (
	dbDriver string
	dbPath   string
	dbURL    string
)

var rootCmd = &cobra.Command{
	Use:           "caltrackctl",
	Short:         "caltrackctl manages caltrack accounts and documents",
	Long:          "caltrackctl migrates the caltrack store, creates accounts, exports user documents and computes energy targets.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Storage driver: sqlite or postgres (default from DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Postgres connection URL (default from DB_URL)")
}

// withStore opens the configured store for the duration of fn. Flags win
// over the environment.
func withStore(ctx context.Context, fn func(storage.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	driver := firstNonEmpty(dbDriver, cfg.DBDriver)

	var store storage.Store
	switch driver {
	case "sqlite":
		s, err := sqlite.New(firstNonEmpty(dbPath, cfg.DBPath))
		if err != nil {
			return err
		}
		store = s
	case "postgres":
		s, err := postgres.New(ctx, firstNonEmpty(dbURL, cfg.DBURL))
		if err != nil {
			return err
		}
		store = s
	default:
		return fmt.Errorf("unknown driver %q (want sqlite or postgres)", driver)
	}
	defer store.Close()
	return fn(store)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
