package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facekit/internal/config"
	"github.com/andresmejia3/facekit/internal/store"
	"github.com/spf13/cobra"
)

var (
	// cfg holds defaults plus FACEKIT_* environment overrides; flags write into it.
	cfg = config.FromEnv()
	// DB is the optional dataset ledger. It stays nil unless a connection string is configured.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
)

var errNoLedger = errors.New("dataset ledger is disabled: pass --db or set POSTGRES_HOST")

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facekit",
	Short:   "Build a face dataset from image search and serve a classifier trained on it",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// If no flag was provided, try to build the connection string from the environment
		if dbURL == "" {
			if host := os.Getenv("POSTGRES_HOST"); host != "" {
				user := os.Getenv("POSTGRES_USER")
				pass := os.Getenv("POSTGRES_PASSWORD")
				name := os.Getenv("POSTGRES_DB")
				port := os.Getenv("POSTGRES_PORT")
				if port == "" {
					port = "5432"
				}
				dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
			}
		}
		if dbURL == "" {
			return nil
		}

		var err error
		DB, err = store.New(cmd.Context(), dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string for the dataset ledger (disabled when empty)")
	pf.StringVar(&cfg.OriginalsDir, "originals", cfg.OriginalsDir, "Root folder crawled images are written under")
	pf.StringVar(&cfg.CropInputDir, "input-root", cfg.CropInputDir, "Root folder face extraction reads person folders from")
	pf.StringVar(&cfg.CroppedDir, "output-root", cfg.CroppedDir, "Root folder cropped faces are written under")
	pf.BoolVar(&cfg.DebugMode, "debug", cfg.DebugMode, "Verbose logging")
}
