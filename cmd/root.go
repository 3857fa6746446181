package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/karungo/studentid/internal/store"
	"github.com/karungo/studentid/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for crop and build commands
type Options struct {
	RosterPath   string
	PhotoPaths   []string
	OutputPath   string
	OutDir       string
	NumEngines   int
	Detector     string
	CascadePath  string
	Letterbox    bool
	JPEGQuality  int
	Where        string
	SkipExport   bool
	FaceOverride string
}

// requiresDB marks commands that cannot run without a database.
const requiresDB = "requires-db"

var (
	// DB is the global database connection shared by subcommands.
	// It stays nil when no database is configured and the command does not need one.
	DB *store.Store
	// Log carries per-file diagnostics.
	Log = slog.Default()

	dbURL   string
	verbose bool
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "studentid",
	Short:   "Student ID card photo pipeline: roster import, face cropping, card export",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		Log = utils.NewLogger(os.Stderr, verbose)
		slog.SetDefault(Log)

		url := resolveDBURL(dbURL, os.Getenv)
		if url == "" {
			if cmd.Annotations[requiresDB] == "true" {
				return fmt.Errorf("%s needs a database: pass --db or set POSTGRES_HOST", cmd.Name())
			}
			return nil
		}

		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), url)
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

// resolveDBURL prefers the --db flag and falls back to POSTGRES_* variables.
// An empty result means "no database".
func resolveDBURL(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	host := getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		getenv("POSTGRES_USER"), getenv("POSTGRES_PASSWORD"), host, port, getenv("POSTGRES_DB"))
}

// cascadeDefault reads STUDENTID_CASCADE so deployments can pin the model path.
// Empty means the built-in pigo cascade.
func cascadeDefault() string {
	return os.Getenv("STUDENTID_CASCADE")
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
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (optional; falls back to POSTGRES_* env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-photo diagnostics")
}
