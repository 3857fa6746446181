package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/karungo/studentid/internal/roster"
	"github.com/karungo/studentid/internal/utils"
	"github.com/spf13/cobra"
)

var importOpts Options

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a student roster spreadsheet and show the parsed rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runImport(cmd.Context(), importOpts)
	},
}

func init() {
	importCmd.Flags().StringVarP(&importOpts.RosterPath, "input", "i", "", "Path to roster .xlsx")
	importCmd.Flags().StringVarP(&importOpts.Where, "where", "w", "", `Filter expression, e.g. 'Course == "DIP"'`)

	importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, opts Options) error {
	r, err := loadRoster(opts.RosterPath, opts.Where)
	if err != nil {
		return err
	}

	printStudents(os.Stdout, r.Students)

	if DB != nil {
		if err := DB.UpsertStudents(ctx, "", r.Students); err != nil {
			utils.ShowError("Failed to store roster", err)
			return err
		}
		fmt.Fprintf(os.Stderr, "💾 Stored %d students.\n", len(r.Students))
	}
	return nil
}

// loadRoster parses and filters a roster, reporting skipped rows on stderr.
func loadRoster(path, where string) (*roster.Roster, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		utils.ShowError("Roster file does not exist", err)
		return nil, err
	}

	r, err := roster.Parse(path, time.Now())
	if err != nil {
		utils.ShowError("Failed to read roster", err)
		return nil, err
	}
	for _, s := range r.Skipped {
		Log.Warn("row skipped", "row", s.Row, "value", s.Value, "reason", s.Reason)
	}

	filtered, err := roster.Filter(r.Students, where)
	if err != nil {
		utils.ShowError("Invalid filter", err)
		return nil, err
	}
	r.Students = filtered

	fmt.Fprintf(os.Stderr, "📋 Roster %q: %d students, %d rows skipped\n", r.Sheet, len(r.Students), len(r.Skipped))
	return r, nil
}
