package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karungo/studentid/internal/utils"
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:         "assign <admission_number> <photo>",
	Short:       "Attach a card photo to a stored student by hand",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{requiresDB: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		runAssign(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}

func runAssign(ctx context.Context, admission, photo string) {
	abs, err := filepath.Abs(photo)
	if err != nil {
		utils.Die("Invalid photo path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		utils.Die("Photo file is not readable", err)
	}

	if err := DB.SetPhoto(ctx, admission, abs); err != nil {
		utils.Die("Failed to assign photo", err)
	}

	fmt.Printf("✅ Student %s now uses '%s'\n", admission, abs)
}
