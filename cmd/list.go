package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/karungo/studentid/internal/roster"
	"github.com/karungo/studentid/internal/types"
	"github.com/karungo/studentid/internal/utils"
	"github.com/spf13/cobra"
)

var listWhere string

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List all students stored in the database",
	Annotations: map[string]string{requiresDB: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd.Context(), listWhere)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listWhere, "where", "w", "", `Filter expression, e.g. 'Course == "DIP"'`)
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, where string) {
	students, err := DB.ListStudents(ctx)
	if err != nil {
		utils.Die("Failed to list students", err)
	}
	students, err = roster.Filter(students, where)
	if err != nil {
		utils.Die("Invalid filter", err)
	}

	if len(students) == 0 {
		fmt.Println("No students found in database.")
		return
	}
	printStudents(os.Stdout, students)
}

func printStudents(out io.Writer, students []types.Student) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NO\tADMISSION\tNAME\tGENDER\tCOURSE\tNATIONALITY\tEXPIRES\tPHOTO")
	fmt.Fprintln(w, "--\t---------\t----\t------\t------\t-----------\t-------\t-----")

	for _, s := range students {
		photo := s.PhotoPath
		if photo == "" {
			photo = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.No, s.AdmissionNumber, s.Name, s.Gender, s.Course, s.Nationality, s.ExpiryDate.Format("2006-01-02"), photo)
	}
	w.Flush()
}
