package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karungo/studentid/internal/detect"
	"github.com/karungo/studentid/internal/match"
	"github.com/karungo/studentid/internal/roster"
	"github.com/karungo/studentid/internal/types"
	"github.com/karungo/studentid/internal/utils"
	"github.com/karungo/studentid/internal/worker"
	"github.com/lithammer/shortuuid/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var buildOpts Options

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Match photos to the roster, crop them with parallel engines and export the card roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runBuild(cmd.Context(), buildOpts)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.RosterPath, "roster", "r", "", "Path to roster .xlsx")
	buildCmd.Flags().StringSliceVarP(&buildOpts.PhotoPaths, "photos", "p", nil, "Photo files or directories (repeatable)")
	buildCmd.Flags().StringVarP(&buildOpts.OutputPath, "output", "o", "cards.xlsx", "Path to the exported roster")
	buildCmd.Flags().StringVar(&buildOpts.OutDir, "out-dir", "cards", "Directory for cropped card photos")
	buildCmd.Flags().IntVarP(&buildOpts.NumEngines, "engines", "e", 4, "Number of parallel crop workers")
	buildCmd.Flags().StringVar(&buildOpts.Detector, "detector", detect.KindPigo, "Face detector: pigo or haar (needs -tags gocv)")
	buildCmd.Flags().StringVarP(&buildOpts.CascadePath, "cascade", "c", cascadeDefault(), "Path to the detector cascade file (env STUDENTID_CASCADE; pigo has a built-in default, haar requires one)")
	buildCmd.Flags().BoolVar(&buildOpts.Letterbox, "letterbox", false, "Keep aspect ratio and pad with white instead of stretching")
	buildCmd.Flags().IntVarP(&buildOpts.JPEGQuality, "quality", "q", 95, "JPEG quality (1-100)")
	buildCmd.Flags().StringVarP(&buildOpts.Where, "where", "w", "", `Only build cards for matching students, e.g. 'Course == "DIP"'`)
	buildCmd.Flags().BoolVar(&buildOpts.SkipExport, "no-export", false, "Crop photos but do not write the roster workbook")

	buildCmd.MarkFlagRequired("roster")
	buildCmd.MarkFlagRequired("photos")
	rootCmd.AddCommand(buildCmd)
}

// runBuild orchestrates the card pipeline: roster import, photo matching, the crop pool and export.
func runBuild(ctx context.Context, opts Options) error {
	if err := validateBuildFlags(&opts); err != nil {
		utils.ShowError("Invalid flags", err)
		return err
	}

	// 1. Roster
	r, err := loadRoster(opts.RosterPath, opts.Where)
	if err != nil {
		return err
	}

	batchID := shortuuid.New()
	if DB != nil {
		if err := DB.CreateBatch(ctx, batchID, opts.RosterPath); err != nil {
			utils.ShowError("Failed to register batch", err)
			return err
		}
		if err := DB.UpsertStudents(ctx, batchID, r.Students); err != nil {
			utils.ShowError("Failed to store roster", err)
			return err
		}
	}

	// 2. Match photos by filename
	files, err := utils.ExpandInputs(opts.PhotoPaths, match.IsImage)
	if err != nil {
		utils.ShowError("Failed to list photos", err)
		return err
	}
	tasks, unmatched := match.Photos(r.Students, files)
	for _, f := range unmatched {
		Log.Warn("photo matches no student", "path", f)
	}
	fmt.Fprintf(os.Stderr, "🖼️  Matched %d of %d photos (batch %s)\n", len(tasks), len(files), batchID)

	// 3. Crop pool
	d, err := openDetector(opts)
	if err != nil {
		utils.ShowError("Failed to start face detector", err)
		return err
	}
	defer d.Close()

	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d crop workers...\n", opts.NumEngines)
	bar := progressbar.NewOptions(len(tasks),
		progressbar.OptionSetDescription("✂️  Cropping"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	w := worker.New(d, workerConfig(opts), Log)
	results := worker.Run(ctx, w, tasks, opts.NumEngines, func(res types.PhotoResult) {
		bar.Add(1)
		if res.Err != nil {
			Log.Error("photo failed", "admission", res.Admission, "path", res.SrcPath, "err", res.Err)
		}
	})
	bar.Finish()

	// 4. Attach photos to students (all workers have finished writing)
	applyResults(r.Students, results)
	summary := worker.Summarize(results)

	if DB != nil {
		// Photos already on disk and the batch outcome are recorded even after Ctrl+C.
		if err := recordResults(context.WithoutCancel(ctx), DB, batchID, results, summary); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// 5. Export
	if !opts.SkipExport {
		if err := roster.ExportFile(opts.OutputPath, r.Students); err != nil {
			utils.ShowError("Failed to export roster", err)
			return err
		}
	}

	printSummary(r, summary, len(unmatched), opts)
	return nil
}

// photoStore is the part of the store a finished batch writes to.
type photoStore interface {
	SetPhoto(ctx context.Context, admission, path string) error
	FinishBatch(ctx context.Context, id string, processed, noFace, failed int) error
}

// recordResults stores finished photos and the batch outcome. Callers pass a
// context that survives Ctrl+C so photos already written are not orphaned.
func recordResults(ctx context.Context, db photoStore, batchID string, results []types.PhotoResult, summary worker.Summary) error {
	for _, res := range results {
		if res.Err != nil || res.OutPath == "" {
			continue
		}
		if err := db.SetPhoto(ctx, res.Admission, res.OutPath); err != nil {
			utils.ShowError(fmt.Sprintf("Failed to store photo for %s", res.Admission), err)
			return err
		}
	}
	if err := db.FinishBatch(ctx, batchID, summary.Processed, summary.NoFace, summary.Failed); err != nil {
		utils.ShowError("Failed to finish batch", err)
		return err
	}
	return nil
}

// applyResults copies each successful output path onto its student.
func applyResults(students []types.Student, results []types.PhotoResult) {
	byAdmission := make(map[string]string, len(results))
	for _, res := range results {
		if res.Err == nil && res.OutPath != "" {
			byAdmission[res.Admission] = res.OutPath
		}
	}
	for i := range students {
		if p, ok := byAdmission[students[i].AdmissionNumber]; ok {
			students[i].PhotoPath = p
		}
	}
}

func printSummary(r *roster.Roster, s worker.Summary, unmatched int, opts Options) {
	missing := 0
	for _, st := range r.Students {
		if st.PhotoPath == "" {
			missing++
		}
	}

	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 BUILD SUMMARY\n")
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "✅ Cropped:            %d\n", s.Processed)
	fmt.Fprintf(os.Stderr, "🙈 No face (original): %d\n", s.NoFace)
	fmt.Fprintf(os.Stderr, "❌ Failed:             %d\n", s.Failed)
	fmt.Fprintf(os.Stderr, "❓ Unmatched photos:   %d\n", unmatched)
	fmt.Fprintf(os.Stderr, "👤 Students w/o photo: %d\n", missing)
	if !opts.SkipExport {
		fmt.Fprintf(os.Stderr, "📄 Roster written to %s\n", opts.OutputPath)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// validateBuildFlags ensures all CLI arguments are valid before starting heavy processes.
func validateBuildFlags(opts *Options) error {
	info, err := os.Stat(opts.RosterPath)
	if err != nil {
		return fmt.Errorf("roster %s: %w", opts.RosterPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("roster path %s is a directory, expected an .xlsx file", opts.RosterPath)
	}
	if len(opts.PhotoPaths) == 0 {
		return fmt.Errorf("no photo paths given")
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", opts.JPEGQuality)
	}
	outDirAbs, _ := filepath.Abs(opts.OutDir)
	for _, p := range opts.PhotoPaths {
		pAbs, _ := filepath.Abs(p)
		if pAbs == outDirAbs {
			return fmt.Errorf("--out-dir %s is also a photo input; cards would replace the source photos", opts.OutDir)
		}
	}
	if !opts.SkipExport {
		inAbs, _ := filepath.Abs(opts.RosterPath)
		outAbs, _ := filepath.Abs(opts.OutputPath)
		if inAbs == outAbs {
			return fmt.Errorf("input and output paths must be different to prevent overwriting the roster")
		}
	}
	return nil
}
