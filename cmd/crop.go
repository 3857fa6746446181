package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karungo/studentid/internal/detect"
	"github.com/karungo/studentid/internal/match"
	"github.com/karungo/studentid/internal/passport"
	"github.com/karungo/studentid/internal/types"
	"github.com/karungo/studentid/internal/utils"
	"github.com/karungo/studentid/internal/worker"
	"github.com/spf13/cobra"
)

var cropOpts Options

var cropCmd = &cobra.Command{
	Use:   "crop <photo>",
	Short: "Crop a single photo into a 236x300 card photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCrop(cmd.Context(), args[0], cropOpts)
	},
}

func init() {
	cropCmd.Flags().StringVarP(&cropOpts.OutDir, "out-dir", "o", "cards", "Directory for the card photo")
	cropCmd.Flags().StringVar(&cropOpts.Detector, "detector", detect.KindPigo, "Face detector: pigo or haar (needs -tags gocv)")
	cropCmd.Flags().StringVarP(&cropOpts.CascadePath, "cascade", "c", cascadeDefault(), "Path to the detector cascade file (env STUDENTID_CASCADE; pigo has a built-in default, haar requires one)")
	cropCmd.Flags().StringVar(&cropOpts.FaceOverride, "face", "", "Skip detection and use this face rectangle: x,y,w,h")
	cropCmd.Flags().BoolVar(&cropOpts.Letterbox, "letterbox", false, "Keep aspect ratio and pad with white instead of stretching")
	cropCmd.Flags().IntVarP(&cropOpts.JPEGQuality, "quality", "q", 95, "JPEG quality (1-100)")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(ctx context.Context, photoPath string, opts Options) error {
	if info, err := os.Stat(photoPath); err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", photoPath)
		}
		utils.ShowError("Input photo is not readable", err)
		return err
	}

	d, err := openDetector(opts)
	if err != nil {
		utils.ShowError("Failed to start face detector", err)
		return err
	}
	defer d.Close()

	w := worker.New(d, workerConfig(opts), Log)
	key := match.FileKey(photoPath)
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(photoPath), filepath.Ext(photoPath))
	}

	res := w.Process(ctx, types.PhotoTask{Key: key, Admission: key, SrcPath: photoPath})
	if res.Err != nil {
		utils.ShowError("Failed to crop photo", res.Err)
		return res.Err
	}
	if res.NoFace {
		fmt.Fprintf(os.Stderr, "🙈 No face found in %s, keeping the original.\n", photoPath)
		fmt.Println(res.OutPath)
		return nil
	}

	fmt.Fprintf(os.Stderr, "✅ Face %s -> %s\n", res.Face, res.OutPath)
	fmt.Println(res.OutPath)
	return nil
}

// openDetector honors a fixed --face rectangle before loading any model.
func openDetector(opts Options) (detect.Detector, error) {
	if opts.FaceOverride != "" {
		r, err := detect.ParseRect(opts.FaceOverride)
		if err != nil {
			return nil, err
		}
		return detect.Static{r}, nil
	}
	return detect.Open(opts.Detector, opts.CascadePath)
}

func workerConfig(opts Options) worker.Config {
	cfg := worker.DefaultConfig(opts.OutDir)
	if opts.Letterbox {
		cfg.Mode = passport.ModeLetterbox
	}
	if opts.JPEGQuality >= 1 && opts.JPEGQuality <= 100 {
		cfg.JPEGQuality = opts.JPEGQuality
	}
	return cfg
}
