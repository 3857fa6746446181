package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/karungo/studentid/internal/detect"
	"github.com/karungo/studentid/internal/passport"
	"github.com/karungo/studentid/internal/types"
)

// ErrSourceIsOutput is returned when the card would replace its own source photo.
var ErrSourceIsOutput = errors.New("card output path is the source photo")

// Config controls how card photos are produced and where they go.
type Config struct {
	OutDir      string
	Width       int
	Height      int
	Mode        passport.Mode
	JPEGQuality int
}

// DefaultConfig writes 236x300 stretched JPEGs into outDir.
func DefaultConfig(outDir string) Config {
	return Config{
		OutDir:      outDir,
		Width:       passport.TargetWidth,
		Height:      passport.TargetHeight,
		Mode:        passport.ModeStretch,
		JPEGQuality: 95,
	}
}

// PhotoWorker turns uploaded photos into card photos. A single instance may be
// shared by many goroutines as long as its Detector is.
type PhotoWorker struct {
	Detector detect.Detector
	Config   Config
	Log      *slog.Logger
}

func New(d detect.Detector, cfg Config, log *slog.Logger) *PhotoWorker {
	if log == nil {
		log = slog.Default()
	}
	return &PhotoWorker{Detector: d, Config: cfg, Log: log}
}

// Process handles one task. Failures are reported in the result, never panicked.
// When no face is found the result points at the untouched source photo.
func (w *PhotoWorker) Process(ctx context.Context, task types.PhotoTask) types.PhotoResult {
	res := types.PhotoResult{Index: task.Index, Admission: task.Admission, SrcPath: task.SrcPath}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	out := filepath.Join(w.Config.OutDir, task.Key+".jpg")
	if samePath(out, task.SrcPath) {
		res.Err = fmt.Errorf("%w: %s", ErrSourceIsOutput, task.SrcPath)
		return res
	}

	src, err := imaging.Open(task.SrcPath, imaging.AutoOrientation(true))
	if err != nil {
		res.Err = fmt.Errorf("decode %s: %w", task.SrcPath, err)
		return res
	}

	faces, err := w.Detector.Detect(ctx, src)
	if err != nil {
		res.Err = fmt.Errorf("detect faces in %s: %w", task.SrcPath, err)
		return res
	}
	if len(faces) == 0 {
		w.Log.Debug("no face found, keeping original", "admission", task.Admission, "path", task.SrcPath)
		res.NoFace = true
		res.OutPath = task.SrcPath
		return res
	}

	face := faces[0]
	res.Face = &face

	card, err := passport.Composite(src, face, w.Config.Width, w.Config.Height, passport.WithMode(w.Config.Mode))
	if err != nil {
		res.Err = fmt.Errorf("composite %s: %w", task.SrcPath, err)
		return res
	}

	if err := saveAtomic(out, func(path string) error {
		return imaging.Save(card, path, imaging.JPEGQuality(w.Config.JPEGQuality))
	}); err != nil {
		res.Err = fmt.Errorf("save %s: %w", out, err)
		return res
	}

	w.Log.Debug("card photo written", "admission", task.Admission, "face", face.String(), "out", out)
	res.OutPath = out
	return res
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	// Catches case-insensitive filesystems and symlinked directories.
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// saveAtomic writes through a temporary sibling so readers never see a partial file.
func saveAtomic(path string, write func(string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp" + filepath.Ext(path) // keep the extension, imaging picks the format from it
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
