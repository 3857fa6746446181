package detect

import (
	"context"
	_ "embed"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
	"github.com/karungo/studentid/internal/types"
)

// PigoParams tunes the pigo cascade run.
type PigoParams struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
}

// DefaultPigoParams suits passport-style portraits where the face is large.
func DefaultPigoParams() PigoParams {
	return PigoParams{
		MinSize:      40,
		MaxSize:      2000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// facefinder is pigo's frontal face cascade (MIT, github.com/esimov/pigo).
//
//go:embed cascade/facefinder
var facefinder []byte

// Pigo is a pure Go pixel-intensity-comparison detector.
type Pigo struct {
	classifier *pigo.Pigo
	params     PigoParams
}

// NewPigo unpacks the cascade at cascadePath. An empty path uses the built-in
// facefinder cascade.
func NewPigo(cascadePath string, params PigoParams) (*Pigo, error) {
	data := facefinder
	if cascadePath != "" {
		var err error
		if data, err = os.ReadFile(cascadePath); err != nil {
			return nil, fmt.Errorf("failed to read cascade file: %w", err)
		}
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &Pigo{classifier: classifier, params: params}, nil
}

func (p *Pigo) Detect(ctx context.Context, img image.Image) ([]types.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := pigo.ImgToNRGBA(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	cParams := pigo.CascadeParams{
		MinSize:     p.params.MinSize,
		MaxSize:     p.params.MaxSize,
		ShiftFactor: p.params.ShiftFactor,
		ScaleFactor: p.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := p.classifier.RunCascade(cParams, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.params.IoUThreshold)
	return toRects(dets, p.params.MinQuality), nil
}

func (p *Pigo) Close() error { return nil }

// toRects drops weak detections and converts centre/scale to boxes, best first.
func toRects(dets []pigo.Detection, minQ float32) []types.Rect {
	kept := make([]pigo.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Q >= minQ && d.Scale > 0 {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Q > kept[j].Q })

	rects := make([]types.Rect, 0, len(kept))
	for _, d := range kept {
		rects = append(rects, types.Rect{
			X: d.Col - d.Scale/2,
			Y: d.Row - d.Scale/2,
			W: d.Scale,
			H: d.Scale,
		})
	}
	return rects
}
