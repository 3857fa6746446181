//go:build gocv

package detect

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/karungo/studentid/internal/types"
	"gocv.io/x/gocv"
)

// Haar runs OpenCV's Haar cascade classifier (haarcascade_frontalface_default.xml).
type Haar struct {
	mu         sync.Mutex // CascadeClassifier is not safe for concurrent use
	classifier gocv.CascadeClassifier
}

func NewHaar(cascadePath string) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier %q", cascadePath)
	}
	return &Haar{classifier: classifier}, nil
}

func (h *Haar) Detect(ctx context.Context, img image.Image) ([]types.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	h.mu.Lock()
	faces := h.classifier.DetectMultiScale(gray)
	h.mu.Unlock()

	rects := make([]types.Rect, 0, len(faces))
	for _, f := range faces {
		rects = append(rects, types.Rect{X: f.Min.X, Y: f.Min.Y, W: f.Dx(), H: f.Dy()})
	}
	return rects, nil
}

func (h *Haar) Close() error {
	return h.classifier.Close()
}
