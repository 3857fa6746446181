// Package detect wraps face detectors behind a single capability so the card
// pipeline can run against a real cascade or a fixed set of rectangles.
package detect

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/karungo/studentid/internal/types"
)

// Detector finds faces in an image. Rectangles are in source pixel coordinates,
// relative to img.Bounds().Min, best candidate first.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Rect, error)
	Close() error
}

// Kinds accepted by Open.
const (
	KindPigo = "pigo"
	KindHaar = "haar"
)

// Open builds a detector of the given kind from a cascade file. Pigo falls back
// to its built-in cascade when cascadePath is empty.
func Open(kind, cascadePath string) (Detector, error) {
	switch strings.ToLower(kind) {
	case "", KindPigo:
		return NewPigo(cascadePath, DefaultPigoParams())
	case KindHaar:
		return NewHaar(cascadePath)
	default:
		return nil, fmt.Errorf("unknown detector %q (want %s or %s)", kind, KindPigo, KindHaar)
	}
}

// Static always reports the same rectangles.
type Static []types.Rect

func (s Static) Detect(ctx context.Context, _ image.Image) ([]types.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]types.Rect, len(s))
	copy(out, s)
	return out, nil
}

func (s Static) Close() error { return nil }

// ParseRect reads exactly four integers "x,y,w,h".
func ParseRect(s string) (types.Rect, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return types.Rect{}, fmt.Errorf("invalid rectangle %q, expected x,y,w,h", s)
	}
	var v [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return types.Rect{}, fmt.Errorf("invalid rectangle %q, expected x,y,w,h: %w", s, err)
		}
		v[i] = n
	}
	return types.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
