package passport

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/karungo/studentid/internal/types"
)

// Policy constants for a 20mm x 24mm card photo.
const (
	VerticalPadding   = 0.40
	HorizontalPadding = 0.25
	TargetWidth       = 236
	TargetHeight      = 300
)

var (
	// ErrInvalidInput is returned for non-positive target sizes, degenerate face
	// rectangles, or an empty source image.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfBounds is returned when the face lies outside the image or the clamped crop has no area left.
	ErrOutOfBounds = errors.New("crop out of bounds")
)

// Mode selects how the padded crop is placed on the canvas.
type Mode int

const (
	// ModeStretch resizes the crop to exactly fill the canvas.
	ModeStretch Mode = iota
	// ModeLetterbox keeps the crop's aspect ratio and centers it on the white canvas.
	ModeLetterbox
)

func (m Mode) String() string {
	switch m {
	case ModeLetterbox:
		return "letterbox"
	default:
		return "stretch"
	}
}

type options struct {
	mode       Mode
	background color.Color
	filter     imaging.ResampleFilter
}

// Option configures Composite.
type Option func(*options)

// WithMode sets the placement mode (default ModeStretch).
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithBackground overrides the canvas color (default white).
func WithBackground(c color.Color) Option {
	return func(o *options) { o.background = c }
}

// CropRegion pads face by the policy ratios and clamps the result to bounds.
// The returned rect is relative to bounds.Min.
func CropRegion(bounds image.Rectangle, face types.Rect) (types.Rect, error) {
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return types.Rect{}, fmt.Errorf("%w: source image has zero area", ErrInvalidInput)
	}
	if face.W <= 0 || face.H <= 0 {
		return types.Rect{}, fmt.Errorf("%w: degenerate face rectangle %s", ErrInvalidInput, face)
	}
	if face.X+face.W <= 0 || face.Y+face.H <= 0 || face.X >= bounds.Dx() || face.Y >= bounds.Dy() {
		return types.Rect{}, fmt.Errorf("%w: face %s outside %dx%d image", ErrOutOfBounds, face, bounds.Dx(), bounds.Dy())
	}

	vp := int(math.Round(float64(face.H) * VerticalPadding))
	hp := int(math.Round(float64(face.W) * HorizontalPadding))

	x := max(0, face.X-hp)
	y := max(0, face.Y-vp)
	crop := types.Rect{
		X: x,
		Y: y,
		W: min(bounds.Dx()-x, face.W+2*hp),
		H: min(bounds.Dy()-y, face.H+2*vp),
	}
	if crop.W <= 0 || crop.H <= 0 {
		return types.Rect{}, fmt.Errorf("%w: face %s in %dx%d image", ErrOutOfBounds, face, bounds.Dx(), bounds.Dy())
	}
	return crop, nil
}

// Composite turns one detected face into a card photo of exactly width x height.
func Composite(src image.Image, face types.Rect, width, height int, opts ...Option) (*image.NRGBA, error) {
	o := options{
		mode:       ModeStretch,
		background: color.White,
		filter:     imaging.Linear,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", ErrInvalidInput, width, height)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil source image", ErrInvalidInput)
	}

	bounds := src.Bounds()
	crop, err := CropRegion(bounds, face)
	if err != nil {
		return nil, err
	}

	region := imaging.Crop(src, crop.Image(bounds.Min))

	var resized *image.NRGBA
	switch o.mode {
	case ModeLetterbox:
		w, h := fitSize(region.Bounds().Dx(), region.Bounds().Dy(), width, height)
		resized = imaging.Resize(region, w, h, o.filter)
	default:
		resized = imaging.Resize(region, width, height, o.filter)
	}

	canvas := imaging.New(width, height, o.background)
	// Always (0,0) in stretch mode.
	offset := image.Pt((width-resized.Bounds().Dx())/2, (height-resized.Bounds().Dy())/2)
	return imaging.Paste(canvas, resized, offset), nil
}

// fitSize scales (w, h) up or down to the largest size inside (maxW, maxH)
// with the same aspect ratio.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := max(1, min(maxW, int(math.Round(float64(w)*scale))))
	fh := max(1, min(maxH, int(math.Round(float64(h)*scale))))
	return fw, fh
}
