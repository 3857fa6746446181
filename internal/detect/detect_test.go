package detect

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/karungo/studentid/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRects(t *testing.T) {
	dets := []pigo.Detection{
		{Row: 100, Col: 100, Scale: 50, Q: 6.0},
		{Row: 300, Col: 200, Scale: 80, Q: 12.5},
		{Row: 10, Col: 10, Scale: 20, Q: 1.0}, // too weak
		{Row: 10, Col: 10, Scale: 0, Q: 50.0}, // degenerate
	}

	got := toRects(dets, 5.0)
	want := []types.Rect{
		{X: 160, Y: 260, W: 80, H: 80},
		{X: 75, Y: 75, W: 50, H: 50},
	}
	assert.Equal(t, want, got)
}

func TestStatic(t *testing.T) {
	s := Static{{X: 1, Y: 2, W: 3, H: 4}}
	got, err := s.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, []types.Rect{{X: 1, Y: 2, W: 3, H: 4}}, got)

	// The caller owns the returned slice.
	got[0].X = 99
	assert.Equal(t, 1, s[0].X)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Detect(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("400, 400,200,200")
	require.NoError(t, err)
	assert.Equal(t, types.Rect{X: 400, Y: 400, W: 200, H: 200}, r)

	for _, bad := range []string{"1,2,3", "1,2,3,4,5", "1,2,3,4,", "1,2,x,4", "", "1;2;3;4"} {
		_, err = ParseRect(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestOpen(t *testing.T) {
	_, err := Open("nope", "")
	assert.ErrorContains(t, err, "unknown detector")

	_, err = Open(KindPigo, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to read cascade file")
}

func TestPigo_DetectPortrait(t *testing.T) {
	img, err := pigo.GetImage(filepath.Join("testdata", "portrait.jpg"))
	require.NoError(t, err)

	d, err := NewPigo("", PigoParams{
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.2,
		ScaleFactor:  1.1,
		IoUThreshold: 0.1,
	})
	require.NoError(t, err)
	defer d.Close()

	faces, err := d.Detect(context.Background(), img)
	require.NoError(t, err)
	require.NotEmpty(t, faces)

	b := img.Bounds()
	for _, f := range faces {
		assert.Positive(t, f.W)
		assert.Equal(t, f.W, f.H)
		cx, cy := f.X+f.W/2, f.Y+f.H/2
		assert.True(t, cx >= 0 && cx < b.Dx() && cy >= 0 && cy < b.Dy(), "face %s centre outside %v", f, b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Detect(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_BuiltinCascade(t *testing.T) {
	d, err := Open(KindPigo, "")
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}
