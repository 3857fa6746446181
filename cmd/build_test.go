package cmd

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/karungo/studentid/internal/passport"
	"github.com/karungo/studentid/internal/types"
	"github.com/karungo/studentid/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestResolveDBURL(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	assert.Equal(t, "postgres://flag", resolveDBURL("postgres://flag", env(map[string]string{"POSTGRES_HOST": "db"})))
	assert.Equal(t, "", resolveDBURL("", env(nil)))
	assert.Equal(t, "postgres://u:p@db:5432/cards", resolveDBURL("", env(map[string]string{
		"POSTGRES_HOST": "db", "POSTGRES_USER": "u", "POSTGRES_PASSWORD": "p", "POSTGRES_DB": "cards",
	})))
	assert.Equal(t, "postgres://u:p@db:6543/cards", resolveDBURL("", env(map[string]string{
		"POSTGRES_HOST": "db", "POSTGRES_USER": "u", "POSTGRES_PASSWORD": "p", "POSTGRES_DB": "cards", "POSTGRES_PORT": "6543",
	})))
}

func TestValidateBuildFlags(t *testing.T) {
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.xlsx")
	require.NoError(t, os.WriteFile(rosterPath, []byte("x"), 0644))

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "Valid options",
			opts:    Options{RosterPath: rosterPath, PhotoPaths: []string{dir}, OutputPath: "cards.xlsx", NumEngines: 2, JPEGQuality: 90},
			wantErr: false,
		},
		{
			name:    "Roster does not exist",
			opts:    Options{RosterPath: filepath.Join(dir, "nope.xlsx"), PhotoPaths: []string{dir}, JPEGQuality: 90},
			wantErr: true,
		},
		{
			name:    "Roster is directory",
			opts:    Options{RosterPath: dir, PhotoPaths: []string{dir}, JPEGQuality: 90},
			wantErr: true,
		},
		{
			name:    "No photos",
			opts:    Options{RosterPath: rosterPath, JPEGQuality: 90},
			wantErr: true,
		},
		{
			name:    "Bad quality",
			opts:    Options{RosterPath: rosterPath, PhotoPaths: []string{dir}, JPEGQuality: 0},
			wantErr: true,
		},
		{
			name:    "Card directory is a photo input",
			opts:    Options{RosterPath: rosterPath, PhotoPaths: []string{dir}, OutDir: dir, OutputPath: "cards.xlsx", JPEGQuality: 90},
			wantErr: true,
		},
		{
			name:    "Output overwrites roster",
			opts:    Options{RosterPath: rosterPath, PhotoPaths: []string{dir}, OutputPath: rosterPath, JPEGQuality: 90},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateBuildFlags(&tt.opts); (err != nil) != tt.wantErr {
				t.Errorf("validateBuildFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	opts := Options{RosterPath: rosterPath, PhotoPaths: []string{dir}, OutputPath: "cards.xlsx", NumEngines: 0, JPEGQuality: 90}
	require.NoError(t, validateBuildFlags(&opts))
	assert.Equal(t, 1, opts.NumEngines)
}

func TestApplyResults(t *testing.T) {
	students := []types.Student{
		{AdmissionNumber: "DIP/600/J22/001"},
		{AdmissionNumber: "CRT/400/S23/014"},
		{AdmissionNumber: "SHC/300/M24/100"},
	}
	results := []types.PhotoResult{
		{Admission: "DIP/600/J22/001", OutPath: "/cards/DIP600J22001.jpg"},
		{Admission: "CRT/400/S23/014", SrcPath: "/in/crt.jpg", OutPath: "/in/crt.jpg", NoFace: true},
		{Admission: "SHC/300/M24/100", Err: errors.New("boom")},
	}

	applyResults(students, results)
	assert.Equal(t, "/cards/DIP600J22001.jpg", students[0].PhotoPath)
	assert.Equal(t, "/in/crt.jpg", students[1].PhotoPath)
	assert.Equal(t, "", students[2].PhotoPath)
}

// TestRunBuild drives the whole pipeline without a database, using a fixed face
// rectangle instead of a cascade model.
func TestRunBuild(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	header := []interface{}{"No", "Name", "Gender", "Admission Number", "ID Number", "Nationality"}
	rowA := []interface{}{1, "jane doe", "f", "DIP/600/J22/001", "a1", "kenyan"}
	rowB := []interface{}{2, "ann lee", "f", "CRT/400/S23/014", "c7", "tanzanian"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &rowA))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &rowB))
	rosterPath := filepath.Join(dir, "roster.xlsx")
	require.NoError(t, f.SaveAs(rosterPath))
	f.Close()

	photos := filepath.Join(dir, "photos")
	require.NoError(t, os.Mkdir(photos, 0755))
	require.NoError(t, imaging.Save(imaging.New(600, 600, color.NRGBA{R: 200, G: 150, B: 120, A: 255}), filepath.Join(photos, "dip-600-j22-001.jpg")))
	require.NoError(t, imaging.Save(imaging.New(600, 600, color.White), filepath.Join(photos, "stranger.jpg")))

	out := filepath.Join(dir, "cards.xlsx")
	opts := Options{
		RosterPath:   rosterPath,
		PhotoPaths:   []string{photos},
		OutputPath:   out,
		OutDir:       filepath.Join(dir, "cards"),
		NumEngines:   2,
		JPEGQuality:  90,
		FaceOverride: "200,200,200,200",
	}
	require.NoError(t, runBuild(context.Background(), opts))

	card, err := imaging.Open(filepath.Join(dir, "cards", "DIP600J22001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, passport.TargetWidth, card.Bounds().Dx())
	assert.Equal(t, passport.TargetHeight, card.Bounds().Dy())

	wb, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "DIP/600/J22/001", rows[1][3])

	pics, err := wb.GetPictures("Students", "I2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	pics, err = wb.GetPictures("Students", "I3")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

type recordingStore struct {
	photos   map[string]string
	finished *worker.Summary
}

func (s *recordingStore) SetPhoto(ctx context.Context, admission, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.photos[admission] = path
	return nil
}

func (s *recordingStore) FinishBatch(ctx context.Context, id string, processed, noFace, failed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.finished = &worker.Summary{Processed: processed, NoFace: noFace, Failed: failed}
	return nil
}

func TestRecordResults_AfterInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := []types.PhotoResult{
		{Admission: "DIP/600/J22/001", OutPath: "/cards/DIP600J22001.jpg"},
		{Admission: "CRT/400/S23/014", Err: context.Canceled},
	}
	summary := worker.Summarize(results)

	db := &recordingStore{photos: map[string]string{}}
	require.NoError(t, recordResults(context.WithoutCancel(ctx), db, "batch1", results, summary))

	assert.Equal(t, map[string]string{"DIP/600/J22/001": "/cards/DIP600J22001.jpg"}, db.photos)
	require.NotNil(t, db.finished)
	assert.Equal(t, worker.Summary{Processed: 1, Failed: 1}, *db.finished)

	// A cancelled context would have lost the batch outcome.
	db = &recordingStore{photos: map[string]string{}}
	assert.ErrorIs(t, recordResults(ctx, db, "batch1", results, summary), context.Canceled)
	assert.Nil(t, db.finished)
}
