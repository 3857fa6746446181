package roster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karungo/studentid/internal/types"
	"github.com/xuri/excelize/v2"
)

// Header of the exported sheet.
var Header = []string{"Id", "Name", "Gender", "Admission Number", "ID Number", "Course", "Nationality", "Expiry Date", "Photo"}

// PhotoColumn is where the card photo is embedded.
const PhotoColumn = "I"

type exportOptions struct {
	sheet       string
	photoWidth  int // px
	photoHeight int // px
	embed       bool
}

// ExportOption configures Export.
type ExportOption func(*exportOptions)

// WithSheetName sets the output sheet name (default "Students").
func WithSheetName(name string) ExportOption {
	return func(o *exportOptions) { o.sheet = name }
}

// WithPhotoBox bounds the embedded photo in pixels (default 94x120).
func WithPhotoBox(w, h int) ExportOption {
	return func(o *exportOptions) {
		o.photoWidth = w
		o.photoHeight = h
	}
}

// WithoutPhotos writes only the text columns.
func WithoutPhotos() ExportOption {
	return func(o *exportOptions) { o.embed = false }
}

// ExportFile writes the roster workbook to path.
func ExportFile(path string, students []types.Student, opts ...ExportOption) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Export(out, students, opts...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Export writes one row per student, embedding PhotoPath when set.
func Export(w io.Writer, students []types.Student, opts ...ExportOption) error {
	o := exportOptions{sheet: "Students", photoWidth: 94, photoHeight: 120, embed: true}
	for _, opt := range opts {
		opt(&o)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), o.sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(o.sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(o.sheet, "A1", PhotoColumn+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(o.sheet, "A", "H", 18); err != nil {
		return err
	}

	if o.embed {
		// Column width is in characters (~7px each), row height in points (0.75 per px).
		if err := f.SetColWidth(o.sheet, PhotoColumn, PhotoColumn, float64(o.photoWidth)/7+1); err != nil {
			return err
		}
	}

	for i, s := range students {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			s.No,
			strings.ToUpper(s.Name),
			strings.ToUpper(s.Gender),
			strings.ToUpper(s.AdmissionNumber),
			strings.ToUpper(s.IDNumber),
			strings.ToUpper(s.Course),
			strings.ToUpper(s.Nationality),
			s.ExpiryDate.Format("2006"),
		}
		if err := f.SetSheetRow(o.sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}

		if !o.embed || s.PhotoPath == "" {
			continue
		}
		if err := embedPhoto(f, o, row, s.PhotoPath); err != nil {
			return fmt.Errorf("embed photo for %s: %w", s.AdmissionNumber, err)
		}
	}

	return f.Write(w)
}

func embedPhoto(f *excelize.File, o exportOptions, row int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	scale := min(float64(o.photoWidth)/float64(cfg.Width), float64(o.photoHeight)/float64(cfg.Height))
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpeg" {
		ext = ".jpg"
	}

	if err := f.SetRowHeight(o.sheet, row, float64(o.photoHeight)*0.75+4); err != nil {
		return err
	}
	return f.AddPictureFromBytes(o.sheet, fmt.Sprintf("%s%d", PhotoColumn, row), &excelize.Picture{
		Extension: ext,
		File:      data,
		Format: &excelize.GraphicOptions{
			ScaleX:      scale,
			ScaleY:      scale,
			OffsetX:     2,
			OffsetY:     2,
			Positioning: "oneCell",
		},
	})
}
