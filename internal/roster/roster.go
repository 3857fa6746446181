// Package roster reads student rows from a spreadsheet and writes the
// annotated card roster back out.
package roster

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/karungo/studentid/internal/types"
	"github.com/xuri/excelize/v2"
)

// Admission numbers look like "DIP/600/J22/001": course / duration / intake / serial.
var admissionPattern = regexp.MustCompile(`(?i)^[A-Z]{3}/\d{3}/[A-Z]\d{2}/\d{3}$`)

// Input column order, first worksheet, header on row 1.
const (
	colNo = iota
	colName
	colGender
	colAdmission
	colIDNumber
	colNationality
	numColumns
)

// SkippedRow records a row that was not imported.
type SkippedRow struct {
	Row    int
	Value  string
	Reason string
}

// Roster is the result of one import.
type Roster struct {
	Sheet    string
	Students []types.Student
	Skipped  []SkippedRow
}

// ValidAdmission reports whether s is a well-formed admission number.
func ValidAdmission(s string) bool {
	return admissionPattern.MatchString(s)
}

// Course is the programme code, the first segment of the admission number.
func Course(admission string) string {
	return strings.ToUpper(strings.SplitN(admission, "/", 2)[0])
}

// ExpiryDate derives the card expiry from the programme duration code.
// Unknown codes expire immediately.
func ExpiryDate(admission string, now time.Time) time.Time {
	parts := strings.Split(admission, "/")
	if len(parts) < 2 {
		return now
	}
	duration, err := strconv.Atoi(parts[1])
	if err != nil {
		return now
	}

	switch duration {
	case 600:
		return now.AddDate(3, 0, 0)
	case 500:
		return now.AddDate(2, 0, 0)
	case 400:
		return now.AddDate(1, 0, 0)
	case 300:
		return now.AddDate(0, 3, 0)
	default:
		return now
	}
}

// Parse opens the workbook at path and imports its first sheet.
func Parse(path string, now time.Time) (*Roster, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()
	return parse(f, now)
}

// ParseReader imports the first sheet of a workbook read from r.
func ParseReader(r io.Reader, now time.Time) (*Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return parse(f, now)
}

func parse(f *excelize.File, now time.Time) (*Roster, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	r := &Roster{Sheet: sheet}
	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		if rowNum == 1 {
			continue // header
		}
		if isBlank(cols) {
			continue
		}

		cells := make([]string, numColumns)
		for i := 0; i < numColumns && i < len(cols); i++ {
			cells[i] = strings.TrimSpace(cols[i])
		}

		admission := cells[colAdmission]
		if !ValidAdmission(admission) {
			r.Skipped = append(r.Skipped, SkippedRow{Row: rowNum, Value: admission, Reason: "malformed admission number"})
			continue
		}

		r.Students = append(r.Students, types.Student{
			No:              cells[colNo],
			Name:            strings.ToUpper(cells[colName]),
			Gender:          strings.ToUpper(cells[colGender]),
			AdmissionNumber: strings.ToUpper(admission),
			IDNumber:        strings.ToUpper(cells[colIDNumber]),
			Nationality:     strings.ToUpper(cells[colNationality]),
			Course:          Course(admission),
			ExpiryDate:      ExpiryDate(admission, now),
		})
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", sheet, err)
	}
	return r, nil
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
