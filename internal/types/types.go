package types

import (
	"fmt"
	"image"
	"time"
)

// Rect is an axis-aligned region in image pixel coordinates (origin top-left).
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Image converts the rect to an image.Rectangle anchored at origin.
func (r Rect) Image(origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H).Add(origin)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Student is one roster row after validation and normalization.
type Student struct {
	No              string
	Name            string
	Gender          string
	AdmissionNumber string
	IDNumber        string
	Nationality     string
	Course          string
	ExpiryDate      time.Time
	PhotoPath       string
}

// PhotoTask pairs an uploaded photograph with the student it belongs to.
type PhotoTask struct {
	Index     int
	Key       string // normalized admission number, also the output file stem
	Admission string
	SrcPath   string
}

// PhotoResult is what a worker reports back for one PhotoTask.
type PhotoResult struct {
	Index     int
	Admission string
	SrcPath   string
	OutPath   string // cropped card photo, or SrcPath when no face was found
	Face      *Rect
	NoFace    bool
	Err       error
}
