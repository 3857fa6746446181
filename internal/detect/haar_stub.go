//go:build !gocv

package detect

import "errors"

// NewHaar needs OpenCV; rebuild with -tags gocv.
func NewHaar(string) (Detector, error) {
	return nil, errors.New("haar detector unavailable: binary built without the gocv tag")
}
