// Package match pairs uploaded photographs with roster students by filename.
package match

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/karungo/studentid/internal/types"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// IsImage reports whether path has a supported photo extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Key normalizes an admission number or file stem so that
// "DIP/600/J22/001", "dip-600-j22-001" and "DIP_600_J22_001" compare equal.
func Key(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// FileKey is the Key of a file's base name without extension.
func FileKey(path string) string {
	base := filepath.Base(path)
	return Key(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Photos assigns each image file to the student with the same key. A student
// gets at most one photo (lexically first path); everything else is unmatched.
func Photos(students []types.Student, files []string) ([]types.PhotoTask, []string) {
	byKey := make(map[string]string, len(students))
	for _, s := range students {
		byKey[Key(s.AdmissionNumber)] = s.AdmissionNumber
	}

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var (
		tasks     []types.PhotoTask
		unmatched []string
		taken     = make(map[string]bool)
	)
	for _, f := range sorted {
		if !IsImage(f) {
			unmatched = append(unmatched, f)
			continue
		}
		key := FileKey(f)
		admission, ok := byKey[key]
		if !ok || taken[key] {
			unmatched = append(unmatched, f)
			continue
		}
		taken[key] = true
		tasks = append(tasks, types.PhotoTask{
			Index:     len(tasks),
			Key:       key,
			Admission: admission,
			SrcPath:   f,
		})
	}
	return tasks, unmatched
}
