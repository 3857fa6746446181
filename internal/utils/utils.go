package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lmittmann/tint"
)

// --- 1. Error Reporting ---

// ShowError prints a formatted error box to Stderr without exiting.
func ShowError(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 STUDENTID ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// Die is the unified exit strategy for commands that cannot return an error.
func Die(context string, err error) {
	ShowError(context, err)
	os.Exit(1)
}

// --- 2. Logging ---

// NewLogger builds the colored structured logger used for per-file diagnostics.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

// --- 3. Input Discovery ---

// ExpandInputs turns a mix of files and directories into a sorted list of files.
// Directories are read one level deep and only entries accepted by keep are
// returned; explicitly named files are always kept.
func ExpandInputs(paths []string, keep func(string) bool) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory '%s': %w", p, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(p, entry.Name())
			if keep == nil || keep(path) {
				files = append(files, path)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
