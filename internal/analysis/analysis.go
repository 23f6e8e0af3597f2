// Package analysis classifies folders of device-test measurement files into
// per-device summaries.
//
// Two analyzers are provided. LIV reads light-current-voltage curves and
// classifies every device as alive or dead from its threshold current and its
// optical power at 150 mA. OSA reads optical spectrum scans and counts the
// tones above the detection threshold. Both write a summary CSV into the
// analyzed folder and report duplicate test runs.
//
// LIV and OSA return structured reports and errors. RunLIV and RunOSA wrap
// them for callers that only display a status message: every outcome,
// including failures, is rendered as a human-readable string.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoCSVFiles is returned when the analyzed folder holds no CSV file.
var ErrNoCSVFiles = errors.New("no csv files found")

const csvExt = ".csv"

// File is a measurement file found in the analyzed folder.
type File struct {
	Name string // Base name, used for device identification
	Path string // Full path
	Size int64  // Size in bytes
}

type options struct {
	logger *slog.Logger
}

// Option configures an analysis run.
type Option func(*options)

// WithLogger sets the logger for the analysis run
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}

// Discover lists the CSV files of folder sorted by name. Only names ending in
// the lower-case ".csv" suffix are kept; directories are ignored.
func Discover(folder string) ([]File, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), csvExt) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("reading file info: %w", err)
		}

		files = append(files, File{
			Name: entry.Name(),
			Path: filepath.Join(folder, entry.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

func totalSize(files []File) uint64 {
	var n uint64
	for _, f := range files {
		n += uint64(f.Size)
	}
	return n
}

// recordSet keeps one record per device ID. A later record replaces an
// earlier one in place, so the set retains first-insertion order.
type recordSet[T any] struct {
	index map[string]int
	items []T
}

func newRecordSet[T any]() *recordSet[T] {
	return &recordSet[T]{index: make(map[string]int)}
}

func (s *recordSet[T]) upsert(deviceID string, v T) {
	if i, ok := s.index[deviceID]; ok {
		s.items[i] = v
		return
	}
	s.index[deviceID] = len(s.items)
	s.items = append(s.items, v)
}

func (s *recordSet[T]) len() int {
	return len(s.items)
}
