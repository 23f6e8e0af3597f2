// Package summary writes and reads the per-device summary tables produced by
// the analyzers.
package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table is a summary table: a header row followed by one row per device.
type Table struct {
	Header []string
	Rows   [][]string
}

// Write stores the table at path as UTF-8 CSV without an index column,
// replacing any existing file.
func Write(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing summary file: %w", cErr)
		}
	}()

	return Encode(f, t)
}

// Encode writes the table as CSV to w
func Encode(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// Read loads a summary table previously stored with Write.
func Read(path string) (t *Table, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing summary file: %w", cErr)
		}
	}()

	return Decode(f)
}

// Decode parses a summary table from r. The first record is the header.
func Decode(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("parsing summary: missing header")
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// FormatFloat renders a metric value with the shortest exact representation.
// Integral values get a ".0" suffix.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
