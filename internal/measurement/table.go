// Package measurement reads raw instrument CSV exports.
//
// Measurement files carry no header: every row is data. Cells are parsed
// lazily with parse-or-none semantics, so a missing or non-numeric cell is
// reported as nil instead of failing the whole file.
package measurement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is the raw content of a measurement file.
type Table struct {
	records [][]string
}

// ReadFile reads the measurement file at path
func ReadFile(path string) (t *Table, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening measurement file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing measurement file: %w", cErr)
		}
	}()

	return Read(f)
}

// Read parses CSV records from r. Rows may have different numbers of fields
// and a quote inside an unquoted field is kept as a literal character.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		records = append(records, record)
	}

	return &Table{records: records}, nil
}

// Rows returns the number of data rows
func (t *Table) Rows() int {
	return len(t.records)
}

// Float returns the numeric value of the cell at (row, col), or nil when the
// cell does not exist or does not hold a number.
func (t *Table) Float(row, col int) *float64 {
	if row < 0 || row >= len(t.records) {
		return nil
	}
	record := t.records[row]
	if col < 0 || col >= len(record) {
		return nil
	}
	return ParseFloat(record[col])
}

// Column returns every cell of column col, one entry per row.
func (t *Table) Column(col int) []*float64 {
	values := make([]*float64, len(t.records))
	for i := range t.records {
		values[i] = t.Float(i, col)
	}
	return values
}

// ParseFloat converts s to a number, returning nil when s is blank, not a
// number, or NaN.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	if v != v { // NaN
		return nil
	}
	return &v
}
