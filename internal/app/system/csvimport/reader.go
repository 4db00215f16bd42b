// internal/app/system/csvimport/reader.go
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile is returned when the upload has no header row.
	ErrEmptyFile = errors.New("file has no header row")
	// ErrTooManyRows is returned when the upload exceeds MaxRows data rows.
	ErrTooManyRows = fmt.Errorf("file exceeds %d rows", MaxRows)
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file type (expected .csv or .xlsx)")
)

// Row is one data row keyed by header. A header that appears several times
// holds one value per occurrence, left to right; this is how repeated
// participant columns are encoded.
type Row struct {
	Line   int // 1-based line (CSV) or row (XLSX) number in the source
	Values map[string][]string
}

// Get returns the trimmed value of the i-th occurrence of header, or "".
func (r Row) Get(header string, i int) string {
	vs := r.Values[header]
	if i < 0 || i >= len(vs) {
		return ""
	}
	return strings.TrimSpace(vs[i])
}

// Read parses an upload by file extension.
func Read(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", "":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	}
	return nil, ErrUnsupportedFormat
}

// ReadCSV reads a header row followed by data rows. Blank rows are skipped.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	headers := cleanHeaders(header)

	var rows []Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		row, ok := buildRow(headers, rec, line)
		if !ok {
			continue
		}
		if len(rows) == MaxRows {
			return nil, ErrTooManyRows
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadXLSX reads the first worksheet of an Excel workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	headers := cleanHeaders(records[0])

	var rows []Row
	for i, rec := range records[1:] {
		row, ok := buildRow(headers, rec, i+2)
		if !ok {
			continue
		}
		if len(rows) == MaxRows {
			return nil, ErrTooManyRows
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cleanHeaders(in []string) []string {
	out := make([]string, len(in))
	for i, h := range in {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = strings.Join(strings.Fields(h), " ")
	}
	return out
}

// buildRow pairs a record with the headers. It reports false for a row with
// no non-blank cell.
func buildRow(headers, rec []string, line int) (Row, bool) {
	row := Row{Line: line, Values: make(map[string][]string, len(headers))}
	nonBlank := false
	for i, h := range headers {
		if h == "" {
			continue
		}
		v := ""
		if i < len(rec) {
			v = rec[i]
		}
		if strings.TrimSpace(v) != "" {
			nonBlank = true
		}
		row.Values[h] = append(row.Values[h], v)
	}
	return row, nonBlank
}
