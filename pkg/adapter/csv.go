package adapter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ColumnKind is the storage class inferred for a CSV column.
type ColumnKind int

// Column kinds, from narrowest to widest.
const (
	KindInteger ColumnKind = iota
	KindReal
	KindText
)

// CSVData is a fully read CSV file with a header row.
type CSVData struct {
	Path    string
	Header  []string
	Records [][]string
}

// ReadCSV reads a CSV seed file. Header names are sanitized into
// identifiers and every record must have as many fields as the header.
func ReadCSV(filePath string) (*CSVData, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // seed paths are operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file %s has no header row", filePath)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = SanitizeIdentifier(h)
	}

	data := records[1:]
	for n, record := range data {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", filePath, n+2, len(header), len(record))
		}
	}

	return &CSVData{Path: absPath, Header: header, Records: data}, nil
}

// ReadCSVHeader returns the raw header names of a CSV file.
func ReadCSVHeader(filePath string) ([]string, error) {
	file, err := os.Open(filePath) //nolint:gosec // seed paths are operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

// Kind infers the storage class of column i. Empty cells are ignored; a
// column with no values is text.
func (d *CSVData) Kind(i int) ColumnKind {
	kind := KindInteger
	seen := false
	for _, record := range d.Records {
		v := record[i]
		if v == "" {
			continue
		}
		seen = true
		if kind == KindInteger {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = KindReal
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return KindText
		}
	}
	if !seen {
		return KindText
	}
	return kind
}

// SanitizeIdentifier turns a CSV header into a column name.
// "Sub-Category" and "Sub Category" both become Sub_Category.
func SanitizeIdentifier(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}
