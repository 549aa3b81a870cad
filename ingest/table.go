package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

const utf8Bom = "\uFEFF"

// tableReader wraps csv.Reader with the row context needed for MalformedRecordError
type tableReader struct {
	source string
	csv    *csv.Reader
	header map[string]int
	labels []string
}

func newTableReader(r io.Reader, source string) *tableReader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row widths are checked per field, not per row
	reader.ReuseRecord = true

	return &tableReader{
		source: source,
		csv:    reader,
	}
}

// readHeader consumes the header row. ok is false when the table is completely empty.
func (tr *tableReader) readHeader() (ok bool, err error) {
	record, err := tr.csv.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, tr.wrapReadError(err)
	}

	tr.header = make(map[string]int, len(record))
	tr.labels = make([]string, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8Bom)
		}
		label := strings.TrimSpace(name)
		tr.labels[i] = label
		key := strings.ToLower(label)
		if _, exists := tr.header[key]; !exists {
			tr.header[key] = i
		}
	}

	return true, nil
}

// column finds a header column by case insensitive name
func (tr *tableReader) column(name string) (int, bool) {
	idx, ok := tr.header[strings.ToLower(name)]
	return idx, ok
}

// next returns the next data row and its 1 based line number, io.EOF at the end
func (tr *tableReader) next() ([]string, int, error) {
	record, err := tr.csv.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		return nil, 0, tr.wrapReadError(err)
	}

	line, _ := tr.csv.FieldPos(0)
	return record, line, nil
}

func (tr *tableReader) malformed(line int, field, value string, err error) error {
	return &MalformedRecordError{
		Source: tr.source,
		Line:   line,
		Field:  field,
		Value:  value,
		Err:    err,
	}
}

// wrapReadError splits csv syntax problems (malformed) from failures of the underlying reader (io)
func (tr *tableReader) wrapReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return tr.malformed(parseErr.StartLine, "", "", parseErr.Err)
	}

	return &IOError{Path: tr.source, Err: err}
}

// cell returns the trimmed value at idx, false when the row is too short
func cell(record []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}
