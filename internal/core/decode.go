package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// UploadedFile is a file received from the browser. It is never modified
// after it is created.
type UploadedFile struct {
	Name       string
	Data       []byte
	UploadedAt time.Time
}

// Size returns the file size in bytes.
func (f UploadedFile) Size() int64 { return int64(len(f.Data)) }

// Decode parses an uploaded file into a classified Table.
// The format is chosen by extension; an unknown extension yields
// *UnsupportedFormatError and malformed content yields *DecodeError.
func Decode(f UploadedFile) (*Table, error) {
	format, err := FormatFromName(f.Name)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch format {
	case FormatCSV:
		t, err = decodeCSV(f.Data)
	case FormatXLSX:
		t, err = decodeXLSX(f.Data)
	}
	if err != nil {
		return nil, &DecodeError{FileName: f.Name, Format: format, Err: err}
	}
	return t, nil
}

// errEmptyFile is wrapped by DecodeError when a file has no header row.
var errEmptyFile = errors.New("empty file")

func decodeCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(NewTextReader(bytes.NewReader(data)))
	reader.FieldsPerRecord = -1 // widths are checked against the header below
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("invalid csv: line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		// Empty lines never reach here; a line of delimiters is a row of
		// missing cells.
		records = append(records, rec)
	}

	return buildTable(header, records), nil
}

func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("invalid workbook: no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("invalid workbook: read sheet %q: %w", sheet, err)
	}

	// Skip leading blank rows so the first populated row is the header.
	for len(rows) > 0 && isBlankRecord(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, errEmptyFile
	}

	// Sheets are ragged: trailing empty cells are omitted per row. The widest
	// row defines the width; missing header cells become "Unnamed: i".
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	header := make([]string, width)
	copy(header, rows[0])

	// Blank rows between the header and the last populated row are rows of
	// missing cells. GetRows already drops trailing blank rows.
	return buildTable(header, rows[1:]), nil
}
