package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet limits enforced before writing an XLSX workbook.
const (
	maxSheetRows  = 1048576 // including the header row
	maxSheetCols  = 16384
	maxCellChars  = 32767
	xlsxSheetName = "Sheet1"
)

// Export is an encoded table ready for download.
type Export struct {
	FileName string
	MIMEType string
	Format   Format
	Body     *bytes.Reader // positioned at the start
}

// Size returns the encoded length in bytes.
func (e *Export) Size() int64 { return e.Body.Size() }

// Encode serializes t in the requested format. sourceName is the uploaded
// file's name; the export name is derived from it. The row index is never
// written. Any failure is returned as *EncodeError and no output is produced.
func Encode(t *Table, sourceName string, format Format) (*Export, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = encodeCSV(t)
	case FormatXLSX:
		data, err = encodeXLSX(t)
	default:
		err = fmt.Errorf("unsupported target format %s", format)
	}
	if err != nil {
		return nil, &EncodeError{Format: format, Err: err}
	}

	return &Export{
		FileName: OutputName(sourceName, format),
		MIMEType: format.MIMEType(),
		Format:   format,
		Body:     bytes.NewReader(data),
	}, nil
}

// checkCell rejects cells that no output format can represent.
func checkCell(col string, row int, c Cell) error {
	switch c.Kind {
	case CellMissing, CellText:
		return nil
	case CellNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return fmt.Errorf("column %q row %d: non-finite number", col, row)
		}
		return nil
	default:
		return fmt.Errorf("column %q row %d: unsupported cell kind %d", col, row, c.Kind)
	}
}

func encodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.ColumnNames()); err != nil {
		return nil, err
	}

	names := t.ColumnNames()
	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c, cell := range t.Row(r) {
			if err := checkCell(names[c], r, cell); err != nil {
				return nil, err
			}
			record[c] = cell.String()
		}
		// csv.Writer renders a lone empty field as an empty line, which
		// readers skip. Quote it so the row survives a round trip.
		if len(record) == 1 && record[0] == "" {
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errSheetTooLarge = errors.New("table exceeds spreadsheet limits")

func encodeXLSX(t *Table) (data []byte, err error) {
	if t.NumRows()+1 > maxSheetRows {
		return nil, fmt.Errorf("%w: %d rows (max %d)", errSheetTooLarge, t.NumRows(), maxSheetRows-1)
	}
	if t.NumCols() > maxSheetCols {
		return nil, fmt.Errorf("%w: %d columns (max %d)", errSheetTooLarge, t.NumCols(), maxSheetCols)
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sw, err := f.NewStreamWriter(xlsxSheetName)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, t.NumCols())
	for c, name := range t.ColumnNames() {
		if utf8.RuneCountInString(name) > maxCellChars {
			return nil, fmt.Errorf("column name %.20q... exceeds %d characters", name, maxCellChars)
		}
		header[c] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	names := t.ColumnNames()
	values := make([]interface{}, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c, cell := range t.Row(r) {
			if err := checkCell(names[c], r, cell); err != nil {
				return nil, err
			}
			switch cell.Kind {
			case CellNumber:
				values[c] = cell.Num
			case CellText:
				if utf8.RuneCountInString(cell.Text) > maxCellChars {
					return nil, fmt.Errorf("column %q row %d: text exceeds %d characters", names[c], r, maxCellChars)
				}
				values[c] = cell.Text
			default:
				values[c] = nil
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(axis, values); err != nil {
			return nil, err
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
