package core

import (
	"bytes"
	"errors"
	"io"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

// makeXLSX builds a workbook whose first sheet holds rows.
func makeXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readAll(t *testing.T, exp *Export) []byte {
	t.Helper()
	b, err := io.ReadAll(exp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"a.csv", FormatCSV, false},
		{"REPORT.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"archive.tar.xlsx", FormatXLSX, false},
		{"notes.txt", 0, true},
		{"legacy.xls", 0, true},
		{"noext", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatFromName(tt.name)
		if tt.wantErr {
			var unsupported *UnsupportedFormatError
			if !errors.As(err, &unsupported) {
				t.Errorf("FormatFromName(%q) error = %v, want *UnsupportedFormatError", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatFromName(%q) = (%v, %v), want %v", tt.name, got, err, tt.want)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in     string
		format Format
		want   string
	}{
		{"data.csv", FormatXLSX, "data.xlsx"},
		{"data.xlsx", FormatCSV, "data.csv"},
		{"data.csv", FormatCSV, "data.csv"},
		{"my.data.v2.csv", FormatXLSX, "my.data.v2.xlsx"},
		{"noext", FormatCSV, "noext.csv"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in, tt.format); got != tt.want {
			t.Errorf("OutputName(%q, %s) = %q, want %q", tt.in, tt.format, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX, "Excel": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Error("ParseFormat(json) succeeded")
	}

	var f Format
	if err := f.UnmarshalText([]byte("excel")); err != nil || f != FormatXLSX {
		t.Errorf("UnmarshalText(excel) = %v, %v", f, err)
	}
	if b, _ := FormatXLSX.MarshalText(); string(b) != "xlsx" {
		t.Errorf("MarshalText() = %q, want xlsx", b)
	}
}

// cellRows renders a table's rows as strings, with "NA" for missing cells.
func cellRows(tbl *Table) [][]string {
	out := make([][]string, tbl.NumRows())
	for r := range out {
		for _, c := range tbl.Row(r) {
			s := c.String()
			if c.IsMissing() {
				s = "NA"
			}
			out[r] = append(out[r], s)
		}
	}
	return out
}

func utf16WithBOM(t *testing.T, order unicode.Endianness, s string) []byte {
	t.Helper()
	b, err := unicode.UTF16(order, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecode_CSV(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantNames []string
		wantKinds []ColumnKind
		wantRows  [][]string
	}{
		{
			name:      "utf-8 bom, quoting and short rows",
			data:      []byte("\xef\xbb\xbfid,name,score\n1,ann,9.5\n\n2,\"bo, b\",NA\n3,cy\n"),
			wantNames: []string{"id", "name", "score"},
			wantKinds: []ColumnKind{KindNumeric, KindText, KindNumeric},
			wantRows:  [][]string{{"1", "ann", "9.5"}, {"2", "bo, b", "NA"}, {"3", "cy", "NA"}},
		},
		{
			name:      "utf-16le with bom",
			data:      utf16WithBOM(t, unicode.LittleEndian, "id,name\n1,ané\n"),
			wantNames: []string{"id", "name"},
			wantKinds: []ColumnKind{KindNumeric, KindText},
			wantRows:  [][]string{{"1", "ané"}},
		},
		{
			name:      "utf-16be with bom",
			data:      utf16WithBOM(t, unicode.BigEndian, "id,name\n1,ané\n"),
			wantNames: []string{"id", "name"},
			wantKinds: []ColumnKind{KindNumeric, KindText},
			wantRows:  [][]string{{"1", "ané"}},
		},
		{
			name:      "invalid utf-8 replaced",
			data:      []byte("id,name\n1,x\xffy\n"),
			wantNames: []string{"id", "name"},
			wantKinds: []ColumnKind{KindNumeric, KindText},
			wantRows:  [][]string{{"1", "x\uFFFDy"}},
		},
		{
			name:      "line of delimiters is a missing row",
			data:      []byte("a,b\n1,2\n,\n3,4\n"),
			wantNames: []string{"a", "b"},
			wantKinds: []ColumnKind{KindNumeric, KindNumeric},
			wantRows:  [][]string{{"1", "2"}, {"NA", "NA"}, {"3", "4"}},
		},
		{
			name:      "quoted empty field is a missing row",
			data:      []byte("a\n1\n\"\"\n2\n"),
			wantNames: []string{"a"},
			wantKinds: []ColumnKind{KindNumeric},
			wantRows:  [][]string{{"1"}, {"NA"}, {"2"}},
		},
		{
			name:      "bare quote in unquoted field",
			data:      []byte("a,b\n1,x\"y\n"),
			wantNames: []string{"a", "b"},
			wantKinds: []ColumnKind{KindNumeric, KindText},
			wantRows:  [][]string{{"1", `x"y`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Decode(UploadedFile{Name: "people.csv", Data: tt.data})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if names := tbl.ColumnNames(); !reflect.DeepEqual(names, tt.wantNames) {
				t.Errorf("ColumnNames() = %q, want %q", names, tt.wantNames)
			}
			for c, want := range tt.wantKinds {
				if got := tbl.Kind(c); got != want {
					t.Errorf("Kind(%d) = %v, want %v", c, got, want)
				}
			}
			if got := cellRows(tbl); !reflect.DeepEqual(got, tt.wantRows) {
				t.Errorf("rows = %q, want %q", got, tt.wantRows)
			}
			if err := tbl.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     UploadedFile
		wantCode string
	}{
		{"unsupported extension", UploadedFile{Name: "notes.txt", Data: []byte("a,b\n")}, "FILE001"},
		{"row wider than header", UploadedFile{Name: "a.csv", Data: []byte("a,b\n1,2,3\n")}, "FILE002"},
		{"empty csv", UploadedFile{Name: "a.csv", Data: nil}, "FILE005"},
		{"not a workbook", UploadedFile{Name: "a.xlsx", Data: []byte("id,value\n1,2\n")}, "FILE003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.file)
			if err == nil {
				t.Fatal("Decode() succeeded")
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestDecode_XLSX(t *testing.T) {
	data := makeXLSX(t, [][]interface{}{
		{"id", "name", "amount"},
		{1, "ann", 2.5},
		{2, "bob", nil},
		{nil, nil, nil},
		{3, nil, 7},
	})

	tbl, err := Decode(UploadedFile{Name: "book.xlsx", Data: data})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tbl.Kind(0) != KindNumeric || tbl.Kind(1) != KindText || tbl.Kind(2) != KindNumeric {
		t.Error("id and amount should be numeric, name text")
	}
	want := [][]string{
		{"1", "ann", "2.5"},
		{"2", "bob", "NA"},
		{"NA", "NA", "NA"},
		{"3", "NA", "7"},
	}
	if got := cellRows(tbl); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}

func TestEncode_CSV(t *testing.T) {
	tbl := newTable([]string{"id", "note", "v"},
		[]string{"1", `say "hi", then`, "1.50"},
		[]string{"2", "line\nbreak", ""},
	)

	exp, err := Encode(tbl, "input.xlsx", FormatCSV)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if exp.FileName != "input.csv" || exp.MIMEType != "text/csv" {
		t.Errorf("got %q %q", exp.FileName, exp.MIMEType)
	}

	body := readAll(t, exp)
	want := "id,note,v\n1,\"say \"\"hi\"\", then\",1.5\n2,\"line\nbreak\",\n"
	if string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}

	back, err := Decode(UploadedFile{Name: exp.FileName, Data: body})
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(tbl) {
		t.Error("CSV round trip changed the table")
	}
}

func TestEncode_OmitsIndex(t *testing.T) {
	tbl := Deduplicate(newTable([]string{"a"}, []string{"x"}, []string{"x"}, []string{"y"}))
	exp, err := Encode(tbl, "a.csv", FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(readAll(t, exp)); got != "a\nx\ny\n" {
		t.Errorf("body = %q", got)
	}
}

func TestEncode_CSVRoundTripMissingRows(t *testing.T) {
	src := newTable([]string{"w", "x", "y"},
		[]string{"1", "", ""},
		[]string{"2", "5", "6"},
	)

	tests := []struct {
		name     string
		sel      ColumnSelection
		wantBody string
	}{
		{"two columns", ColumnSelection{"x", "y"}, "x,y\n,\n5,6\n"},
		{"one column", ColumnSelection{"x"}, "x\n\"\"\n5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projected, err := Project(src, tt.sel)
			if err != nil {
				t.Fatal(err)
			}
			exp, err := Encode(projected, "src.csv", FormatCSV)
			if err != nil {
				t.Fatal(err)
			}
			body := readAll(t, exp)
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}

			back, err := Decode(UploadedFile{Name: exp.FileName, Data: body})
			if err != nil {
				t.Fatal(err)
			}
			if back.NumRows() != projected.NumRows() {
				t.Fatalf("NumRows() = %d, want %d", back.NumRows(), projected.NumRows())
			}
			if got, want := cellRows(back), cellRows(projected); !reflect.DeepEqual(got, want) {
				t.Errorf("rows = %q, want %q", got, want)
			}
		})
	}
}

func TestEncode_XLSXRoundTrip(t *testing.T) {
	tbl := newTable([]string{"id", "name", "score"},
		[]string{"1", "ann", "9.25"},
		[]string{"2", "", "-3"},
		[]string{"3", "cy", ""},
	)

	exp, err := Encode(tbl, "scores.csv", FormatXLSX)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if exp.FileName != "scores.xlsx" {
		t.Errorf("FileName = %q", exp.FileName)
	}
	if exp.MIMEType != MIMEXLSX {
		t.Errorf("MIMEType = %q", exp.MIMEType)
	}

	back, err := Decode(UploadedFile{Name: exp.FileName, Data: readAll(t, exp)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !back.Equal(tbl) {
		t.Errorf("XLSX round trip changed the table: got %v", back.ColumnNames())
	}
}

func TestEncode_Errors(t *testing.T) {
	nonFinite := mustTable([]Column{{Name: "v", Kind: KindNumeric, Cells: []Cell{NumberCell(math.Inf(1))}}}, nil)
	longText := mustTable([]Column{{Name: "t", Kind: KindText, Cells: []Cell{TextCell(strings.Repeat("x", maxCellChars+1))}}}, nil)

	tests := []struct {
		name   string
		table  *Table
		format Format
	}{
		{"non-finite csv", nonFinite, FormatCSV},
		{"non-finite xlsx", nonFinite, FormatXLSX},
		{"oversized cell xlsx", longText, FormatXLSX},
		{"unknown format", longText, Format(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := Encode(tt.table, "x.csv", tt.format)
			var encErr *EncodeError
			if !errors.As(err, &encErr) {
				t.Fatalf("Encode() error = %v, want *EncodeError", err)
			}
			if exp != nil {
				t.Error("partial export returned")
			}
			if MapError(err).Code != "ENC001" {
				t.Errorf("code = %s", MapError(err).Code)
			}
		})
	}
}

func TestExport_Size(t *testing.T) {
	exp, err := Encode(newTable([]string{"a"}, []string{"1"}), "a.csv", FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Size() != int64(len("a\n1\n")) {
		t.Errorf("Size() = %d", exp.Size())
	}
	if !bytes.Equal(readAll(t, exp), []byte("a\n1\n")) {
		t.Error("body mismatch")
	}
}
