package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a tabular file format the pipeline can read and write.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// MIME types offered with downloads.
const (
	MIMECSV  = "text/csv"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatCSV, FormatXLSX}

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Label is the user-facing name shown on export controls.
func (f Format) Label() string {
	if f == FormatXLSX {
		return "Excel"
	}
	return "CSV"
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

// MIMEType returns the content type for downloads.
func (f Format) MIMEType() string {
	if f == FormatXLSX {
		return MIMEXLSX
	}
	return MIMECSV
}

// ParseFormat accepts "csv", "xlsx" or "excel", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel", "spreadsheet":
		return FormatXLSX, nil
	default:
		return 0, fmt.Errorf("unknown export format %q", s)
	}
}

// FormatFromName determines a file's format from its extension.
// The extension is authoritative; content is never sniffed.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return 0, &UnsupportedFormatError{FileName: name, Extension: ext}
	}
}

// OutputName replaces the final extension of name with the format's extension.
// A name without an extension gets one appended.
func OutputName(name string, f Format) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + f.Extension()
}

// MarshalText encodes the format as its short name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts any name ParseFormat accepts.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
