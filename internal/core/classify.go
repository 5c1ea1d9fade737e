package core

// classify.go turns raw decoded strings into a typed Table.
//
// Classification runs exactly once per decode: a column is numeric when every
// non-missing cell parses as a finite number. Every later stage reads the
// Column.Kind tag instead of re-inspecting cell text.

import (
	"math"
	"strconv"
	"strings"
)

// missingTokens are the cell values treated as the missing marker on decode,
// in addition to the empty string. Matching is exact after trimming spaces.
var missingTokens = map[string]bool{
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"-NaN": true,
	"-nan": true,
	"NULL": true,
	"null": true,
	"None": true,
	"#N/A": true,
	"#NA":  true,
	"<NA>": true,
}

// IsMissingValue reports whether a raw cell value denotes a missing value.
func IsMissingValue(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || missingTokens[s]
}

// ParseNumber parses a raw cell as a finite decimal number.
// Hex floats, digit separators, infinities and NaN are rejected so that
// identifiers such as "0x1F" or "1_000" stay text.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizeHeader makes column names usable as table keys.
// Blank names become "Unnamed: <position>" and later duplicates of a name are
// suffixed ".1", ".2", ... until unique.
func NormalizeHeader(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))

	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		out[i] = name
	}

	for i, name := range out {
		if !used[name] {
			used[name] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := name + "." + strconv.Itoa(n)
			if !used[candidate] {
				out[i] = candidate
				used[candidate] = true
				break
			}
		}
	}
	return out
}

// ClassifyColumn returns the kind of a column of raw values.
// A column with no non-missing values is numeric.
func ClassifyColumn(raw []string) ColumnKind {
	for _, s := range raw {
		if IsMissingValue(s) {
			continue
		}
		if _, ok := ParseNumber(s); !ok {
			return KindText
		}
	}
	return KindNumeric
}

// buildTable classifies raw records into a Table. Every record must be no
// wider than header; shorter records are padded with missing cells.
func buildTable(header []string, records [][]string) *Table {
	names := NormalizeHeader(header)
	cols := make([]Column, len(names))

	raw := make([]string, len(records))
	for c, name := range names {
		for r, rec := range records {
			if c < len(rec) {
				raw[r] = rec[c]
			} else {
				raw[r] = ""
			}
		}

		kind := ClassifyColumn(raw)
		cells := make([]Cell, len(records))
		for r, s := range raw {
			switch {
			case IsMissingValue(s):
				cells[r] = MissingCell()
			case kind == KindNumeric:
				v, _ := ParseNumber(s)
				cells[r] = NumberCell(v)
			default:
				cells[r] = TextCell(s)
			}
		}
		cols[c] = Column{Name: name, Kind: kind, Cells: cells}
	}

	index := make([]int, len(records))
	for r := range index {
		index[r] = r
	}
	return mustTable(cols, index)
}

// isBlankRecord reports whether every field of a record is empty.
func isBlankRecord(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
