package core

// table.go defines the in-memory tabular model shared by every pipeline stage.
//
// A Table stores its values in a gota DataFrame: numeric columns are Float
// series and text columns are String series, with NA elements as the missing
// marker. On top of the frame the Table keeps the kind tag computed once by the
// classification pass (see classify.go) and the source row index, which gota
// does not track.

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// CellKind identifies what a single cell holds.
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumber
	CellText
)

// Cell is a single typed value. Exactly one of Num or Text is meaningful,
// depending on Kind. Missing cells carry neither.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// MissingCell returns the missing-value marker.
func MissingCell() Cell { return Cell{Kind: CellMissing} }

// NumberCell returns a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// IsMissing reports whether the cell is the missing marker.
func (c Cell) IsMissing() bool { return c.Kind == CellMissing }

// String formats the cell for display and CSV export.
// Numbers use the shortest representation that parses back to the same value.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return formatNumber(c.Num)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same value.
// Two missing cells are equal, and 0 equals -0.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellNumber:
		return c.Num == o.Num
	case CellText:
		return c.Text == o.Text
	default:
		return true
	}
}

func formatNumber(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ColumnKind is the classification tag of a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
)

func (k ColumnKind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

func (k ColumnKind) seriesType() series.Type {
	if k == KindNumeric {
		return series.Float
	}
	return series.String
}

// Column is a named, typed sequence of cells. It is the value form used to
// build a Table and to read one column back out of it.
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// newSeries converts a column to a gota series. Missing cells become NA.
func (c Column) newSeries() series.Series {
	values := make([]interface{}, len(c.Cells))
	for r, cell := range c.Cells {
		switch {
		case cell.IsMissing():
			values[r] = nil
		case c.Kind == KindNumeric:
			values[r] = cell.Num
		default:
			values[r] = cell.String()
		}
	}
	return series.New(values, c.Kind.seriesType(), c.Name)
}

// Table is an ordered set of equal-length columns plus a row index.
//
// Index holds the zero-based position each row had in the source file. It
// survives cleaning and projection so previews and charts can label rows the
// way the source did, but it is never exported.
type Table struct {
	df    dataframe.DataFrame // zero value when the table has no columns
	kinds []ColumnKind
	Index []int
}

// NewTable builds a table from columns. A nil index numbers the rows from
// zero. Columns must have unique, non-empty names and index-length cells.
func NewTable(cols []Column, index []int) (*Table, error) {
	if index == nil {
		n := 0
		if len(cols) > 0 {
			n = len(cols[0].Cells)
		}
		index = make([]int, n)
		for r := range index {
			index[r] = r
		}
	}

	t := &Table{kinds: make([]ColumnKind, len(cols)), Index: index}
	if len(cols) == 0 {
		return t, nil
	}

	seen := make(map[string]bool, len(cols))
	list := make([]series.Series, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Cells) != len(index) {
			return nil, fmt.Errorf("column %q has %d cells, want %d", c.Name, len(c.Cells), len(index))
		}
		t.kinds[i] = c.Kind
		list[i] = c.newSeries()
	}

	t.df = dataframe.New(list...)
	if err := t.df.Error(); err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return t, nil
}

// mustTable is NewTable for inputs whose shape is already guaranteed.
func mustTable(cols []Column, index []int) *Table {
	t, err := NewTable(cols, index)
	if err != nil {
		panic(err)
	}
	return t
}

// derive wraps a frame produced from t by a gota operation. kinds and index
// describe the new frame's columns and rows.
func (t *Table) derive(df dataframe.DataFrame, kinds []ColumnKind, index []int) (*Table, error) {
	if err := df.Error(); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		df = dataframe.DataFrame{}
	}
	return &Table{df: df, kinds: kinds, Index: index}, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Index) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.kinds) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	if t.NumCols() == 0 {
		return []string{}
	}
	return t.df.Names()
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, n := range t.ColumnNames() {
		if n == name {
			return i
		}
	}
	return -1
}

// Kind returns the classification of column c.
func (t *Table) Kind(c int) ColumnKind { return t.kinds[c] }

// Cell returns the value at row r, column c.
func (t *Table) Cell(r, c int) Cell {
	e := t.df.Elem(r, c)
	switch {
	case e.IsNA():
		return MissingCell()
	case t.kinds[c] == KindNumeric:
		return NumberCell(e.Float())
	default:
		return TextCell(e.String())
	}
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, t.NumCols())
	for c := range row {
		row[c] = t.Cell(i, c)
	}
	return row
}

// Column returns a copy of column c.
func (t *Table) Column(c int) Column {
	col := Column{
		Name:  t.df.Names()[c],
		Kind:  t.kinds[c],
		Cells: make([]Cell, t.NumRows()),
	}
	for r := range col.Cells {
		col.Cells[r] = t.Cell(r, c)
	}
	return col
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		kinds: append([]ColumnKind(nil), t.kinds...),
		Index: append([]int(nil), t.Index...),
	}
	if t.NumCols() > 0 {
		out.df = t.df.Copy()
	}
	return out
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	n = min(max(n, 0), t.NumRows())
	rows := make([]int, n)
	for r := range rows {
		rows[r] = r
	}
	return t.selectRows(rows)
}

// selectRows returns a copy holding only the rows at the given positions.
func (t *Table) selectRows(rows []int) *Table {
	index := make([]int, len(rows))
	for k, r := range rows {
		index[k] = t.Index[r]
	}
	kinds := append([]ColumnKind(nil), t.kinds...)
	if t.NumCols() == 0 {
		return &Table{kinds: kinds, Index: index}
	}
	out, err := t.derive(t.df.Subset(rows), kinds, index)
	if err != nil {
		// Positions come from 0..NumRows-1, so gota has nothing to reject.
		panic(fmt.Sprintf("select rows: %v", err))
	}
	return out
}

// Equal reports whether two tables have the same columns, kinds, cells and index.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i := range t.Index {
		if t.Index[i] != o.Index[i] {
			return false
		}
	}
	names, onames := t.ColumnNames(), o.ColumnNames()
	for c := range t.kinds {
		if names[c] != onames[c] || t.kinds[c] != o.kinds[c] {
			return false
		}
		for r := range t.Index {
			if !t.Cell(r, c).Equal(o.Cell(r, c)) {
				return false
			}
		}
	}
	return true
}

// Validate checks the structural invariants: frame and index agree, unique
// names, series types match kinds, numeric columns hold finite numbers.
func (t *Table) Validate() error {
	if t.NumCols() == 0 {
		return nil
	}
	if rows, cols := t.df.Dims(); rows != len(t.Index) || cols != len(t.kinds) {
		return fmt.Errorf("frame is %dx%d, want %dx%d", rows, cols, len(t.Index), len(t.kinds))
	}

	seen := make(map[string]bool, t.NumCols())
	types := t.df.Types()
	for c, name := range t.ColumnNames() {
		if seen[name] {
			return fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = true

		if types[c] != t.kinds[c].seriesType() {
			return fmt.Errorf("column %q is %s, stored as %s", name, t.kinds[c], types[c])
		}
		if t.kinds[c] != KindNumeric {
			continue
		}
		for r := range t.Index {
			if cell := t.Cell(r, c); cell.Kind == CellNumber && math.IsInf(cell.Num, 0) {
				return fmt.Errorf("numeric column %q holds non-finite value at row %d", name, r)
			}
		}
	}
	return nil
}
