package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// CleanOp is a user-triggered cleaning operation.
type CleanOp string

const (
	OpDeduplicate CleanOp = "deduplicate"
	OpFillMissing CleanOp = "fill_missing"
)

// ParseCleanOp validates an operation name.
func ParseCleanOp(s string) (CleanOp, error) {
	switch op := CleanOp(s); op {
	case OpDeduplicate, OpFillMissing:
		return op, nil
	default:
		return "", fmt.Errorf("unknown cleaning operation %q", s)
	}
}

// Notice is the message shown to the user after the operation is applied.
func (op CleanOp) Notice() string {
	switch op {
	case OpDeduplicate:
		return "Duplicates Removed!"
	case OpFillMissing:
		return "Missing Values have been Filled!"
	default:
		return ""
	}
}

// Apply runs the operation against t and returns the resulting table.
func (op CleanOp) Apply(t *Table) (*Table, error) {
	switch op {
	case OpDeduplicate:
		return Deduplicate(t), nil
	case OpFillMissing:
		return FillMissing(t), nil
	default:
		return nil, fmt.Errorf("unknown cleaning operation %q", string(op))
	}
}

// Deduplicate removes rows that exactly match an earlier row across all
// columns. The first occurrence is kept and retained rows keep their order
// and index labels. Missing cells compare equal to each other.
func Deduplicate(t *Table) *Table {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())

	var key strings.Builder
	for r := 0; r < t.NumRows(); r++ {
		key.Reset()
		for c := 0; c < t.NumCols(); c++ {
			writeCellKey(&key, t.Cell(r, c))
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}

	return t.selectRows(keep)
}

// writeCellKey appends an unambiguous encoding of a cell to b.
// Text is length-prefixed so no separator can collide with cell content.
func writeCellKey(b *strings.Builder, c Cell) {
	switch c.Kind {
	case CellNumber:
		b.WriteByte('n')
		b.WriteString(formatNumber(c.Num))
		b.WriteByte(';')
	case CellText:
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(c.Text)))
		b.WriteByte(':')
		b.WriteString(c.Text)
	default:
		b.WriteByte('m')
	}
}

// FillMissing replaces missing cells in every numeric column with the mean of
// that column's non-missing values. Means are computed before anything is
// filled. Text columns and all-missing numeric columns are returned unchanged.
func FillMissing(t *Table) *Table {
	out := t.Clone()
	for c, name := range t.ColumnNames() {
		if t.kinds[c] != KindNumeric {
			continue
		}
		mean, ok := ColumnMean(t, c)
		if !ok {
			continue
		}

		col := out.df.Col(name)
		missing := col.IsNaN()
		n := 0
		for _, na := range missing {
			if na {
				n++
			}
		}
		if n == 0 {
			continue
		}
		fill := make([]float64, n)
		for i := range fill {
			fill[i] = mean
		}
		col = col.Set(missing, series.Floats(fill))
		out.df = out.df.Mutate(col)
		if err := out.df.Error(); err != nil {
			// col is a same-length copy of an existing column.
			panic(fmt.Sprintf("fill column %q: %v", name, err))
		}
	}
	return out
}

// ColumnMean returns the arithmetic mean of the non-missing values of
// column c. ok is false when the column is text or has no values.
func ColumnMean(t *Table, c int) (mean float64, ok bool) {
	if t.kinds[c] != KindNumeric {
		return 0, false
	}
	col := t.df.Col(t.ColumnNames()[c])
	missing := col.IsNaN()
	present := make([]int, 0, len(missing))
	for r, na := range missing {
		if !na {
			present = append(present, r)
		}
	}
	if len(present) == 0 {
		return 0, false
	}
	return col.Subset(present).Mean(), true
}

// CountMissing returns the number of missing cells in the table.
func CountMissing(t *Table) int {
	n := 0
	for _, name := range t.ColumnNames() {
		for _, na := range t.df.Col(name).IsNaN() {
			if na {
				n++
			}
		}
	}
	return n
}
