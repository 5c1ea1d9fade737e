package core

import "fmt"

// ChartColumnIndex is the position, among numeric columns only, of the column
// that is charted. Tables with no more numeric columns than this get a warning
// instead of a chart.
const ChartColumnIndex = 2

// Bar is one bar of a chart: a row's index label and its value.
type Bar struct {
	Label int     `json:"label"`
	Value float64 `json:"value"`
}

// Chart is a bar chart of a single numeric column.
type Chart struct {
	Column string  `json:"column"`
	Bars   []Bar   `json:"bars"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Visualization is either a chart or a warning explaining why there is none.
type Visualization struct {
	Chart   *Chart `json:"chart,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// NumericColumns returns the positions of t's numeric columns in table order.
func NumericColumns(t *Table) []int {
	var cols []int
	for c := 0; c < t.NumCols(); c++ {
		if t.Kind(c) == KindNumeric {
			cols = append(cols, c)
		}
	}
	return cols
}

// Visualize charts the third numeric column of t. Rows with a missing value
// produce no bar. With two or fewer numeric columns a warning is returned.
func Visualize(fileName string, t *Table) Visualization {
	numeric := NumericColumns(t)
	if len(numeric) <= ChartColumnIndex {
		return Visualization{
			Warning: fmt.Sprintf("Not enough numeric columns in %s to display a chart.", fileName),
		}
	}

	col := t.Column(numeric[ChartColumnIndex])
	chart := &Chart{Column: col.Name, Bars: make([]Bar, 0, len(col.Cells))}
	for r, cell := range col.Cells {
		if cell.Kind != CellNumber {
			continue
		}
		if len(chart.Bars) == 0 || cell.Num < chart.Min {
			chart.Min = cell.Num
		}
		if len(chart.Bars) == 0 || cell.Num > chart.Max {
			chart.Max = cell.Num
		}
		chart.Bars = append(chart.Bars, Bar{Label: t.Index[r], Value: cell.Num})
	}
	return Visualization{Chart: chart}
}
