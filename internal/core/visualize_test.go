package core

import (
	"reflect"
	"testing"
)

func TestVisualize_ThirdNumericColumn(t *testing.T) {
	tbl := newTable([]string{"id", "name", "x", "y"},
		[]string{"1", "a", "10", "-2"},
		[]string{"2", "b", "20", ""},
		[]string{"3", "c", "30", "5"},
	)

	vis := Visualize("points.csv", tbl)

	if vis.Warning != "" {
		t.Fatalf("Warning = %q", vis.Warning)
	}
	if vis.Chart.Column != "y" {
		t.Errorf("Column = %q, want y", vis.Chart.Column)
	}
	want := []Bar{{Label: 0, Value: -2}, {Label: 2, Value: 5}}
	if !reflect.DeepEqual(vis.Chart.Bars, want) {
		t.Errorf("Bars = %+v, want %+v", vis.Chart.Bars, want)
	}
	if vis.Chart.Min != -2 || vis.Chart.Max != 5 {
		t.Errorf("range = [%v, %v], want [-2, 5]", vis.Chart.Min, vis.Chart.Max)
	}
}

func TestVisualize_NotEnoughNumericColumns(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
	}{
		{"one numeric", newTable([]string{"v"}, []string{"1"})},
		{"two numeric and text", newTable([]string{"a", "b", "c"}, []string{"1", "x", "2"})},
		{"no columns", &Table{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vis := Visualize("f.csv", tt.table)
			if vis.Chart != nil {
				t.Fatal("expected no chart")
			}
			if vis.Warning != "Not enough numeric columns in f.csv to display a chart." {
				t.Errorf("Warning = %q", vis.Warning)
			}
		})
	}
}

func TestVisualize_UsesIndexLabels(t *testing.T) {
	tbl := Deduplicate(newTable([]string{"a", "b", "c"},
		[]string{"1", "1", "1"},
		[]string{"1", "1", "1"},
		[]string{"2", "2", "7"},
	))
	vis := Visualize("f.csv", tbl)
	if len(vis.Chart.Bars) != 2 || vis.Chart.Bars[1].Label != 2 {
		t.Errorf("Bars = %+v", vis.Chart.Bars)
	}
}
