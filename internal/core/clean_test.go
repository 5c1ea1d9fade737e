package core

import (
	"reflect"
	"testing"
)

// newTable builds a classified table from a header and raw rows.
func newTable(header []string, rows ...[]string) *Table {
	return buildTable(header, rows)
}

func TestDeduplicate(t *testing.T) {
	tbl := newTable([]string{"id", "value"},
		[]string{"1", "10"},
		[]string{"1", "10"},
		[]string{"2", ""},
		[]string{"2", "NA"},
		[]string{"1", "10.0"},
	)

	got := Deduplicate(tbl)

	if got.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", got.NumRows())
	}
	if !reflect.DeepEqual(got.Index, []int{0, 2}) {
		t.Errorf("Index = %v, want [0 2]", got.Index)
	}
	if tbl.NumRows() != 5 {
		t.Errorf("input modified: NumRows() = %d", tbl.NumRows())
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	tbl := newTable([]string{"a", "b"},
		[]string{"x", "1"},
		[]string{"y", "2"},
		[]string{"x", "1"},
	)
	once := Deduplicate(tbl)
	twice := Deduplicate(once)
	if !once.Equal(twice) {
		t.Error("Deduplicate is not idempotent")
	}
}

func TestDeduplicate_TextKeysDoNotCollide(t *testing.T) {
	tbl := newTable([]string{"a", "b"},
		[]string{"x", "yz"},
		[]string{"xy", "z"},
	)
	if got := Deduplicate(tbl).NumRows(); got != 2 {
		t.Errorf("NumRows() = %d, want 2", got)
	}
}

func TestFillMissing(t *testing.T) {
	tbl := newTable([]string{"id", "value", "label", "empty"},
		[]string{"1", "10", "a", ""},
		[]string{"2", "", "", ""},
		[]string{"3", "20", "c", ""},
	)

	got := FillMissing(tbl)

	value := got.Cell(1, 1)
	if value.Kind != CellNumber || value.Num != 15 {
		t.Errorf("filled value = %+v, want 15", value)
	}
	if !got.Cell(1, 2).IsMissing() {
		t.Error("text column was filled")
	}
	if !got.Cell(0, 3).IsMissing() {
		t.Error("all-missing column was filled")
	}
	if !tbl.Cell(1, 1).IsMissing() {
		t.Error("input modified")
	}
	if CountMissing(got) != 4 {
		t.Errorf("CountMissing() = %d, want 4", CountMissing(got))
	}
}

func TestFillMissing_Idempotent(t *testing.T) {
	tbl := newTable([]string{"v"}, []string{"1"}, []string{""}, []string{"4"})
	once := FillMissing(tbl)
	if !once.Equal(FillMissing(once)) {
		t.Error("FillMissing is not idempotent")
	}
}

func TestDeduplicateThenFill(t *testing.T) {
	tbl := newTable([]string{"id", "value"},
		[]string{"1", "10"},
		[]string{"1", "10"},
		[]string{"2", ""},
	)

	got := FillMissing(Deduplicate(tbl))

	if got.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", got.NumRows())
	}
	if c := got.Cell(1, 1); c.Kind != CellNumber || c.Num != 10 {
		t.Errorf("value for id 2 = %+v, want 10", c)
	}
}

func TestParseCleanOp(t *testing.T) {
	for _, s := range []string{"deduplicate", "fill_missing"} {
		op, err := ParseCleanOp(s)
		if err != nil || string(op) != s {
			t.Errorf("ParseCleanOp(%q) = (%q, %v)", s, op, err)
		}
		if op.Notice() == "" {
			t.Errorf("%s has no notice", op)
		}
	}
	if _, err := ParseCleanOp("drop_all"); err == nil {
		t.Error("ParseCleanOp(drop_all) succeeded")
	}
	if _, err := CleanOp("drop_all").Apply(&Table{}); err == nil {
		t.Error("Apply of unknown op succeeded")
	}
}
