package core

// ColumnSelection names the columns to keep, in output order.
// A nil selection means every column in its original order.
type ColumnSelection []string

// Project returns a new table holding exactly the selected columns in the
// selected order. The row index is carried over unchanged.
func Project(t *Table, sel ColumnSelection) (*Table, error) {
	if sel == nil {
		return t.Clone(), nil
	}
	if err := ValidateSelection(t, sel); err != nil {
		return nil, err
	}

	index := append([]int(nil), t.Index...)
	kinds := make([]ColumnKind, len(sel))
	for i, name := range sel {
		kinds[i] = t.kinds[t.ColumnIndex(name)]
	}
	if len(sel) == 0 {
		return &Table{kinds: kinds, Index: index}, nil
	}
	return t.derive(t.df.Select([]string(sel)), kinds, index)
}

// ValidateSelection checks a selection against a table without building the
// projection.
func ValidateSelection(t *Table, sel ColumnSelection) error {
	picked := make(map[string]bool, len(sel))
	for _, name := range sel {
		if picked[name] {
			return &InvalidColumnError{Column: name, Duplicate: true}
		}
		picked[name] = true
		if t.ColumnIndex(name) < 0 {
			return &InvalidColumnError{Column: name}
		}
	}
	return nil
}
