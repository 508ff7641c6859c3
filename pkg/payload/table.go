package payload

import (
	"github.com/pkg/errors"
	"strconv"
)

// Table is a text-celled frame. Index holds one label per row when the
// source carried an index column.
type Table struct {
	Columns   []string
	Index     []string
	IndexName string
	Rows      [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) HasIndex() bool {
	return len(t.Index) > 0
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) Column(name string) ([]string, bool) {
	ci := t.ColumnIndex(name)
	if ci < 0 {
		return nil, false
	}
	col := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if ci < len(row) {
			col[i] = row[ci]
		}
	}
	return col, true
}

func (t *Table) Floats(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.Errorf("column %q not found", name)
	}
	out := make([]float64, len(col))
	for i, s := range col {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q row %d", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// DropColumns removes every column whose header satisfies pred and returns
// the number of columns removed.
func (t *Table) DropColumns(pred func(string) bool) int {
	var keep []int
	for i, c := range t.Columns {
		if !pred(c) {
			keep = append(keep, i)
		}
	}
	dropped := len(t.Columns) - len(keep)
	if dropped == 0 {
		return 0
	}
	cols := make([]string, len(keep))
	for i, k := range keep {
		cols[i] = t.Columns[k]
	}
	for r, row := range t.Rows {
		cells := make([]string, len(keep))
		for i, k := range keep {
			if k < len(row) {
				cells[i] = row[k]
			}
		}
		t.Rows[r] = cells
	}
	t.Columns = cols
	return dropped
}
