package coder

import (
	"bufio"
	"encoding/csv"
	"github.com/mocukie/mngs/internal/pathx"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"io"
	"os"
	"regexp"
	"strconv"
)

// unnamedRe matches headers of index columns written without a name.
var unnamedRe = regexp.MustCompile(`^(Unnamed|$)`)

type CSV struct {
	name string
	exts []string
	sep  rune
}

func (c *CSV) Name() string         { return c.name }
func (c *CSV) Extensions() []string { return c.exts }

func (c *CSV) Decode(path string, opts *Options) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	t, err := ReadTable(bufio.NewReader(f), c.sep, opts.IndexCol)
	if err != nil {
		return nil, errors.WithMessagef(err, "[%s] parse failed", c.name)
	}
	if c.sep == ',' {
		t.DropColumns(unnamedRe.MatchString)
	}
	return t, nil
}

func (c *CSV) Encode(v interface{}, path string, opts *Options) error {
	switch val := v.(type) {
	case *payload.Table:
		return c.writeFile(path, func(w *csv.Writer) error { return WriteTable(w, val) })
	case payload.Table:
		return c.writeFile(path, func(w *csv.Writer) error { return WriteTable(w, &val) })
	case []*payload.Table:
		if c.sep != ',' {
			break
		}
		return writeListedTables(val, path, opts)
	}
	if c.sep == ',' {
		if scalars, ok := Scalars(v); ok {
			return writeListedScalars(scalars, path, opts)
		}
	}
	return errors.Errorf("[%s] unsupported payload %T", c.name, v)
}

func (c *CSV) writeFile(path string, body func(w *csv.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	w := csv.NewWriter(f)
	w.Comma = c.sep
	if err = body(w); err != nil {
		return err
	}
	w.Flush()
	return errors.Wrapf(w.Error(), "[%s] flush output failed", c.name)
}

// ReadTable parses a header row followed by records. indexCol selects the
// column used as row labels, -1 for none.
func ReadTable(r io.Reader, sep rune, indexCol int) (*payload.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return TableFromRecords(records, indexCol)
}

// TableFromRecords treats the first record as the header.
func TableFromRecords(records [][]string, indexCol int) (*payload.Table, error) {
	t := new(payload.Table)
	if len(records) == 0 {
		return t, nil
	}
	width := len(records[0])
	for _, rec := range records[1:] {
		if len(rec) > width {
			width = len(rec)
		}
	}
	header := padRecord(records[0], width)
	if indexCol >= width {
		return nil, errors.Errorf("index column %d out of range (%d columns)", indexCol, width)
	}
	for i, h := range header {
		if i == indexCol {
			t.IndexName = h
			continue
		}
		t.Columns = append(t.Columns, h)
	}
	for _, rec := range records[1:] {
		rec = padRecord(rec, width)
		row := make([]string, 0, len(t.Columns))
		for i, cell := range rec {
			if i == indexCol {
				t.Index = append(t.Index, cell)
				continue
			}
			row = append(row, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func padRecord(rec []string, width int) []string {
	for len(rec) < width {
		rec = append(rec, "")
	}
	return rec
}

// WriteTable writes the header and rows preceded by an index column. Tables
// without an index get positional labels under an empty header.
func WriteTable(w *csv.Writer, t *payload.Table) error {
	if err := w.Write(append([]string{t.IndexName}, t.Columns...)); err != nil {
		return errors.WithStack(err)
	}
	for i, row := range t.Rows {
		label := strconv.Itoa(i)
		if i < len(t.Index) {
			label = t.Index[i]
		}
		if err := w.Write(append([]string{label}, row...)); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Scalars reports whether v is a list of plain numbers and returns them as
// float64.
func Scalars(v interface{}) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []float32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int64:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(s))
		for i, x := range s {
			out[i] = float64(x)
		}
		return out, true
	case []interface{}:
		out := make([]float64, len(s))
		for i, x := range s {
			switch n := x.(type) {
			case float64:
				out[i] = n
			case float32:
				out[i] = float64(n)
			case int:
				out[i] = float64(n)
			case int64:
				out[i] = float64(n)
			default:
				return nil, false
			}
		}
		return out, len(s) > 0
	}
	return nil, false
}

func suffixes(opts *Options, n int) ([]string, error) {
	if len(opts.Suffixes) == 0 {
		out := make([]string, n)
		for i := range out {
			out[i] = strconv.Itoa(i)
		}
		return out, nil
	}
	if len(opts.Suffixes) != n {
		return nil, errors.Errorf("[CSV] %d suffixes for %d items", len(opts.Suffixes), n)
	}
	return opts.Suffixes, nil
}

func moveAside(path string, opts *Options) {
	if !opts.Overwrite {
		return
	}
	if dst, err := pathx.MoveToTemp(path, 2); err == nil {
		opts.notify("Moved to: %s", dst)
	}
}

func writeListedScalars(vals []float64, path string, opts *Options) error {
	labels, err := suffixes(opts, len(vals))
	if err != nil {
		return err
	}
	moveAside(path, opts)

	t := &payload.Table{Columns: []string{opts.ColumnName}, Index: labels}
	for _, v := range vals {
		t.AddRow(strconv.FormatFloat(v, 'f', opts.Round, 64))
	}
	c := &CSV{name: "CSV", sep: ','}
	return c.writeFile(path, func(w *csv.Writer) error { return WriteTable(w, t) })
}

// writeListedTables appends each table to path under a label row and
// follows it with a blank line.
func writeListedTables(tables []*payload.Table, path string, opts *Options) (err error) {
	labels, err := suffixes(opts, len(tables))
	if err != nil {
		return err
	}
	moveAside(path, opts)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	w := csv.NewWriter(f)
	for i, t := range tables {
		if err = w.Write([]string{labels[i]}); err != nil {
			return errors.WithStack(err)
		}
		if err = WriteTable(w, t); err != nil {
			return err
		}
		w.Flush()
		if err = w.Error(); err != nil {
			return errors.Wrap(err, "[CSV] flush output failed")
		}
		if _, err = f.WriteString("\n"); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func init() {
	Register(&CSV{name: "CSV", exts: []string{".csv"}, sep: ','})
	Register(&CSV{name: "TSV", exts: []string{".tsv"}, sep: '\t'})
}
