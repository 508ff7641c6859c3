package coder

import (
	"encoding/json"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"io"
	"os"
	"strconv"
)

const (
	parquetIndexColumn = "__index_level_0__"
	parquetColumnsKey  = "mngs.columns"
	parquetIndexKey    = "mngs.index_name"
)

type Parquet struct{}

func (*Parquet) Name() string         { return "Parquet" }
func (*Parquet) Extensions() []string { return []string{".parquet"} }

func (*Parquet) Decode(path string, _ *Options) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, errors.Wrap(err, "[Parquet] open file failed")
	}

	fields := pf.Schema().Fields()
	leaf := make(map[string]int, len(fields))
	var names []string
	for i, field := range fields {
		leaf[field.Name()] = i
		if field.Name() != parquetIndexColumn {
			names = append(names, field.Name())
		}
	}
	if raw, ok := pf.Lookup(parquetColumnsKey); ok {
		var ordered []string
		if json.Unmarshal([]byte(raw), &ordered) == nil && len(ordered) == len(names) {
			names = ordered
		}
	}

	t := &payload.Table{Columns: names}
	t.IndexName, _ = pf.Lookup(parquetIndexKey)
	idxCol, hasIndex := leaf[parquetIndexColumn]

	r := parquet.NewReader(f)
	defer r.Close()
	buf := make([]parquet.Row, 256)
	for {
		n, err := r.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]string, len(fields))
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(cells) {
					cells[c] = valueString(v)
				}
			}
			out := make([]string, len(names))
			for i, name := range names {
				out[i] = cells[leaf[name]]
			}
			t.Rows = append(t.Rows, out)
			if hasIndex {
				t.Index = append(t.Index, cells[idxCol])
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "[Parquet] read rows failed")
		}
	}
	return t, nil
}

func valueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	}
	return string(v.ByteArray())
}

// Encode stores every cell as a UTF-8 string column. The index goes into the
// pandas index column when the table has one.
func (*Parquet) Encode(v interface{}, path string, _ *Options) (err error) {
	t, ok := tableOf(v)
	if !ok {
		return errors.Errorf("[Parquet] unsupported payload %T", v)
	}

	group := parquet.Group{}
	for _, c := range t.Columns {
		if _, dup := group[c]; dup || c == parquetIndexColumn {
			return errors.Errorf("[Parquet] duplicate or reserved column %q", c)
		}
		group[c] = parquet.String()
	}
	if t.HasIndex() {
		group[parquetIndexColumn] = parquet.String()
	}
	schema := parquet.NewSchema("table", group)
	leaf := make(map[string]int, len(group))
	for i, field := range schema.Fields() {
		leaf[field.Name()] = i
	}
	order, _ := json.Marshal(t.Columns)

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	w := parquet.NewWriter(f, schema,
		parquet.KeyValueMetadata(parquetColumnsKey, string(order)),
		parquet.KeyValueMetadata(parquetIndexKey, t.IndexName),
	)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for i, cells := range t.Rows {
		row := make(parquet.Row, len(group))
		for j, name := range t.Columns {
			var cell string
			if j < len(cells) {
				cell = cells[j]
			}
			row[leaf[name]] = parquet.ValueOf(cell).Level(0, 0, leaf[name])
		}
		if t.HasIndex() {
			var label string
			if i < len(t.Index) {
				label = t.Index[i]
			}
			row[leaf[parquetIndexColumn]] = parquet.ValueOf(label).Level(0, 0, leaf[parquetIndexColumn])
		}
		rows = append(rows, row)
	}
	if _, err = w.WriteRows(rows); err != nil {
		return errors.Wrap(err, "[Parquet] write rows failed")
	}
	return errors.Wrap(w.Close(), "[Parquet] close writer failed")
}

func init() {
	Register(&Parquet{})
}
