package coder

import (
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// fileURI turns path into a SQLite file URI with the given access mode.
// Path characters such as '?', '#' and '%' are escaped.
func fileURI(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "[SQLite] resolve <%s> failed", path)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := &url.URL{Scheme: "file", Path: p, RawQuery: "mode=" + mode}
	return u.String(), nil
}

const listTables = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

// SQLite loads every user table of a database file as a *payload.Table.
// With Options.Table set only that table is returned.
type SQLite struct{}

func (*SQLite) Name() string         { return "SQLite" }
func (*SQLite) Extensions() []string { return []string{".db", ".sqlite", ".sqlite3"} }

func (*SQLite) Decode(path string, opts *Options) (interface{}, error) {
	uri, err := fileURI(path, "ro")
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", uri)
	if err != nil {
		return nil, errors.Wrap(err, "[SQLite] open database failed")
	}
	defer db.Close()

	if opts.Table != "" {
		return readTable(db, opts.Table)
	}
	var names []string
	if err = db.Select(&names, listTables); err != nil {
		return nil, errors.Wrap(err, "[SQLite] list tables failed")
	}
	out := make(map[string]*payload.Table, len(names))
	for _, name := range names {
		if out[name], err = readTable(db, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readTable(db *sqlx.DB, name string) (*payload.Table, error) {
	rows, err := db.Queryx("SELECT * FROM " + quoteIdent(name))
	if err != nil {
		return nil, errors.Wrapf(err, "[SQLite] query table %s failed", name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	t := payload.NewTable(cols...)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, errors.Wrapf(err, "[SQLite] scan table %s failed", name)
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = cellString(v)
		}
		t.AddRow(cells...)
	}
	return t, errors.WithStack(rows.Err())
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// Encode writes each table as TEXT columns, replacing existing tables of
// the same name. A table index is stored as a leading column.
func (*SQLite) Encode(v interface{}, path string, opts *Options) error {
	tables := map[string]*payload.Table{}
	switch val := v.(type) {
	case map[string]*payload.Table:
		tables = val
	default:
		t, ok := tableOf(v)
		if !ok {
			return errors.Errorf("[SQLite] unsupported payload %T", v)
		}
		name := opts.Table
		if name == "" {
			name = "data"
		}
		tables[name] = t
	}

	uri, err := fileURI(path, "rwc")
	if err != nil {
		return err
	}
	db, err := sqlx.Open("sqlite", uri)
	if err != nil {
		return errors.Wrap(err, "[SQLite] open database failed")
	}
	defer db.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	tx, err := db.Beginx()
	if err != nil {
		return errors.WithStack(err)
	}
	for _, name := range names {
		if err = writeTable(tx, name, tables[name]); err != nil {
			_ = tx.Rollback()
			return errors.WithMessagef(err, "[SQLite] table %s", name)
		}
	}
	return errors.Wrap(tx.Commit(), "[SQLite] commit failed")
}

func writeTable(tx *sqlx.Tx, name string, t *payload.Table) error {
	cols := t.Columns
	if t.HasIndex() {
		idx := t.IndexName
		if idx == "" {
			idx = "index"
		}
		cols = append([]string{idx}, cols...)
	}
	if len(cols) == 0 {
		return errors.New("table has no columns")
	}
	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}
	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(name)); err != nil {
		return errors.WithStack(err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return errors.WithStack(err)
	}
	stmt, err := tx.Preparex(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), strings.Join(marks, ", ")))
	if err != nil {
		return errors.WithStack(err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		args := make([]interface{}, 0, len(cols))
		if t.HasIndex() {
			var label string
			if i < len(t.Index) {
				label = t.Index[i]
			}
			args = append(args, label)
		}
		for j := range t.Columns {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			args = append(args, cell)
		}
		if _, err = stmt.Exec(args...); err != nil {
			return errors.Wrapf(err, "insert row %d failed", i)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func init() {
	Register(&SQLite{})
}
