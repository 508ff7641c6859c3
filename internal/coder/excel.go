package coder

import (
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"strconv"
)

type Excel struct{}

func (*Excel) Name() string { return "Excel" }
func (*Excel) Extensions() []string {
	return []string{".xls", ".xlsx", ".xlsm", ".xlsb"}
}

func (*Excel) Decode(path string, opts *Options) (interface{}, error) {
	if ext := extOf(path); ext == ".xls" || ext == ".xlsb" {
		return nil, errors.Errorf("[Excel] %s workbooks are not supported, convert to .xlsx", ext)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[Excel] open workbook failed")
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return new(payload.Table), nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "[Excel] read sheet %q failed", sheet)
	}
	return TableFromRecords(rows, opts.IndexCol)
}

func (*Excel) Encode(v interface{}, path string, opts *Options) error {
	if ext := extOf(path); ext == ".xls" || ext == ".xlsb" {
		return errors.Errorf("[Excel] can not write %s workbooks", ext)
	}
	t, ok := tableOf(v)
	if !ok {
		return errors.Errorf("[Excel] unsupported payload %T", v)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	if opts.Sheet != "" && opts.Sheet != sheet {
		if err := f.SetSheetName(sheet, opts.Sheet); err != nil {
			return errors.Wrap(err, "[Excel] rename sheet failed")
		}
		sheet = opts.Sheet
	}

	header := append([]string{t.IndexName}, t.Columns...)
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		label := strconv.Itoa(i)
		if i < len(t.Index) {
			label = t.Index[i]
		}
		if err := setRow(f, sheet, i+2, append([]string{label}, row...)); err != nil {
			return err
		}
	}
	return errors.Wrap(f.SaveAs(path), "[Excel] save workbook failed")
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.WithStack(err)
	}
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	return errors.Wrapf(f.SetSheetRow(sheet, cell, &vals), "[Excel] write row %d failed", row)
}

func tableOf(v interface{}) (*payload.Table, bool) {
	switch t := v.(type) {
	case *payload.Table:
		return t, true
	case payload.Table:
		return &t, true
	}
	return nil, false
}

func init() {
	Register(&Excel{})
}
