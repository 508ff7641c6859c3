package coder

const (
	StylePlainText = "plain_text"
	StyleHTML      = "html"
)

// Options carries the format specific settings of a single load or save.
// Codecs ignore fields that do not concern them.
type Options struct {
	// csv / tsv / excel
	IndexCol int
	Sheet    string

	// listed scalars and listed tables written to csv
	ColumnName string
	Round      int
	Suffixes   []string
	Overwrite  bool

	// yaml
	Lower bool

	// markdown
	Style string

	// joblib zlib level
	Compress int

	// raster figures and images
	DPI      int
	Quality  float32
	Lossless bool

	// mp4
	FPS int

	// sqlite: load only this table
	Table string

	// Notify receives informational notices such as relocated files.
	Notify func(format string, args ...interface{})
}

func DefaultOptions() *Options {
	return &Options{
		IndexCol:   -1,
		ColumnName: "_",
		Round:      3,
		Style:      StylePlainText,
		Compress:   3,
		DPI:        300,
		Quality:    75,
		FPS:        60,
	}
}

func (o *Options) notify(format string, args ...interface{}) {
	if o != nil && o.Notify != nil {
		o.Notify(format, args...)
	}
}
