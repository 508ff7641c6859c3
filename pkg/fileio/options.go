package fileio

import (
	"fmt"
	"github.com/mocukie/mngs/internal/coder"
)

type settings struct {
	show           bool
	verbose        bool
	lenient        bool
	strict         bool
	makedirs       bool
	outDir         string
	scriptRelative bool
	workers        int
	traceID        string
	logger         Logger
	registry       *coder.Registry
	codec          *coder.Options
}

// Option configures a single Load or Save call.
type Option func(*settings)

func newSettings(opts []Option, verbose bool) *settings {
	s := &settings{
		verbose:  verbose,
		makedirs: true,
		logger:   Stdout(),
		registry: coder.Default(),
		codec:    coder.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec.Notify = func(format string, args ...interface{}) {
		s.logger.Info(fmt.Sprintf(format, args...))
	}
	return s
}

// Show prints a confirmation line after loading.
func Show() Option {
	return func(s *settings) { s.show = true }
}

// Verbose toggles confirmation lines. Save confirms by default.
func Verbose(v bool) Option {
	return func(s *settings) { s.verbose = v }
}

// Lenient logs codec failures and returns an empty result instead of an
// error. Saving to an unknown extension still fails.
func Lenient() Option {
	return func(s *settings) { s.lenient, s.strict = true, false }
}

// Strict makes Load fail on unknown extensions instead of returning an
// empty result.
func Strict() Option {
	return func(s *settings) { s.strict, s.lenient = true, false }
}

// NoMakedirs stops Save from creating missing parent directories.
func NoMakedirs() Option {
	return func(s *settings) { s.makedirs = false }
}

// OutDir places bare file names passed to Save under dir.
func OutDir(dir string) Option {
	return func(s *settings) { s.outDir = dir }
}

// ScriptRelative places bare file names passed to Save under
// "<executable dir>/<executable name>_out".
func ScriptRelative() Option {
	return func(s *settings) { s.scriptRelative = true }
}

// Workers bounds the goroutines LoadAll uses. Zero means one per CPU.
func Workers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// TraceID tags the events of the call.
func TraceID(id string) Option {
	return func(s *settings) { s.traceID = id }
}

func WithLogger(l Logger) Option {
	return func(s *settings) {
		if l == nil {
			l = Discard
		}
		s.logger = l
	}
}

// WithRegistry dispatches through r instead of the built-in registry.
func WithRegistry(r *Registry) Option {
	return func(s *settings) { s.registry = r }
}

// IndexCol uses column i of a csv, tsv or excel file as row labels.
func IndexCol(i int) Option {
	return func(s *settings) { s.codec.IndexCol = i }
}

// Sheet selects the excel sheet to read or names the one written.
func Sheet(name string) Option {
	return func(s *settings) { s.codec.Sheet = name }
}

// Lower lowercases the top level keys of a loaded yaml mapping.
func Lower() Option {
	return func(s *settings) { s.codec.Lower = true }
}

// ColumnName names the column of listed scalars saved as csv.
func ColumnName(name string) Option {
	return func(s *settings) { s.codec.ColumnName = name }
}

// Round sets the decimals of listed scalars saved as csv.
func Round(n int) Option {
	return func(s *settings) { s.codec.Round = n }
}

// Suffixes labels listed scalars or tables saved as csv.
func Suffixes(labels ...string) Option {
	return func(s *settings) { s.codec.Suffixes = labels }
}

// Overwrite moves an existing csv destination to the temp directory before
// listed scalars or tables are written.
func Overwrite() Option {
	return func(s *settings) { s.codec.Overwrite = true }
}

// MarkdownStyle is "plain_text" (default) or "html".
func MarkdownStyle(style string) Option {
	return func(s *settings) { s.codec.Style = style }
}

// Compress sets the joblib zlib level.
func Compress(level int) Option {
	return func(s *settings) { s.codec.Compress = level }
}

// DPI sets the resolution vector figures are rendered at.
func DPI(dpi int) Option {
	return func(s *settings) { s.codec.DPI = dpi }
}

// Quality sets the jpeg and webp quality factor.
func Quality(q float32) Option {
	return func(s *settings) { s.codec.Quality = q }
}

// Lossless encodes webp losslessly.
func Lossless() Option {
	return func(s *settings) { s.codec.Lossless = true }
}

// FPS sets the frame rate of saved animations.
func FPS(n int) Option {
	return func(s *settings) { s.codec.FPS = n }
}

// TableName selects the sqlite table to read or names the one written.
func TableName(name string) Option {
	return func(s *settings) { s.codec.Table = name }
}
