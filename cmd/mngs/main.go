package main

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/mocukie/mngs/internal/component"
	"github.com/mocukie/mngs/pkg/fileio"
	"github.com/mocukie/webp-go/webp"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"gopkg.in/vrecan/death.v3"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"
)

const version = "0.4.0"

var (
	pattern string
	lenient bool
	verbose bool

	cmdFlags    *flag.FlagSet
	configFlags *flag.FlagSet
	codecFlags  *flag.FlagSet
	miscFlags   *flag.FlagSet
)

func initConfig() *component.Config {
	var conf = new(component.Config)
	configFlags = flag.NewFlagSet("configFlags", flag.ContinueOnError)
	configFlags.BoolVarP(&conf.Recursively, "recursive", "r", false, "scan input directory recursively")
	configFlags.StringVarP(&pattern, "pattern", "p", "*", "file glob pattern in batch mode, e.g. \"*.npy|*.mat\"")
	configFlags.StringVarP(&conf.To, "to", "t", "", "target extension in batch mode, e.g. .csv (default keeps the source format)")
	configFlags.BoolVar(&conf.CopyMeta, "file_meta", false, "copy file mode and modification time")
	configFlags.IntVar(&conf.MaxGo, "max_go", runtime.NumCPU(), "max thread number")
	configFlags.StringVarP(&conf.Dest, "output", "o", "", "output file or directory")
	configFlags.StringVar(&conf.LogPath, "log", "", "log file directory")
	configFlags.SortFlags = false
	return conf
}

type codecSettings struct {
	indexCol   int
	sheet      string
	lower      bool
	columnName string
	round      int
	style      string
	compress   int
	dpi        int
	quality    float32
	lossless   bool
	fps        int
	table      string
}

func initCodecFlags() *codecSettings {
	var cs = new(codecSettings)
	codecFlags = flag.NewFlagSet("codecFlags", flag.ContinueOnError)
	codecFlags.IntVar(&cs.indexCol, "index_col", -1, "csv/excel column holding the row labels")
	codecFlags.StringVar(&cs.sheet, "sheet", "", "excel sheet to read or write")
	codecFlags.BoolVar(&cs.lower, "lower", false, "lowercase top level yaml keys")
	codecFlags.StringVar(&cs.columnName, "column_name", "_", "column name of listed scalars")
	codecFlags.IntVar(&cs.round, "round", 3, "decimals of listed scalars")
	codecFlags.StringVar(&cs.style, "style", "plain_text", "markdown output, one of: plain_text, html")
	codecFlags.IntVar(&cs.compress, "compress", 3, "joblib zlib level (0..9)")
	codecFlags.IntVar(&cs.dpi, "dpi", 300, "resolution of rendered vector figures")
	codecFlags.Float32VarP(&cs.quality, "quality", "q", webp.LossyDefaultQuality, "jpeg/webp quality factor (0:small..100:big)")
	codecFlags.BoolVar(&cs.lossless, "lossless", false, "encode webp losslessly")
	codecFlags.IntVar(&cs.fps, "fps", 60, "frame rate of mp4 animations")
	codecFlags.StringVar(&cs.table, "table", "", "sqlite table to read or write")
	codecFlags.SortFlags = false
	return cs
}

// options turns the codec flags given on the command line into fileio
// options. Flags left at their default are not passed on.
func (cs *codecSettings) options(fs *flag.FlagSet) []fileio.Option {
	var opts []fileio.Option
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("index_col") {
		opts = append(opts, fileio.IndexCol(cs.indexCol))
	}
	if changed("sheet") {
		opts = append(opts, fileio.Sheet(cs.sheet))
	}
	if cs.lower {
		opts = append(opts, fileio.Lower())
	}
	if changed("column_name") {
		opts = append(opts, fileio.ColumnName(cs.columnName))
	}
	if changed("round") {
		opts = append(opts, fileio.Round(cs.round))
	}
	if changed("style") {
		opts = append(opts, fileio.MarkdownStyle(cs.style))
	}
	if changed("compress") {
		opts = append(opts, fileio.Compress(cs.compress))
	}
	if changed("dpi") {
		opts = append(opts, fileio.DPI(cs.dpi))
	}
	if changed("quality") {
		opts = append(opts, fileio.Quality(cs.quality))
	}
	if cs.lossless {
		opts = append(opts, fileio.Lossless())
	}
	if changed("fps") {
		opts = append(opts, fileio.FPS(cs.fps))
	}
	if changed("table") {
		opts = append(opts, fileio.TableName(cs.table))
	}
	if lenient {
		opts = append(opts, fileio.Lenient())
	}
	if verbose {
		opts = append(opts, fileio.Show())
	}
	return opts
}

func setupConfig(conf *component.Config, args []string) error {
	var err error

	conf.Match, err = component.NewGlobMatcher(pattern)
	if err != nil {
		return errors.WithMessage(err, "invalid pattern: "+pattern)
	}
	if conf.To != "" && conf.To[0] != '.' {
		conf.To = "." + conf.To
	}
	if conf.MaxGo <= 0 {
		conf.MaxGo = runtime.NumCPU()
	}

	if len(args) == 0 || args[0] == "" {
		return errors.New("input not specify")
	}
	conf.Src = filepath.Clean(args[0])
	stat, err := os.Stat(conf.Src)

	if conf.Dest == "" {
		if err == nil && !stat.IsDir() && conf.To != "" {
			conf.Dest = conf.Src[:len(conf.Src)-len(filepath.Ext(conf.Src))] + conf.To
		} else {
			return errors.New("output not specify")
		}
	}
	conf.Dest = filepath.Clean(conf.Dest)

	if conf.LogPath == "" {
		if err == nil && stat.IsDir() {
			conf.LogPath = conf.Dest
		} else {
			conf.LogPath = filepath.Dir(conf.Dest)
		}
	}
	conf.LogPath = filepath.Clean(conf.LogPath)
	return nil
}

func printBanner() {
	var banner = `  __  __   _   _    ____   ____
 |  \/  | | \ | |  / ___| / ___|
 | |\/| | |  \| | | |  _  \___ \
 | |  | | | |\  | | |_| |  ___) |
 |_|  |_| |_| \_|  \____| |____/
 %32v
==================================
`
	fmt.Printf(banner, "libwebp: v"+webp.EncoderVersion().String())
}

func printUsage() {
	printBanner()
	name := filepath.Base(os.Args[0])
	fmt.Println("Usage:")
	fmt.Printf("\t%v [options] /path/to/file/or/dir -o out/file/or/dir\n", name)
	fmt.Printf("\t%v inspect [options] /path/to/file...\n", name)
	fmt.Println()

	fmt.Println("Options:")
	fmt.Print(configFlags.FlagUsages())
	fmt.Print(miscFlags.FlagUsages())
	fmt.Println()

	fmt.Println("Format Options:")
	fmt.Print(codecFlags.FlagUsages())
	fmt.Println()

	fmt.Println("Formats:")
	fmt.Println(fileio.Extensions())
}

func inspect(paths []string, opts []fileio.Option) int {
	if len(paths) == 0 {
		fmt.Println("nothing to inspect")
		return 1
	}
	status := 0
	for _, p := range paths {
		v, err := fileio.Load(p, opts...)
		if err != nil {
			fmt.Printf("%s: %v\n", p, err)
			status = 1
			continue
		}
		fmt.Printf("%s\n  %s\n", p, describe(v))
	}
	return status
}

func convert(conf *component.Config, opts []fileio.Option) error {
	if err := os.MkdirAll(conf.LogPath, os.ModePerm); err != nil {
		return errors.Wrapf(err, "can not make log directory <%s>", conf.LogPath)
	}
	logPath := filepath.Join(conf.LogPath, time.Now().Format("mngs-2006-01-02T15.04.05Z07.00.log"))
	logOut, err := os.Create(logPath)
	if err != nil {
		return errors.Wrap(err, "can not create log file")
	}
	defer logOut.Close()
	conf.LogPath = logPath

	conf.BatchID = uuid.NewString()
	conf.Opts = append(opts, fileio.TraceID(conf.BatchID))
	ctx, abort := context.WithCancel(context.Background())
	defer abort()

	hook := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	go hook.WaitForDeathWithFunc(abort)

	printBanner()
	mo := component.Run(ctx, conf, nil, logOut)
	if mo.Errs > 0 {
		return errors.Errorf("%d errors, see <%s>", mo.Errs, logPath)
	}
	fmt.Println("\nDone.")
	return nil
}

func main() {
	args := os.Args[1:]
	inspectMode := len(args) > 0 && args[0] == "inspect"
	if inspectMode {
		args = args[1:]
	}

	conf := initConfig()
	codec := initCodecFlags()

	miscFlags = flag.NewFlagSet("miscFlags", flag.ContinueOnError)
	miscFlags.BoolVar(&lenient, "lenient", false, "log codec failures and go on instead of failing")
	miscFlags.BoolVar(&verbose, "verbose", false, "print a line per loaded file")
	showVersion := miscFlags.BoolP("version", "v", false, "print version")
	miscFlags.SortFlags = false

	cmdFlags = flag.NewFlagSet("cmdFlags", flag.ContinueOnError)
	cmdFlags.AddFlagSet(configFlags)
	cmdFlags.AddFlagSet(codecFlags)
	cmdFlags.AddFlagSet(miscFlags)
	cmdFlags.Usage = printUsage
	cmdFlags.SortFlags = false
	err := cmdFlags.Parse(args)
	if err == flag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("mngs v%s (libwebp v%v)\n", version, webp.EncoderVersion())
		os.Exit(0)
	}

	opts := codec.options(cmdFlags)
	if inspectMode {
		os.Exit(inspect(cmdFlags.Args(), opts))
	}

	if err = setupConfig(conf, cmdFlags.Args()); err != nil {
		log.Fatal(err)
	}
	if err = convert(conf, opts); err != nil {
		log.Fatal(err)
	}
}
