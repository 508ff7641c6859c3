package fileio

import (
	"fmt"
	"github.com/mattn/go-colorable"
	"io"
	"log"
	"strings"
)

// Logger receives the notices Load and Save print. keysAndValues are
// alternating keys and values.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorReset  = "\x1b[0m"
)

// ConsoleLogger writes level prefixed, color tagged lines.
type ConsoleLogger struct {
	errLog   *log.Logger
	warnLog  *log.Logger
	infoLog  *log.Logger
	debugLog *log.Logger
	color    bool
	// Debugging enables Debug lines.
	Debugging bool
}

// NewConsoleLogger logs to out. Colors are used only when color is set.
func NewConsoleLogger(out io.Writer, color bool) *ConsoleLogger {
	flag := log.LstdFlags | log.Lmicroseconds
	return &ConsoleLogger{
		errLog:   log.New(out, "[ERROR] ", flag),
		warnLog:  log.New(out, "[WARN ] ", flag),
		infoLog:  log.New(out, "[INFO ] ", flag),
		debugLog: log.New(out, "[DEBUG] ", flag),
		color:    color,
	}
}

var stdout = NewConsoleLogger(colorable.NewColorableStdout(), true)

// Stdout is the default logger.
func Stdout() *ConsoleLogger {
	return stdout
}

func (cl *ConsoleLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.infoLog.Println(cl.line(colorYellow, msg, keysAndValues))
}

func (cl *ConsoleLogger) Warn(msg string, keysAndValues ...interface{}) {
	cl.warnLog.Println(cl.line(colorYellow, msg, keysAndValues))
}

func (cl *ConsoleLogger) Error(msg string, keysAndValues ...interface{}) {
	cl.errLog.Println(cl.line(colorRed, msg, keysAndValues))
}

func (cl *ConsoleLogger) Debug(msg string, keysAndValues ...interface{}) {
	if cl.Debugging {
		cl.debugLog.Println(cl.line(colorCyan, msg, keysAndValues))
	}
}

func (cl *ConsoleLogger) line(color, msg string, kv []interface{}) string {
	var sb strings.Builder
	if cl.color {
		sb.WriteString(color + msg + colorReset)
	} else {
		sb.WriteString(msg)
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&sb, " %v", kv[i])
		}
	}
	return sb.String()
}

type noopLogger struct{}

func (noopLogger) Info(_ string, _ ...interface{})  {}
func (noopLogger) Warn(_ string, _ ...interface{})  {}
func (noopLogger) Error(_ string, _ ...interface{}) {}
func (noopLogger) Debug(_ string, _ ...interface{}) {}

// Discard drops every notice.
var Discard Logger = noopLogger{}
