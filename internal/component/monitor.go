package component

import (
	"context"
	"fmt"
	"github.com/mattn/go-colorable"
	"github.com/mocukie/mngs/pkg/eventbus"
	"io"
	"log"
	"time"
)

var requireTopics = []eventbus.Topic{
	EvtScannerNewJob,
	EvtScannerError,
	EvtScannerDone,
	EvtTransferJobDone,
	EvtTransferDone,
}

type counter struct {
	v int
	t int
}

// Monitor counts batch events. Progress goes to the console once per
// second and every failure to the log.
type Monitor struct {
	eb         *eventbus.Bus
	sub        eventbus.Subscriber
	console    io.Writer
	errLog     *log.Logger
	warnLog    *log.Logger
	infoLog    *log.Logger
	Convert    counter
	Copy       counter
	Errs       int
	Warnings   int
	jobCount   counter
	scannerErr int
	startTime  time.Time
}

func NewMonitor(eb *eventbus.Bus, console, logOut io.Writer) *Monitor {
	if console == nil {
		console = colorable.NewColorableStdout()
	}
	m := &Monitor{eb: eb, console: console, sub: make(eventbus.Subscriber, 512)}
	eb.Subscribe(m.sub, requireTopics...)
	flag := log.LstdFlags | log.Lmicroseconds
	m.errLog = log.New(logOut, "[ERROR] ", flag)
	m.warnLog = log.New(logOut, "[WARN ] ", flag)
	m.infoLog = log.New(logOut, "[INFO ] ", flag)
	return m
}

// Start returns once the scanner and the transfer are done and every job
// event has arrived, or when ctx is cancelled.
func (mo *Monitor) Start(ctx context.Context) {
	var (
		sub          = mo.sub
		transferDone = false
		t1s          = time.NewTicker(1 * time.Second)
		t30s         = time.NewTicker(30 * time.Second)
		sc           *scannerResult
	)
	mo.startTime = time.Now()
	mo.hideCursor()
Loop:
	for {
		select {
		case msg := <-sub:
			switch msg.Topic {
			case EvtTransferDone:
				transferDone = true
			case EvtScannerDone:
				sc, _ = msg.Data.(*scannerResult)
			default:
				mo.processEvent(msg)
			}
			if transferDone && sc != nil &&
				mo.jobCount.v == sc.jobCount &&
				mo.jobCount.t == sc.jobCount &&
				mo.scannerErr == sc.errCount {
				break Loop
			}
		case <-t1s.C:
			mo.updateConsole()
		case <-t30s.C:
			mo.logCounter()
		case <-ctx.Done():
			break Loop
		}
	}
	t1s.Stop()
	t30s.Stop()
	mo.updateConsole()
	fmt.Fprintln(mo.console)
	mo.showCursor()
	mo.eb.Unsubscribe(sub, requireTopics...)
	mo.logCounter()
}

func (mo *Monitor) processEvent(msg eventbus.Message) {
	switch msg.Topic {
	case EvtScannerNewJob:
		job := msg.Data.(*Job)
		if job.Copy {
			mo.Copy.t++
		} else {
			mo.Convert.t++
		}
		mo.jobCount.v++
	case EvtTransferJobDone:
		mo.jobCount.t++
		job := msg.Data.(*Job)
		if job.Err != nil {
			mo.Errs++
			mo.errLog.Printf("[Transfer] <%s> -> <%s>\n%+v\n", job.Src, job.Dst, job.Err)
		} else if job.Copy {
			mo.Copy.v++
		} else {
			mo.Convert.v++
		}
		mo.Warnings += len(job.Warnings)
		for _, warn := range job.Warnings {
			mo.warnLog.Printf("[Transfer] <%s> -> <%s>\n%+v\n", job.Src, job.Dst, warn)
		}
	case EvtScannerError:
		mo.scannerErr++
		mo.Errs++
		err, _ := msg.Data.(error)
		mo.errLog.Printf("[Scanner] %+v\n", err)
	}
}

func (mo *Monitor) updateConsole() {
	fmt.Fprintf(mo.console, "\r\x1b[36mconv\x1b[0m: %d/%d | \x1b[32mcopy\x1b[0m: %d/%d | \x1B[31merror\x1b[0m: %d | \x1b[33mwarn\x1B[0m: %d | elapsed: %10v",
		mo.Convert.v, mo.Convert.t, mo.Copy.v, mo.Copy.t, mo.Errs, mo.Warnings, time.Since(mo.startTime).Round(time.Millisecond))
}

func (mo *Monitor) logCounter() {
	mo.infoLog.Printf("conv: %d/%d | copy: %d/%d | error: %d | warn: %d | elapsed: %10v\n",
		mo.Convert.v, mo.Convert.t, mo.Copy.v, mo.Copy.t, mo.Errs, mo.Warnings, time.Since(mo.startTime))
}

func (mo *Monitor) hideCursor() {
	fmt.Fprint(mo.console, "\033[?25l")
}

func (mo *Monitor) showCursor() {
	fmt.Fprint(mo.console, "\033[?25h")
}
