package component

import (
	"context"
	"github.com/mocukie/mngs/pkg/eventbus"
	"io"
	"sync"
)

// Run converts conf.Src into conf.Dest and returns the monitor holding the
// final counters. A nil console means the colored stdout.
func Run(ctx context.Context, conf *Config, console, logOut io.Writer) *Monitor {
	if conf.JobQueue == nil {
		conf.JobQueue = make(chan *Job, 1024)
	}
	var (
		eb       = eventbus.New(1024)
		transfer = NewTransfer(eb, conf)
		monitor  = NewMonitor(eb, console, logOut)
		scanner  = NewPathScanner(eb, conf)
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		transfer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		scanner.Scan(ctx)
	}()
	monitor.Start(ctx)

	// a cancelled monitor may leave deliveries in flight
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-monitor.sub:
			case <-done:
				return
			}
		}
	}()
	wg.Wait()
	eb.Close()
	close(done)
	return monitor
}
