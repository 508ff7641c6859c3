package component

import (
	"context"
	"github.com/mocukie/mngs/internal/coder"
	"github.com/mocukie/mngs/internal/iox"
	"github.com/mocukie/mngs/pkg/eventbus"
	"github.com/mocukie/mngs/pkg/fileio"
	"github.com/pkg/errors"
	"github.com/zoobzio/capitan"
	"os"
	"sync"
	"time"
)

const (
	EvtTransferDone    = "transfer.done"
	EvtTransferJobDone = "transfer.job-done"
)

// JobDone is emitted once per finished batch job.
var JobDone = capitan.NewSignal("mngs.batch.job.done", "Batch job finished")

var (
	FieldBatchID = capitan.NewStringKey("batch_id")
	FieldSrc     = capitan.NewStringKey("src")
	FieldDst     = capitan.NewStringKey("dst")
)

type Job struct {
	Src      string
	Dst      string
	Copy     bool
	CopyMeta bool
	Opts     []fileio.Option
	Err      error
	Warnings []error
	Elapsed  time.Duration
}

// warnings turns the notices of a load or save into job warnings.
type warnings struct {
	job *Job
}

func (w warnings) Info(string, ...interface{})  {}
func (w warnings) Debug(string, ...interface{}) {}

func (w warnings) Warn(msg string, _ ...interface{}) {
	w.job.Warnings = append(w.job.Warnings, errors.New(msg))
}

func (w warnings) Error(msg string, _ ...interface{}) {
	w.job.Warnings = append(w.job.Warnings, errors.New(msg))
}

func (job *Job) do() {
	start := time.Now()
	defer func() { job.Elapsed = time.Since(start) }()

	if job.Copy {
		err, w := iox.Pipe(iox.NewFileInput(job.Src, nil), iox.NewFileOutput(job.Dst), &coder.Copy{}, job.CopyMeta)
		job.Err = err
		job.Warnings = append(job.Warnings, w...)
		return
	}

	opts := append(append([]fileio.Option{}, job.Opts...), fileio.WithLogger(warnings{job}), fileio.Verbose(false))
	v, err := fileio.Load(job.Src, append(opts, fileio.Strict())...)
	if err != nil {
		job.Err = err
		return
	}
	if job.Err = fileio.Save(v, job.Dst, opts...); job.Err != nil {
		return
	}
	if job.CopyMeta {
		if err := copyMeta(job.Src, job.Dst); err != nil {
			job.Warnings = append(job.Warnings, err)
		}
	}
}

func copyMeta(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = os.Chmod(dst, info.Mode()); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Chtimes(dst, time.Now(), info.ModTime()))
}

type Transfer struct {
	sub      eventbus.Subscriber
	maxGo    int
	batchID  string
	jobQueue <-chan *Job
	eb       *eventbus.Bus
}

func NewTransfer(eb *eventbus.Bus, config *Config) *Transfer {
	tr := &Transfer{
		sub:      make(eventbus.Subscriber, 1),
		maxGo:    config.MaxGo,
		batchID:  config.BatchID,
		jobQueue: config.JobQueue,
		eb:       eb,
	}
	eb.Subscribe(tr.sub, EvtScannerDone)
	return tr
}

// Start runs jobs until the scanner closes the queue or ctx is cancelled,
// then applies the directory metadata the scanner collected.
func (tr *Transfer) Start(ctx context.Context) {
	defer tr.eb.Unsubscribe(tr.sub, EvtScannerDone)

	n := tr.maxGo
	if n <= 0 {
		n = 1
	}
	var wg = new(sync.WaitGroup)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go tr.worker(ctx, wg)
	}
	wg.Wait()

	select {
	case msg := <-tr.sub:
		sc := msg.Data.(*scannerResult)
		for _, pair := range sc.pp {
			_ = copyMeta(pair.src, pair.dst)
		}
	case <-ctx.Done():
	}
	tr.eb.Publish(EvtTransferDone, nil)
}

func (tr *Transfer) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-tr.jobQueue:
			if !ok {
				return
			}
			job.do()
			fields := []capitan.Field{FieldBatchID.Field(tr.batchID), FieldSrc.Field(job.Src), FieldDst.Field(job.Dst)}
			if job.Err != nil {
				capitan.Error(ctx, JobDone, append(fields, fileio.FieldError.Field(job.Err))...)
			} else {
				capitan.Emit(ctx, JobDone, append(fields, fileio.FieldDuration.Field(job.Elapsed))...)
			}
			tr.eb.Publish(EvtTransferJobDone, job)
		case <-ctx.Done():
			return
		}
	}
}
