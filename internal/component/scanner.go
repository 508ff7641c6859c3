package component

import (
	"context"
	"github.com/karrick/godirwalk"
	"github.com/mocukie/mngs/pkg/eventbus"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
)

const (
	EvtScannerNewJob = "scanner.new-job"
	EvtScannerDone   = "scanner.done"
	EvtScannerError  = "scanner.error"
)

type pathPair struct {
	src string
	dst string
}

type scannerResult struct {
	pp       []pathPair
	jobCount int
	errCount int
}

type PathScanner struct {
	config *Config
	eb     *eventbus.Bus
	result *scannerResult
}

// config.Src and config.Dest must be cleaned by filepath.Clean first
func NewPathScanner(eb *eventbus.Bus, config *Config) *PathScanner {
	return &PathScanner{eb: eb, config: config, result: new(scannerResult)}
}

// Scan queues a job per matching file and closes the job queue when done.
func (sc *PathScanner) Scan(ctx context.Context) {
	var conf = sc.config
	defer func() {
		close(conf.JobQueue)
		sc.eb.Publish(EvtScannerDone, sc.result)
	}()

	stat, err := os.Stat(conf.Src)
	if err != nil {
		sc.handleError(errors.Wrapf(err, "get <%s> stat failed", conf.Src))
		return
	}

	if !stat.IsDir() {
		job := &Job{
			Src:      conf.Src,
			Dst:      conf.Dest,
			Copy:     filepath.Ext(conf.Src) == filepath.Ext(conf.Dest),
			CopyMeta: conf.CopyMeta,
			Opts:     conf.Opts,
		}
		sc.sendJob(ctx, job)
		return
	}

	err = godirwalk.Walk(conf.Src, &godirwalk.Options{
		Callback: func(pathname string, de *godirwalk.Dirent) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return sc.walkDir(ctx, pathname, de)
		},
		ErrorCallback: func(s string, e error) godirwalk.ErrorAction {
			if ctx.Err() != nil {
				return godirwalk.Halt
			}
			sc.handleError(errors.Wrapf(e, "walk on file node <%s> failed", s))
			return godirwalk.SkipNode
		},
	})
	if err != nil && ctx.Err() == nil {
		sc.handleError(errors.Wrapf(err, "can not walk directory <%s>", conf.Src))
	}
}

func (sc *PathScanner) walkDir(ctx context.Context, pathname string, de *godirwalk.Dirent) error {
	var conf = sc.config
	if conf.Src == pathname {
		if err := os.MkdirAll(conf.Dest, os.ModePerm); err != nil {
			sc.handleError(errors.Wrapf(err, "can not make dest directory <%s>", conf.Dest))
			return godirwalk.SkipThis
		}
		return nil
	} else if conf.Dest == pathname || conf.LogPath == pathname {
		return godirwalk.SkipThis
	}

	rel, _ := filepath.Rel(conf.Src, pathname)
	outPathname := filepath.Join(conf.Dest, rel)
	if de.IsDir() {
		if !conf.Recursively {
			return godirwalk.SkipThis
		}
		if conf.CopyMeta {
			sc.result.pp = append(sc.result.pp, pathPair{src: pathname, dst: outPathname})
		}
		return nil
	}

	if conf.Match != nil && !conf.Match(pathname) {
		return nil
	}
	dst, same := conf.Target(outPathname)
	sc.sendJob(ctx, &Job{Src: pathname, Dst: dst, Copy: same, CopyMeta: conf.CopyMeta, Opts: conf.Opts})
	return nil
}

func (sc *PathScanner) handleError(err error) {
	sc.result.errCount++
	sc.eb.Publish(EvtScannerError, err)
}

func (sc *PathScanner) sendJob(ctx context.Context, job *Job) {
	select {
	case sc.config.JobQueue <- job:
		sc.result.jobCount++
		sc.eb.Publish(EvtScannerNewJob, job)
	case <-ctx.Done():
	}
}
