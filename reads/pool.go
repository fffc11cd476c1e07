package reads

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrAborted marks a run stopped because another task failed or the caller
// cancelled it.
var ErrAborted = errors.New("ingestion aborted")

const DefaultBatchSize = 1024

// Batch is a group of fragments from one source.
type Batch struct {
	Source int
	Frags  []Fragment
}

// Pool runs one task per read source on a fixed number of workers. Tasks push
// full batches into a single-slot handoff so one reader can prepare the next
// batch while the consumer works on the current one; in-flight memory stays
// proportional to the number of workers.
type Pool struct {
	Workers   int
	BatchSize int
	Metrics   *Metrics

	// aborted is the cooperative abort flag of the current run. It lives on
	// the pool, not the process, and is cleared when Run returns.
	aborted atomic.Bool
}

// NewPool returns a pool with workers goroutines.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{Workers: workers, BatchSize: DefaultBatchSize, Metrics: NewMetrics(nil)}
}

// Aborted reports whether the current run has been told to stop.
func (p *Pool) Aborted() bool {
	return p.aborted.Load()
}

type runState struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	err    error
	pool   *Pool
}

func (rs *runState) fail(err error) {
	rs.once.Do(func() {
		rs.err = err
		rs.pool.aborted.Store(true)
		rs.cancel()
	})
}

func (rs *runState) stopped() bool {
	return rs.pool.aborted.Load() || rs.ctx.Err() != nil
}

// Run reads every source to exhaustion and hands the batches to consume,
// which always runs on the calling goroutine. The first source or consumer
// error aborts all tasks and is returned; sources are not closed.
func (p *Pool) Run(ctx context.Context, srcs []Source, consume func(Batch) error) error {
	if p.Metrics == nil {
		p.Metrics = NewMetrics(nil)
	}
	batchSize := p.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	defer p.aborted.Store(false)

	rs := &runState{pool: p}
	rs.ctx, rs.cancel = context.WithCancel(ctx)
	defer rs.cancel()

	tasks := make(chan int, len(srcs))
	for i := range srcs {
		tasks <- i
	}
	close(tasks)

	handoff := make(chan Batch, 1)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				if rs.stopped() {
					return
				}
				if err := p.readSource(rs, i, srcs[i], batchSize, handoff); err != nil {
					p.Metrics.SourceFailures.Inc()
					rs.fail(err)
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(handoff)
	}()

	var fragNum int
	for b := range handoff {
		if rs.stopped() {
			continue // drain so that no task stays blocked
		}
		if err := consume(b); err != nil {
			rs.fail(errors.Wrapf(err, "[Pool.Run] consume batch of source %d", b.Source))
			continue
		}
		fragNum += len(b.Frags)
	}
	if rs.err != nil {
		return rs.err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrAborted, err.Error())
	}
	log.Printf("[Pool.Run] sources:%d workers:%d fragments:%d\n", len(srcs), workers, fragNum)
	return nil
}

func (p *Pool) readSource(rs *runState, idx int, src Source, batchSize int, handoff chan<- Batch) error {
	send := func(frags []Fragment) error {
		select {
		case handoff <- Batch{Source: idx, Frags: frags}:
			p.Metrics.Batches.Inc()
			p.Metrics.Fragments.Add(float64(len(frags)))
			return nil
		case <-rs.ctx.Done():
			return ErrAborted
		}
	}
	frags := make([]Fragment, 0, batchSize)
	for {
		if rs.stopped() {
			return nil
		}
		fa, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "[Pool.Run] source %d", idx)
		}
		frags = append(frags, fa...)
		if len(frags) >= batchSize {
			if err := send(frags); err != nil {
				return nil
			}
			frags = make([]Fragment, 0, batchSize)
		}
	}
	if len(frags) > 0 {
		if err := send(frags); err != nil {
			return nil
		}
	}
	return nil
}
