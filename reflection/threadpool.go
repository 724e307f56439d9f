package reflection

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Job is one unit of work a ThreadPool can execute; typically a closure
// closing over a batch of rays.
type Job func() error

// JobGraph is a flat list of independent jobs; the reflections and
// pathing simulators populate one job per ray-batch (or per probe, for
// baking) and hand the graph to a ThreadPool.
type JobGraph struct {
	jobs []Job
}

// NewJobGraph returns an empty graph.
func NewJobGraph() *JobGraph { return &JobGraph{} }

// Add appends a job to the graph.
func (g *JobGraph) Add(j Job) { g.jobs = append(g.jobs, j) }

// Len returns the number of jobs queued.
func (g *JobGraph) Len() int { return len(g.jobs) }

// ThreadPool runs a JobGraph's jobs cooperatively over a fixed worker
// count, set once at construction, never growing or shrinking — the
// spec's "fixed worker count set at simulator construction" requirement
// implemented over errgroup with a bounded semaphore rather than a
// hand-rolled worker-channel pool.
type ThreadPool struct {
	workers int
	sem     *semaphore.Weighted
}

// NewThreadPool builds a pool with the given worker count; workers<=0
// defaults to runtime.GOMAXPROCS(0).
func NewThreadPool(workers int) *ThreadPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ThreadPool{workers: workers, sem: semaphore.NewWeighted(int64(workers))}
}

// Workers returns the pool's fixed worker count.
func (p *ThreadPool) Workers() int { return p.workers }

// Process runs every job in g, blocking until all have completed (or the
// first error is observed); at most p.Workers() jobs run concurrently.
func (p *ThreadPool) Process(ctx context.Context, g *JobGraph) error {
	eg, egCtx := errgroup.WithContext(ctx)
	for _, job := range g.jobs {
		job := job
		if err := p.sem.Acquire(egCtx, 1); err != nil {
			return err
		}
		eg.Go(func() error {
			defer p.sem.Release(1)
			return job()
		})
	}
	return eg.Wait()
}
