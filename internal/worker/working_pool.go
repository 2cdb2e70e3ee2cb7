package worker

import (
	"context"
	"log"
	"sync"
)

// Job is a unit of background work. Jobs receive the pool's context so
// long sweeps stop promptly on shutdown.
type Job func(ctx context.Context) error

// WorkingPool runs background maintenance jobs on a fixed set of
// workers fed from a bounded queue.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job
	quit       chan struct{}
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
		quit:       make(chan struct{}),
	}
}

// SubmitJob enqueues a job, or drops it when the pool is shutting down.
// The scheduler can still be mid-tick when shutdown starts, so a late
// submission must be a safe no-op rather than a send to a dead pool.
func (p *WorkingPool) SubmitJob(job Job) {
	select {
	case <-p.quit:
		log.Println("[WorkingPool] Pool is shutting down. Job dropped.")
	case p.jobChan <- job:
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup

	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()

	log.Println("[WorkingPool] Shutdown signaled. Refusing new jobs.")
	close(p.quit)

	workerWg.Wait()
	log.Println("[WorkingPool] All workers stopped.")
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	log.Printf("[WorkingPool-Worker %d] Started and waiting for jobs.\n", id)

	for {
		select {
		case job := <-p.jobChan:
			p.safeExecution(ctx, job, id)

		case <-ctx.Done():
			log.Printf("[WorkingPool-Worker %d] Context canceled. Exiting.\n", id)
			return
		}
	}
}

// safeExecution keeps a panicking job from taking its worker down.
func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkingPool-Worker %d] FATAL: Panic recovered in job: %v\n", workerID, r)
		}
	}()

	if err := job(ctx); err != nil {
		log.Printf("[WorkingPool-Worker %d] Error executing job: %s.\n", workerID, err)
	}
}
