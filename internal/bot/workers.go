package bot

import "sync"

const chatQueueSize = 16

// workerPool runs one goroutine per active chat so that messages from a
// single chat are handled in arrival order while separate chats proceed in
// parallel. A global semaphore caps how many handlers run at once.
type workerPool struct {
	mu      sync.Mutex
	queues  map[int64]chan func()
	sem     chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

func newWorkerPool(maxConcurrent int) *workerPool {
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}

	return &workerPool{
		queues: make(map[int64]chan func()),
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// enqueue schedules job on the chat's queue, creating the queue on first
// use. Jobs for one chat never run concurrently or out of order.
func (p *workerPool) enqueue(chatID int64, job func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	q, ok := p.queues[chatID]
	if !ok {
		q = make(chan func(), chatQueueSize)
		p.queues[chatID] = q
		p.wg.Add(1)
		go p.run(q)
	}
	p.mu.Unlock()

	q <- job
}

func (p *workerPool) run(q chan func()) {
	defer p.wg.Done()

	for job := range q {
		p.sem <- struct{}{}
		job()
		<-p.sem
	}
}

// stop closes every queue and waits for queued jobs to finish. Callers must
// not enqueue once stop has been called.
func (p *workerPool) stop() {
	p.mu.Lock()
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
