package workers

import (
	"sync"

	"github.com/camden-git/peoplegraph/metrics"
	"go.uber.org/zap"
)

const (
	defaultCleanupQueueSize  = 100
	defaultNumCleanupWorkers = 1
)

// Deleter removes one stored image by relative path
type Deleter interface {
	Delete(relativePath string) error
}

// CleanupJob is one stored image to remove
type CleanupJob struct {
	RelativePath string
}

// ImageCleanup deletes images orphaned by merges on a small worker pool.
// Deletion is best effort: failures are logged and counted, never retried.
type ImageCleanup struct {
	JobQueue chan CleanupJob
	Deleter  Deleter
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex

	metrics  *metrics.EngineMetrics
	log      *zap.Logger
	stopped  bool // guarded by Mutex
	stopOnce sync.Once
}

// NewImageCleanup starts numWorkers workers reading from a queue of queueSize jobs
func NewImageCleanup(deleter Deleter, m *metrics.EngineMetrics, log *zap.Logger, queueSize, numWorkers int) *ImageCleanup {
	if numWorkers <= 0 {
		numWorkers = defaultNumCleanupWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultCleanupQueueSize
	}

	ic := &ImageCleanup{
		JobQueue: make(chan CleanupJob, queueSize),
		Deleter:  deleter,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
		metrics:  m,
		log:      log.Named("cleanup"),
	}

	ic.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go ic.worker(i)
	}
	ic.log.Info("started image cleanup workers", zap.Int("workers", numWorkers), zap.Int("queue_size", queueSize))

	return ic
}

func (ic *ImageCleanup) worker(id int) {
	defer ic.Wg.Done()
	for {
		select {
		case job := <-ic.JobQueue:
			ic.process(id, job)
		case <-ic.StopChan:
			ic.drain(id)
			ic.log.Debug("cleanup worker stopped", zap.Int("worker", id))
			return
		}
	}
}

// drain processes whatever is still queued at shutdown
func (ic *ImageCleanup) drain(id int) {
	for {
		select {
		case job := <-ic.JobQueue:
			ic.process(id, job)
		default:
			return
		}
	}
}

func (ic *ImageCleanup) process(id int, job CleanupJob) {
	defer func() {
		ic.Mutex.Lock()
		delete(ic.Pending, job.RelativePath)
		ic.Mutex.Unlock()
	}()

	if err := ic.Deleter.Delete(job.RelativePath); err != nil {
		ic.metrics.RecordImageCleanup("failed")
		ic.log.Warn("failed to delete orphaned image",
			zap.Int("worker", id), zap.String("path", job.RelativePath), zap.Error(err))
		return
	}
	ic.metrics.RecordImageCleanup("deleted")
	ic.log.Debug("deleted orphaned image", zap.Int("worker", id), zap.String("path", job.RelativePath))
}

// QueueJob schedules one deletion. It returns false when the path is already
// pending, the queue is full, or the pool is stopping.
func (ic *ImageCleanup) QueueJob(job CleanupJob) bool {
	// the send happens under Mutex so Stop cannot slip in between the
	// stopped check and the enqueue
	ic.Mutex.Lock()
	defer ic.Mutex.Unlock()

	if ic.stopped {
		return false
	}
	if ic.Pending[job.RelativePath] {
		ic.log.Debug("cleanup already pending", zap.String("path", job.RelativePath))
		return false
	}

	select {
	case ic.JobQueue <- job:
		ic.Pending[job.RelativePath] = true
		return true
	default:
		ic.metrics.RecordImageCleanup("dropped")
		ic.log.Warn("cleanup queue full, dropping job", zap.String("path", job.RelativePath))
		return false
	}
}

// Enqueue schedules every path and returns how many were queued
func (ic *ImageCleanup) Enqueue(paths []string) int {
	queued := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		if ic.QueueJob(CleanupJob{RelativePath: p}) {
			queued++
		}
	}
	return queued
}

// Stop signals the workers, lets them finish queued jobs and waits for them
func (ic *ImageCleanup) Stop() {
	ic.stopOnce.Do(func() {
		ic.log.Info("stopping image cleanup workers")
		ic.Mutex.Lock()
		ic.stopped = true
		ic.Mutex.Unlock()
		close(ic.StopChan)
		ic.Wg.Wait()
		ic.log.Info("all image cleanup workers stopped")
	})
}
