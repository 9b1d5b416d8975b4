package categorizer

import (
	"context"
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Queue categorizes committed transactions on a fixed pool of workers.
// Submit never blocks: when the buffer is full the job runs on its own
// goroutine instead. Safe for concurrent use.
type Queue struct {
	categorizer interfaces.Categorizer
	logger      logging.Logger
	jobChan     chan models.Transaction
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// NewQueue starts workers goroutines reading from a buffer of bufferSize.
func NewQueue(c interfaces.Categorizer, workers, bufferSize int, logger logging.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	q := &Queue{
		categorizer: c,
		logger:      logger,
		jobChan:     make(chan models.Transaction, bufferSize),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit schedules t for categorization.
func (q *Queue) Submit(t models.Transaction) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("Categorization queue is closed, dropping job",
			logging.F(logging.FieldTransactionID, t.ID))
		return
	}

	select {
	case q.jobChan <- t:
	default:
		q.logger.Debug("Categorization queue full, running job on overflow goroutine",
			logging.F(logging.FieldTransactionID, t.ID))
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.process(t)
		}()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.jobChan {
		q.process(t)
	}
}

func (q *Queue) process(t models.Transaction) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.WithError(fmt.Errorf("panic: %v", r)).Error("Categorization job failed",
				logging.F(logging.FieldTransactionID, t.ID))
		}
	}()
	q.categorizer.Categorize(context.Background(), &t)
}

// Close stops accepting jobs and waits until every queued job has been
// processed or ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ interfaces.CategorizationDispatcher = (*Queue)(nil)
