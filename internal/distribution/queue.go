package distribution

import "time"

type deliveryJob struct {
	InvoiceID string
	Attempt   int
}

type retryQueue struct {
	out  chan<- deliveryJob
	done <-chan struct{}
}

func newRetryQueue(out chan<- deliveryJob, done <-chan struct{}) *retryQueue {
	return &retryQueue{out: out, done: done}
}

func (q *retryQueue) Enqueue(job deliveryJob, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case <-q.done:
			return
		case q.out <- job:
			metricQueueLen.Set(int64(len(q.out)))
		}
	})
}
