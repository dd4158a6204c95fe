package prefetch

import (
	"time"

	"github.com/kbukum/prefetchkit/workerpool"
)

// task is the handle of one submitted key. The queue owns it until it is
// dequeued; after that it belongs to the caller of dequeueOldest.
type task[K, V any] struct {
	position    int
	key         K
	future      *workerpool.Future[V]
	submittedAt time.Time
}

// taskQueue holds outstanding tasks in submission order.
type taskQueue[K, V any] struct {
	items []*task[K, V]
}

func (q *taskQueue[K, V]) enqueue(t *task[K, V]) {
	q.items = append(q.items, t)
}

// peek returns the oldest task without removing it.
func (q *taskQueue[K, V]) peek() (*task[K, V], bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// dequeueOldest removes and returns the oldest task. ok is false when the
// queue is empty, which the session treats as end of stream.
func (q *taskQueue[K, V]) dequeueOldest() (*task[K, V], bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return t, true
}

// drain removes and returns every task, oldest first.
func (q *taskQueue[K, V]) drain() []*task[K, V] {
	items := q.items
	q.items = nil
	return items
}

func (q *taskQueue[K, V]) len() int {
	return len(q.items)
}
