package kernel

// QueueSize is the capacity of every kernel queue. It matches the process
// table so the allocator and scheduler queues can never legitimately
// overflow.
const QueueSize = ProcMax

// Queue is a bounded FIFO of integers (slot indices or pids).
//
// head and tail run freely and are reduced modulo QueueSize on access, the
// same way the mailbox rings do it.
type Queue struct {
	head  uint32
	tail  uint32
	items [QueueSize]int
}

// Init empties the queue.
func (q *Queue) Init() {
	*q = Queue{}
}

// Enqueue appends v at the tail.
func (q *Queue) Enqueue(v int) error {
	if q.head-q.tail >= QueueSize {
		return ErrQueueFull
	}
	q.items[q.head%QueueSize] = v
	q.head++
	return nil
}

// Dequeue removes and returns the value at the head.
func (q *Queue) Dequeue() (int, error) {
	if q.tail == q.head {
		return 0, ErrQueueEmpty
	}
	v := q.items[q.tail%QueueSize]
	q.items[q.tail%QueueSize] = 0
	q.tail++
	return v, nil
}

// Size returns the number of queued values.
func (q *Queue) Size() int { return int(q.head - q.tail) }

// IsEmpty reports whether the queue holds no values.
func (q *Queue) IsEmpty() bool { return q.head == q.tail }

// Contains reports whether v is queued.
func (q *Queue) Contains(v int) bool {
	for i := q.tail; i != q.head; i++ {
		if q.items[i%QueueSize] == v {
			return true
		}
	}
	return false
}

// Values copies the queue contents, head first, into dst and returns the
// filled prefix.
func (q *Queue) Values(dst []int) []int {
	dst = dst[:0]
	for i := q.tail; i != q.head; i++ {
		dst = append(dst, q.items[i%QueueSize])
	}
	return dst
}

// Filter makes one pass over the queue: every value is dequeued and put back
// at the tail only if keep returns true. The pass is bounded by the size at
// the start, so relative order of kept values is preserved. It returns the
// number of dropped values.
func (q *Queue) Filter(keep func(v int) bool) int {
	n := q.Size()
	dropped := 0
	for i := 0; i < n; i++ {
		v, err := q.Dequeue()
		if err != nil {
			break
		}
		if !keep(v) {
			dropped++
			continue
		}
		// Cannot fail: one slot was just freed.
		_ = q.Enqueue(v)
	}
	return dropped
}
