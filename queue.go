package hsm

import (
	"container/heap"
	"sync"
	"time"
)

// messageQueue is the FIFO described in spec.md §4.2: a main queue
// ordered by (scheduled-at, enqueue-sequence), single consumer. It is
// split internally into two structures so both halves of the ordering
// guarantee ("FIFO among equal scheduled-at" and "delayed messages never
// overtake an earlier-scheduled due message") fall out of the data
// structure instead of needing a comparator that re-derives them:
//
//   - delayed: a min-heap (container/heap) of not-yet-due messages,
//     ordered by scheduled-at then sequence.
//   - ready: a plain slice FIFO of messages already due, in the order
//     they became ready.
//
// On every poll, due messages are drained out of delayed (in heap-pop
// order, which is exactly scheduled-at/seq order) onto the back of
// ready before ready's front is served. sendAtFront and sendManyAtFront
// bypass both and push directly onto the front of ready; the deferred
// queue flush (spec.md §4.5) uses sendManyAtFront. quitNow's marker
// instead replaces ready outright via dropPendingAndPushFront.
type messageQueue struct {
	mu      sync.Mutex
	delayed delayedHeap
	ready   []*Message
	nextSeq uint64
	closed  bool
}

func newMessageQueue() *messageQueue {
	return &messageQueue{}
}

// send enqueues m for immediate delivery (scheduled-at = now).
func (q *messageQueue) send(m *Message, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	m.scheduledAt = now
	m.seq = q.nextSeq
	q.nextSeq++
	q.ready = append(q.ready, m)
	return true
}

// sendDelayed enqueues m for delivery no earlier than now+delay.
func (q *messageQueue) sendDelayed(m *Message, now time.Time, delay time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	m.scheduledAt = now.Add(delay)
	m.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.delayed, m)
	return true
}

// sendAtFront enqueues m ahead of every currently-ready message,
// bypassing scheduled-at ordering entirely. It is the single-message
// form of sendManyAtFront.
func (q *messageQueue) sendAtFront(m *Message, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	m.scheduledAt = now
	m.seq = q.nextSeq
	q.nextSeq++
	q.ready = append([]*Message{m}, q.ready...)
	return true
}

// sendManyAtFront flushes msgs (already in the order they should run)
// to the front of ready, preserving their relative order.
func (q *messageQueue) sendManyAtFront(msgs []*Message, now time.Time) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range msgs {
		m.scheduledAt = now
		m.seq = q.nextSeq
		q.nextSeq++
	}
	q.ready = append(append([]*Message(nil), msgs...), q.ready...)
}

// drainDue moves every delayed message whose scheduled-at <= now onto
// the back of ready, in due order.
func (q *messageQueue) drainDue(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.delayed.Len() > 0 && !q.delayed[0].scheduledAt.After(now) {
		q.ready = append(q.ready, heap.Pop(&q.delayed).(*Message))
	}
}

// pop removes and returns the front of ready, if any. Callers must call
// drainDue first so delayed-but-now-due messages have already moved in.
func (q *messageQueue) pop() (*Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return nil, false
	}
	m := q.ready[0]
	q.ready = q.ready[1:]
	return m, true
}

// hasReady reports whether a message is immediately dispatchable.
func (q *messageQueue) hasReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) > 0
}

// nextWake returns the earliest scheduled-at among delayed messages, if
// any, for a looper deciding how long to sleep.
func (q *messageQueue) nextWake() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.delayed.Len() == 0 {
		return time.Time{}, false
	}
	return q.delayed[0].scheduledAt, true
}

// closeAndDrop marks the queue closed (further sends return false) and
// discards all pending messages, per quitNow's "pending messages are
// discarded."
func (q *messageQueue) closeAndDrop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.ready = nil
	q.delayed = nil
}

func (q *messageQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// dropPendingAndPushFront discards every ready/delayed message and makes
// marker the sole entry, in one locked critical section, without ever
// reopening the queue: q.closed stays exactly as it was (quitNow sets it
// true beforehand via closeAndDrop and it must stay true, so a producer
// racing this call sees a closed queue throughout — spec.md §4.2
// "sending after quitNow returns silently").
func (q *messageQueue) dropPendingAndPushFront(marker *Message, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = []*Message{marker}
	q.delayed = nil
	marker.scheduledAt = now
	marker.seq = q.nextSeq
	q.nextSeq++
}

// delayedHeap implements container/heap.Interface over *Message ordered
// by (scheduledAt, seq) — the min-heap backing messageQueue.delayed.
type delayedHeap []*Message

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if !h[i].scheduledAt.Equal(h[j].scheduledAt) {
		return h[i].scheduledAt.Before(h[j].scheduledAt)
	}
	return h[i].seq < h[j].seq
}
func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x any)   { *h = append(*h, x.(*Message)) }
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}
