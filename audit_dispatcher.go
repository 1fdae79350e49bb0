package authflow

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditQueue delivers events to a sink from one background goroutine.
// Close flushes everything queued before it returns.
type auditQueue struct {
	sink       AuditSink
	events     chan AuditEvent
	dropIfFull bool

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	dropped atomic.Uint64
}

// newAuditQueue returns nil when auditing is disabled; a nil queue ignores
// every call.
func newAuditQueue(cfg AuditConfig, sink AuditSink) *auditQueue {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	q := &auditQueue{
		sink:       sink,
		events:     make(chan AuditEvent, max(cfg.BufferSize, 1)),
		dropIfFull: cfg.DropIfFull,
		stopped:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *auditQueue) run() {
	defer close(q.stopped)
	for event := range q.events {
		q.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. A full queue drops and counts the event when
// DropIfFull is set; otherwise Emit waits for room or for ctx to end.
func (q *auditQueue) Emit(ctx context.Context, event AuditEvent) {
	if q == nil {
		return
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}

	if q.dropIfFull {
		select {
		case q.events <- event:
		default:
			q.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case q.events <- event:
	case <-ctx.Done():
	}
}

func (q *auditQueue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *auditQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
