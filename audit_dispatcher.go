package admsession

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// auditDispatcher moves audit events off the sign-in path. One goroutine
// feeds the sink in order; Emit never calls the sink directly.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	logger     zerolog.Logger

	// mu guards closing events: senders hold it shared, Close exclusively.
	mu      sync.RWMutex
	closed  bool
	events  chan AuditEvent
	drained chan struct{}

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger.With().Str("component", "audit").Logger(),
		events:     make(chan AuditEvent, max(cfg.BufferSize, 1)),
		drained:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.drained)
	for event := range d.events {
		d.deliver(event)
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("audit", event.EventType).Msg("audit sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With dropIfFull a full queue drops and counts it;
// otherwise Emit waits for room or for ctx to end. Events emitted after
// Close are discarded.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
		d.drop(event)
	}
}

func (d *auditDispatcher) drop(event AuditEvent) {
	n := d.dropped.Add(1)
	// Log the 1st, 2nd, 4th, 8th... drop so a stuck sink is visible
	// without flooding the log.
	if n&(n-1) == 0 {
		d.logger.Warn().Uint64("dropped", n).Str("audit", event.EventType).Msg("audit queue full")
	}
}

// Close stops accepting events and waits until the queued ones reach the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.drained
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()
	<-d.drained
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
