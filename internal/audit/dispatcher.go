package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config mirrors auth.AuditConfig.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit discard events when the queue is full instead
	// of holding up the login or reset request that produced them.
	DropIfFull bool
}

// Dispatcher moves engine events (login_failure, account_locked,
// password_reset_confirm, ...) off the request path and hands them to a Sink
// from a single goroutine, in emit order.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	stop       chan struct{}
	dropIfFull bool

	stopped   atomic.Bool
	stopOnce  sync.Once
	worker    sync.WaitGroup
	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher returns nil when auditing is off. A nil *Dispatcher accepts
// every call, so the engine never checks before emitting.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	d.worker.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.worker.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			// Whatever the flows queued before Close still reaches the sink.
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev for the sink. A dropped event (full queue with DropIfFull,
// or ctx ending while waiting) is counted, never returned as an error: audit
// failures must not change the outcome of an auth operation.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ev.Metadata != nil {
		meta := make(map[string]string, len(ev.Metadata))
		for k, v := range ev.Metadata {
			meta[k] = v
		}
		ev.Metadata = meta
	}

	if d.dropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close is called from Engine.Close. It refuses new events, delivers the
// queued ones and returns once the worker has exited.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped reports events that never reached the sink. It backs
// auth_audit_dropped_total.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered reports events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
