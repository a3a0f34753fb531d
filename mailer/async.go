package mailer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

type message struct {
	to      string
	subject string
	body    string
}

// AsyncOption configures an Async sender.
type AsyncOption func(*Async)

// WithQueueSize bounds the number of messages waiting for the worker.
func WithQueueSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.queueSize = n
		}
	}
}

// WithSendTimeout bounds each delivery attempt made by the worker.
func WithSendTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger used for refused and dropped messages.
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Async queues messages for a single background worker that forwards them
// to the wrapped Sender. Send returns as soon as the message is queued; a
// full queue or a closed Async drops the message and Send reports false.
type Async struct {
	next      Sender
	queueSize int
	timeout   time.Duration
	logger    *slog.Logger

	queue     chan message
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	mu        sync.RWMutex

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsync starts the worker. Close must be called to stop it.
func NewAsync(next Sender, opts ...AsyncOption) *Async {
	a := &Async{
		next:      next,
		queueSize: defaultQueueSize,
		timeout:   defaultSendTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "mailer")
	a.queue = make(chan message, a.queueSize)
	a.done = make(chan struct{})

	a.wg.Add(1)
	go a.run()

	return a
}

func (a *Async) run() {
	defer a.wg.Done()

	for {
		select {
		case msg := <-a.queue:
			a.deliver(msg)
		case <-a.done:
			for {
				select {
				case msg := <-a.queue:
					a.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) deliver(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if !a.next.Send(ctx, msg.to, msg.subject, msg.body) {
		a.failed.Add(1)
		a.logger.Warn("email delivery failed",
			slog.String("operation", "send"),
			slog.String("subject", msg.subject),
		)
	}
}

// Send queues the message. It never blocks on the wrapped Sender.
func (a *Async) Send(ctx context.Context, to, subject, body string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed.Load() {
		a.dropped.Add(1)
		return false
	}

	select {
	case a.queue <- message{to: to, subject: subject, body: body}:
		return true
	default:
		a.dropped.Add(1)
		a.logger.WarnContext(ctx, "email queue full, message dropped",
			slog.String("operation", "enqueue"),
			slog.String("subject", subject),
		)
		return false
	}
}

// Close stops accepting messages, delivers what is already queued and waits
// for the worker to exit. It is safe to call more than once.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed.Store(true)
		close(a.done)
		a.mu.Unlock()
		a.wg.Wait()
	})
}

// Dropped returns how many messages were refused because the queue was full
// or the sender was closed.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Failed returns how many queued messages the wrapped Sender refused.
func (a *Async) Failed() uint64 {
	return a.failed.Load()
}

var _ Sender = (*Async)(nil)
