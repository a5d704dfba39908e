// Package notify turns domain events into outbound notifications.
//
// The Dispatcher subscribes to the event bus, composes a Message per event
// and hands it to a Sender on its own goroutine. Delivery is best effort:
// a full queue drops the message, a failed send is logged, and neither ever
// reaches the store that published the event.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 15 * time.Second
)

// Dispatcher delivers notifications for domain events.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	queue   chan Message
	log     zerolog.Logger
	timeout time.Duration

	mu          sync.Mutex
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets how many messages may wait for delivery.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Message, n)
		}
	}
}

// WithSendTimeout bounds each Send call.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher returns a dispatcher sending at most perSecond messages per
// second. A non-positive rate means unlimited.
func NewDispatcher(sender Sender, perSecond float64, log zerolog.Logger, opts ...Option) *Dispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	d := &Dispatcher{
		sender:      sender,
		limiter:     rate.NewLimiter(limit, 1),
		queue:       make(chan Message, defaultQueueSize),
		log:         log.With().Str("component", "notify").Logger(),
		timeout:     defaultSendTimeout,
		unsubscribe: func() {},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach subscribes the dispatcher to bus. Events are queued even before
// Start; they are delivered once the worker runs.
func (d *Dispatcher) Attach(bus *events.Bus) {
	unsubscribe := bus.Subscribe(d.handle, Kinds...)
	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()
}

// Start launches the delivery worker. It stops when ctx is cancelled or
// Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

// Close detaches from the bus and waits for the worker to exit. Messages
// still queued are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	unsubscribe, cancel := d.unsubscribe, d.cancel
	d.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// Pending returns the number of queued messages.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) handle(e events.Event) {
	m, ok := Compose(e)
	if !ok {
		d.log.Debug().Str("kind", string(e.Kind)).Msg("no recipients, skipping notification")
		return
	}
	select {
	case d.queue <- m:
	default:
		d.log.Warn().Str("kind", string(m.Kind)).Msg("notification queue full, dropping message")
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-d.queue:
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			d.deliver(ctx, m)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, m); err != nil {
		d.log.Warn().Err(err).Str("kind", string(m.Kind)).Int("recipients", len(m.Recipients)).Msg("notification delivery failed")
		return
	}
	d.log.Debug().Str("kind", string(m.Kind)).Int("recipients", len(m.Recipients)).Msg("notification sent")
}
