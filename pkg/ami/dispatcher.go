package ami

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/stumpfworks/asterisk-ami/pkg/logger"
)

// Dispatcher classifies each decoded packet as either a Shutdown
// signal, a correlated action response, or an event to fan out to
// Subscriptions. It owns the subscription list; the ActionRegistry
// owns action correlation.
type Dispatcher struct {
	registry *ActionRegistry

	mu   sync.Mutex
	subs []Subscription

	events chan eventJob
	wg     sync.WaitGroup

	onShutdown func()
}

type eventJob struct {
	sub    Subscription
	packet *Packet
}

// NewDispatcher starts the event-callback worker pool. onShutdown is
// invoked once when an "Event: Shutdown" packet is observed; the
// Client uses it to trigger the Running->Connecting transition.
func NewDispatcher(registry *ActionRegistry, onShutdown func()) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		events:     make(chan eventJob, 256),
		onShutdown: onShutdown,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// worker drains events until the channel is closed, so Close never
// loses a callback that was already queued when it was called.
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.events {
		d.invoke(job)
	}
}

func (d *Dispatcher) invoke(job eventJob) {
	if job.sub.Callback == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			cl := logger.NewCallbackLogger("event", job.sub.Pattern)
			cl.Write([]byte(fmt.Sprintf("recovered panic: %v\n%s", rec, debug.Stack())))
		}
	}()
	job.sub.Callback(job.packet)
}

// Dispatch routes one decoded packet. Ordering: for a given
// subscription, packets are enqueued in arrival order. Two different
// subscriptions matching the same packet may run concurrently since
// each enqueues independently, but the worker drains the single shared
// channel in FIFO order, so same-subscription ordering is preserved
// without a per-subscription goroutine.
func (d *Dispatcher) Dispatch(p *Packet) {
	if ev, ok := p.Get("Event"); ok && ev == "Shutdown" {
		log.Warn().Msg("ami event: shutdown, connection going away")
		if d.onShutdown != nil {
			d.onShutdown()
		}
		return
	}

	if d.registry.Resolve(p) {
		return
	}

	d.mu.Lock()
	matches := make([]Subscription, 0, 1)
	for _, s := range d.subs {
		if s.matches(p) {
			matches = append(matches, s)
		}
	}
	d.mu.Unlock()

	for _, s := range matches {
		job := eventJob{sub: s, packet: p}
		select {
		case d.events <- job:
		default:
			d.invoke(job)
		}
	}
}

// Subscribe registers one callback per pattern. Duplicates are
// permitted; all matching callbacks fire in registration order for any
// given packet (fan-out order is established here, dispatch order is
// whatever the channel yields).
func (d *Dispatcher) Subscribe(pattern string, cb Callback) {
	d.mu.Lock()
	d.subs = append(d.subs, Subscription{Pattern: pattern, Callback: cb})
	d.mu.Unlock()
}

// SubscriptionCount reports how many subscriptions are registered,
// used by the Client's idle-auto-close check.
func (d *Dispatcher) SubscriptionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Reset clears all subscriptions, used when a Client is fully closed
// and a caller intends to reconnect with a fresh subscription set.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.subs = nil
	d.mu.Unlock()
}

// Close stops accepting new events and waits for every already-queued
// callback to finish running before returning.
func (d *Dispatcher) Close() {
	close(d.events)
	d.wg.Wait()
}
