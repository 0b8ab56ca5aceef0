package ami

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/stumpfworks/asterisk-ami/pkg/logger"
)

// callbackJob pairs an entry with the packet its callback should
// receive; queued onto a channel so the dispatcher never blocks the
// read loop waiting for a user callback to return.
type callbackJob struct {
	entry  *ActionEntry
	packet *Packet
}

// ActionRegistry tracks in-flight actions by ActionID and decides when
// each is finished. Safe for concurrent use: Submit is called from
// user goroutines and the Scheduler, Resolve from the single read loop.
type ActionRegistry struct {
	mu      sync.Mutex
	entries map[string]*ActionEntry

	transport *Transport
	ids       *IdGenerator

	jobs chan callbackJob
	wg   sync.WaitGroup
}

// NewActionRegistry starts the callback-dispatch worker pool (a single
// worker preserves per-ActionID ordering while still running off the
// read loop; different ActionIDs may still overlap in effect because
// Submit/Resolve are cheap and the worker only blocks inside the
// user's own Callback).
func NewActionRegistry(t *Transport, ids *IdGenerator) *ActionRegistry {
	r := &ActionRegistry{
		entries:   make(map[string]*ActionEntry),
		transport: t,
		ids:       ids,
		jobs:      make(chan callbackJob, 256),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// worker drains jobs until the channel is closed, so Close never loses
// a callback that was already queued when it was called.
func (r *ActionRegistry) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.invoke(job)
	}
}

func (r *ActionRegistry) invoke(job callbackJob) {
	if job.entry.Callback == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			cl := logger.NewCallbackLogger("action", job.entry.ActionID)
			cl.Write([]byte(fmt.Sprintf("recovered panic: %v\n%s", rec, debug.Stack())))
		}
	}()
	job.entry.Callback(job.packet)
}

// Submit allocates an ActionID if the action doesn't carry one,
// stores a fresh entry with wait_next=false, and writes the encoded
// packet to the transport. Returns the assigned ActionID.
func (r *ActionRegistry) Submit(a *Action) (string, error) {
	pkt := a.Packet.Clone()
	id := a.ActionID
	if id == "" {
		id, _ = pkt.Get("ActionID")
	}
	if id == "" {
		id = r.ids.Next()
		pkt.Set("ActionID", id)
	} else {
		pkt.Set("ActionID", id)
	}

	entry := &ActionEntry{
		ActionID: id,
		Action:   pkt,
		Callback: a.Callback,
		WaitNext: false,
	}
	if a.Repeat.Periodic {
		rp := a.Repeat
		entry.Periodic = &rp
	}

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()

	if err := r.transport.WritePacket(Encode(pkt)); err != nil {
		r.mu.Lock()
		delete(r.entries, id)
		r.mu.Unlock()
		return "", err
	}
	return id, nil
}

// Resolve routes an incoming packet carrying a known ActionID. Returns
// false if the ActionID is unknown (the caller should then try
// Subscription matching instead, per the Dispatcher's classification
// order).
func (r *ActionRegistry) Resolve(p *Packet) bool {
	id, ok := p.Get("ActionID")
	if !ok {
		return false
	}

	r.mu.Lock()
	entry, known := r.entries[id]
	if !known {
		r.mu.Unlock()
		return false
	}

	waitNext := classify(entry, p)
	entry.WaitNext = waitNext
	remove := !waitNext && entry.Periodic == nil
	if remove {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	select {
	case r.jobs <- callbackJob{entry: entry, packet: p}:
	default:
		// Queue saturated: apply backpressure by invoking inline
		// rather than dropping the callback. Correctness matters more
		// than throughput here.
		r.invoke(callbackJob{entry: entry, packet: p})
	}
	return true
}

// classify implements the wait_next decision table.
func classify(entry *ActionEntry, p *Packet) bool {
	async := entry.Action.GetDefault("Async", "") == "true"
	if p.HasSuffix("Message", "successfully queued") && async {
		return true
	}
	if p.GetDefault("EventList", "") == "start" {
		return true
	}
	if ev, ok := p.Get("Event"); ok && hasSuffixFold(ev, "Complete") {
		return false
	}
	switch p.GetDefault("Response", "") {
	case "Success", "Error", "Fail", "Failure":
		return false
	}
	// Neither a terminal Response nor a list boundary: preserve the
	// entry's current wait state (an interim EventList item, e.g. a
	// CoreShowChannel event, carries no Response header at all).
	return entry.WaitNext
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return equalFold(s[len(s)-len(suffix):], suffix)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Purge removes every entry (used on connection loss) and returns the
// periodic ones so the Scheduler can replay them after reconnect.
// Building a snapshot first means cleanup never mutates the map while
// a range over it is in progress — a mutate-while-ranging bug this
// deliberately avoids.
func (r *ActionRegistry) Purge() []*Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}

	var periodic []*Action
	for _, id := range ids {
		entry := r.entries[id]
		if entry.Periodic != nil {
			periodic = append(periodic, &Action{
				Packet:   entry.Action,
				Callback: entry.Callback,
				Repeat:   *entry.Periodic,
			})
		}
		delete(r.entries, id)
	}
	return periodic
}

// Len reports the number of in-flight entries, used by the Client's
// idle-auto-close check.
func (r *ActionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops accepting new callback jobs and waits for every
// already-queued callback to finish running before returning. Safe to
// call once per registry, after the caller has guaranteed no more
// Resolve calls are in flight (a concurrent Resolve sending to a
// closed jobs channel would panic).
func (r *ActionRegistry) Close() {
	close(r.jobs)
	r.wg.Wait()
}
