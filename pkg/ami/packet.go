package ami

import (
	"sort"
	"strings"
)

// Packet is an ordered run of AMI header fields. Repeated header names
// collapse into a list under that name; Values returns the full list
// for a key while Get returns the first (or only) value.
type Packet struct {
	fields map[string][]string
	order  []string
}

// NewPacket returns an empty packet.
func NewPacket() *Packet {
	return &Packet{fields: make(map[string][]string)}
}

// PacketFromMap builds a packet from a simple string map, useful for
// constructing outbound actions. Iteration order is not significant
// for single-valued maps.
func PacketFromMap(m map[string]string) *Packet {
	p := NewPacket()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Add(k, m[k])
	}
	return p
}

// Add appends a value under name, preserving prior values for repeated
// headers (e.g. multiple "Variable:" lines in an Originate action).
func (p *Packet) Add(name, value string) {
	if _, ok := p.fields[name]; !ok {
		p.order = append(p.order, name)
	}
	p.fields[name] = append(p.fields[name], value)
}

// Set replaces all values for name with a single value.
func (p *Packet) Set(name, value string) {
	if _, ok := p.fields[name]; !ok {
		p.order = append(p.order, name)
	}
	p.fields[name] = []string{value}
}

// Get returns the first value for name and whether it was present.
func (p *Packet) Get(name string) (string, bool) {
	vals, ok := p.fields[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// GetDefault returns the first value for name, or def if absent.
func (p *Packet) GetDefault(name, def string) string {
	if v, ok := p.Get(name); ok {
		return v
	}
	return def
}

// Values returns every value recorded under name, in arrival order.
func (p *Packet) Values(name string) []string {
	return append([]string(nil), p.fields[name]...)
}

// Delete removes all values for name, used before resubmitting a
// cloned periodic action so ActionRegistry.Submit mints a fresh ID.
func (p *Packet) Delete(name string) {
	if _, ok := p.fields[name]; !ok {
		return
	}
	delete(p.fields, name)
	for i, k := range p.order {
		if k == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Has reports whether name was present at all.
func (p *Packet) Has(name string) bool {
	_, ok := p.fields[name]
	return ok
}

// Keys returns header names in first-seen order.
func (p *Packet) Keys() []string {
	return append([]string(nil), p.order...)
}

// HasSuffix reports whether the first value of name ends with suffix,
// case-sensitively. Used by the action-completion classification
// rules ("Message ends with 'successfully queued'", "Event ends with
// 'Complete'").
func (p *Packet) HasSuffix(name, suffix string) bool {
	v, ok := p.Get(name)
	return ok && strings.HasSuffix(v, suffix)
}

// Clone returns a deep copy, used when an action's submitted packet
// must outlive mutation of the original (e.g. periodic resubmission).
func (p *Packet) Clone() *Packet {
	c := NewPacket()
	c.order = append([]string(nil), p.order...)
	for k, v := range p.fields {
		c.fields[k] = append([]string(nil), v...)
	}
	return c
}

// ToMap flattens to a single-valued map for callers that don't care
// about repeated headers (e.g. JSON serialization for the WS bridge).
func (p *Packet) ToMap() map[string]string {
	m := make(map[string]string, len(p.order))
	for _, k := range p.order {
		if v, ok := p.Get(k); ok {
			m[k] = v
		}
	}
	return m
}

// RepeatPolicy describes how often an Action is resubmitted.
type RepeatPolicy struct {
	Periodic bool
	Delay    float64 // seconds
}

// Once is the default, one-shot repeat policy.
var Once = RepeatPolicy{}

// Every returns a periodic repeat policy with the given delay in
// seconds.
func Every(delaySeconds float64) RepeatPolicy {
	return RepeatPolicy{Periodic: true, Delay: delaySeconds}
}

// Callback receives one or more response/event packets correlated to
// an Action, or event packets matching a Subscription. It must not
// block the dispatcher for long; long-running work should be handed
// off by the callback itself.
type Callback func(*Packet)

// Action is a user-submitted request awaiting submission or already
// in flight.
type Action struct {
	Packet   *Packet
	Callback Callback
	Repeat   RepeatPolicy
	ActionID string // assigned by ActionRegistry.Submit if empty
}

// ActionEntry is the ActionRegistry's bookkeeping record for one
// in-flight action.
type ActionEntry struct {
	ActionID string
	Action   *Packet
	Callback Callback
	WaitNext bool
	Periodic *RepeatPolicy
}

// Subscription pairs an event-header pattern with a callback. Pattern
// "*" matches every event; any other value must equal the packet's
// Event header exactly (matching is against the Event header only).
type Subscription struct {
	Pattern  string
	Callback Callback
}

func (s Subscription) matches(p *Packet) bool {
	if s.Pattern == "*" {
		return true
	}
	ev, ok := p.Get("Event")
	return ok && ev == s.Pattern
}

// ConnectionState is a point-in-time snapshot of the socket/login state.
type ConnectionState struct {
	Connected     bool
	Authenticated bool
	Banner        string
}
