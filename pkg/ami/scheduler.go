package ami

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultPingDelay is the default keep-alive ping interval.
const DefaultPingDelay = 5 * time.Second

// DefaultReconnectTimeout is the default delay before a reconnect
// attempt.
const DefaultReconnectTimeout = 5 * time.Second

// MaxUnansweredPings is the liveness bound: once this many consecutive
// keep-alive pings go unanswered, the peer is treated as dead and a
// connection-loss signal fires. Documented as an open-question
// decision in DESIGN.md.
const MaxUnansweredPings = 3

// Scheduler runs periodic actions, including the built-in keep-alive
// ping, on a robfig/cron engine — one cron.Cron per Scheduler, each
// periodic action registered as an "@every" entry instead of a
// calendar expression, since AMI periodic actions are fixed-delay, not
// wall-clock-scheduled.
type Scheduler struct {
	registry *ActionRegistry
	cron     *cron.Cron

	mu       sync.Mutex
	periodic map[cron.EntryID]*Action // registered set, independent of ActionRegistry's in-flight entries

	connected int32 // atomic bool

	pingDelay      time.Duration
	unansweredPing int32
	onPingTimeout  func()
}

// NewScheduler creates a scheduler bound to registry. onPingTimeout is
// invoked once if MaxUnansweredPings is exceeded; the Client wires it
// to the same path as a ConnectionLost.
func NewScheduler(registry *ActionRegistry, pingDelay time.Duration, onPingTimeout func()) *Scheduler {
	s := &Scheduler{
		registry:      registry,
		cron:          cron.New(cron.WithSeconds()),
		periodic:      make(map[cron.EntryID]*Action),
		pingDelay:     pingDelay,
		onPingTimeout: onPingTimeout,
	}
	s.cron.Start()
	return s
}

// setConnected flips the liveness flag the scheduler's job funcs check
// before resubmitting; this is how periodic tasks stop as soon as
// connected becomes false, without needing a context per entry.
func (s *Scheduler) setConnected(v bool) {
	if v {
		atomic.StoreInt32(&s.connected, 1)
	} else {
		atomic.StoreInt32(&s.connected, 0)
	}
}

func (s *Scheduler) isConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// Register adds a periodic action to the authoritative set and starts
// its cron entry. A fresh ActionID is generated before each submission.
func (s *Scheduler) Register(a *Action) error {
	if !a.Repeat.Periodic || a.Repeat.Delay <= 0 {
		return fmt.Errorf("ami: Register requires a periodic repeat policy")
	}
	spec := fmt.Sprintf("@every %s", time.Duration(a.Repeat.Delay*float64(time.Second)))

	id, err := s.cron.AddFunc(spec, func() {
		if !s.isConnected() {
			return
		}
		fresh := &Action{
			Packet:   a.Packet.Clone(),
			Callback: a.Callback,
			Repeat:   a.Repeat,
		}
		fresh.Packet.Delete("ActionID") // force Submit to mint a new one
		if _, err := s.registry.Submit(fresh); err != nil {
			log.Warn().Err(err).Msg("periodic action resubmit failed")
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.periodic[id] = a
	s.mu.Unlock()
	return nil
}

// StartPing starts the built-in {Action: Ping} periodic action when
// the configured ping delay is positive. The ping's callback clears the
// unanswered-ping counter; crossing MaxUnansweredPings fires
// onPingTimeout once.
func (s *Scheduler) StartPing() error {
	if s.pingDelay <= 0 {
		return nil
	}
	atomic.StoreInt32(&s.unansweredPing, 0)
	ping := &Action{
		Packet: PacketFromMap(map[string]string{"Action": "Ping"}),
		Repeat: Every(s.pingDelay.Seconds()),
		Callback: func(p *Packet) {
			atomic.StoreInt32(&s.unansweredPing, 0)
		},
	}
	// Count an unanswered ping on every tick before the response
	// (if any) clears it; if the count exceeds the bound, signal loss.
	spec := fmt.Sprintf("@every %s", s.pingDelay)
	_, err := s.cron.AddFunc(spec, func() {
		if !s.isConnected() {
			return
		}
		n := atomic.AddInt32(&s.unansweredPing, 1)
		if n > MaxUnansweredPings {
			if n == MaxUnansweredPings+1 {
				log.Warn().Int32("unanswered", n).Msg("ami ping liveness exceeded, treating connection as lost")
				if s.onPingTimeout != nil {
					s.onPingTimeout()
				}
			}
			return
		}
		fresh := &Action{Packet: ping.Packet.Clone(), Callback: ping.Callback}
		if _, err := s.registry.Submit(fresh); err != nil {
			log.Warn().Err(err).Msg("ping submit failed")
		}
	})
	return err
}

// ReplayAfterReconnect resubmits every registered periodic action
// immediately after a successful reconnect+login. The keep-alive ping
// is not in this set; StartPing schedules it separately.
func (s *Scheduler) ReplayAfterReconnect() {
	s.setConnected(true)
	s.mu.Lock()
	actions := make([]*Action, 0, len(s.periodic))
	for _, a := range s.periodic {
		actions = append(actions, a)
	}
	s.mu.Unlock()

	for _, a := range actions {
		fresh := &Action{Packet: a.Packet.Clone(), Callback: a.Callback, Repeat: a.Repeat}
		fresh.Packet.Delete("ActionID")
		if _, err := s.registry.Submit(fresh); err != nil {
			log.Warn().Err(err).Msg("periodic replay submit failed")
		}
	}
}

// Len reports the number of registered periodic actions, used by the
// Client's idle-auto-close check.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.periodic)
}

// Shutdown marks the scheduler disconnected and stops its cron engine.
// A Scheduler is scoped to one session: the Client builds a fresh one
// (with its own cron.Cron) on every connect cycle, so Shutdown always
// runs at session teardown, not just on final close.
func (s *Scheduler) Shutdown() {
	s.setConnected(false)
	ctx := s.cron.Stop()
	<-ctx.Done()
}
