package ami

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// State is one of the client's lifecycle states.
type State string

const (
	StateDisconnected   State = "Disconnected"
	StateConnecting     State = "Connecting"
	StateAuthenticating State = "Authenticating"
	StateRunning        State = "Running"
	StateClosing        State = "Closing"
)

// Config enumerates every client connection and retry option.
type Config struct {
	Host     string
	Port     int
	Username string
	Secret   string

	PingDelay                time.Duration // 0 disables
	ConnectTimeout           time.Duration
	ReconnectTimeout         time.Duration // 0 disables reconnect
	ReconnectTimeoutIncrease time.Duration

	// AMIVersion, if set, is called once with the banner on successful
	// login.
	AMIVersion func(banner string)
}

// withDefaults fills in defaults for fields where the zero value only
// means "not yet configured" (Host, Port, ConnectTimeout). PingDelay
// and ReconnectTimeout are left untouched: 0 means "disabled"/"never
// retry" unambiguously for both, so a caller building Config
// programmatically gets exactly what they set. The "default 5s when
// absent from config" behavior lives one layer up, in
// internal/config's viper defaults, applied before the in-process
// struct is ever touched by business logic.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5038
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// Client orchestrates Transport, Session, ActionRegistry, Dispatcher,
// and Scheduler through the connection lifecycle state machine.
type Client struct {
	cfg Config

	mu    sync.Mutex
	state State

	transport  *Transport
	session    *Session
	registry   *ActionRegistry
	dispatcher *Dispatcher
	scheduler  *Scheduler
	ids        *IdGenerator

	pendingOneShot []*Action
	tasks          []func(ctx context.Context)

	connState ConnectionState
	closing   int32 // atomic bool, set by Close to suppress reconnect
}

// NewClient constructs a Client from cfg, applying connection defaults.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:   cfg.withDefaults(),
		state: StateDisconnected,
		ids:   NewIdGenerator("ami"),
	}
}

// RegisterEvent registers one subscription per pattern.
func (c *Client) RegisterEvent(patterns []string, cb Callback) {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d == nil {
		// Not yet connected: queue via a lazy subscribe on next
		// Running transition isn't needed because RegisterEvent is
		// documented to be called before connect(); build the
		// dispatcher eagerly so patterns registered pre-connect are
		// honored once Running starts.
		c.mu.Lock()
		if c.dispatcher == nil {
			c.dispatcher = &Dispatcher{}
		}
		d = c.dispatcher
		c.mu.Unlock()
	}
	for _, p := range patterns {
		d.Subscribe(p, cb)
	}
}

// CreateAction enqueues an action to be sent immediately if already
// running, or after the next successful login otherwise. A periodic
// action created while running is first sent on its first tick.
func (c *Client) CreateAction(pkt *Packet, cb Callback, repeat RepeatPolicy) {
	a := &Action{Packet: pkt, Callback: cb, Repeat: repeat}

	c.mu.Lock()
	running := c.state == StateRunning && c.registry != nil
	reg, sched := c.registry, c.scheduler
	c.mu.Unlock()

	if repeat.Periodic {
		if running && sched != nil {
			if err := sched.Register(a); err != nil {
				log.Warn().Err(err).Msg("register periodic action")
			}
			return
		}
		c.mu.Lock()
		c.pendingOneShot = append(c.pendingOneShot, a)
		c.mu.Unlock()
		return
	}

	if running {
		if _, err := reg.Submit(a); err != nil {
			log.Warn().Err(err).Msg("submit action")
		}
		return
	}

	c.mu.Lock()
	c.pendingOneShot = append(c.pendingOneShot, a)
	c.mu.Unlock()
}

// CreateAsyncioTask registers a background task the Client launches
// (with a context cancelled on shutdown) once Running is reached.
func (c *Client) CreateAsyncioTask(tasks ...func(ctx context.Context)) {
	c.mu.Lock()
	c.tasks = append(c.tasks, tasks...)
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionState returns a snapshot of {connected, authenticated, banner}.
func (c *Client) ConnectionState() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// PendingActionCount reports the number of actions awaiting a terminal
// response, 0 if not currently connected. Used by the status API to
// surface in-flight work alongside ConnectionState.
func (c *Client) PendingActionCount() int {
	c.mu.Lock()
	r := c.registry
	c.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.Len()
}

// PeriodicActionCount reports the number of periodic actions registered
// with the current (or most recent) session's Scheduler, 0 before the
// first connection. The built-in ping keepalive is not counted.
func (c *Client) PeriodicActionCount() int {
	c.mu.Lock()
	s := c.scheduler
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.Len()
}

// Connect blocks until the client reaches a terminal Disconnected
// state from which it will not auto-reconnect: a refused connection
// with reconnect disabled, a rejected login, an explicit Close, or an
// idle auto-close.
func (c *Client) Connect() error {
	atomic.StoreInt32(&c.closing, 0)
	retryDelay := c.cfg.ReconnectTimeout

	for {
		c.setState(StateConnecting)
		addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
		transport, err := Connect(addr, c.cfg.ConnectTimeout)
		if err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("ami connect failed")
			if c.cfg.ReconnectTimeout <= 0 {
				c.setState(StateDisconnected)
				return err
			}
			time.Sleep(retryDelay)
			retryDelay += c.cfg.ReconnectTimeoutIncrease
			continue
		}

		c.setState(StateAuthenticating)
		c.transport = transport
		c.session = NewSession(transport, c.ids)

		if err := c.session.Login(c.cfg.Username, c.cfg.Secret); err != nil {
			_ = transport.Close()
			c.setState(StateDisconnected)
			return err
		}

		c.mu.Lock()
		c.connState = ConnectionState{Connected: true, Authenticated: true, Banner: c.session.Banner}
		c.mu.Unlock()
		if c.cfg.AMIVersion != nil {
			c.cfg.AMIVersion(c.session.Banner)
		}

		lost := c.runSession(transport)
		if !lost {
			// Clean idle close: do not reconnect.
			c.setState(StateDisconnected)
			return nil
		}
		if atomic.LoadInt32(&c.closing) == 1 {
			c.setState(StateDisconnected)
			return nil
		}
		if c.cfg.ReconnectTimeout <= 0 {
			c.setState(StateDisconnected)
			return newErr(KindConnectionLost, "connection lost, reconnect disabled", nil)
		}
		retryDelay = c.cfg.ReconnectTimeout
		time.Sleep(retryDelay)
	}
}

// runSession drives one Authenticating->Running->(Connecting|Closing)
// cycle. Returns true if the session ended due to connection loss
// (caller should attempt reconnect), false if it ended via clean idle
// auto-close.
func (c *Client) runSession(transport *Transport) bool {
	c.mu.Lock()
	if c.dispatcher == nil {
		c.dispatcher = &Dispatcher{}
	}
	c.mu.Unlock()

	lossCh := make(chan struct{})
	idleCh := make(chan struct{})
	var lossOnce, idleOnce sync.Once
	signalLoss := func() { lossOnce.Do(func() { close(lossCh) }) }
	signalIdle := func() { idleOnce.Do(func() { close(idleCh) }) }

	registry := NewActionRegistry(transport, c.ids)
	c.mu.Lock()
	c.registry = registry
	dispatcher := NewDispatcher(registry, signalLoss)
	dispatcher.subs = c.dispatcher.subs // carry over pre-connect subscriptions
	c.dispatcher = dispatcher
	scheduler := NewScheduler(registry, c.cfg.PingDelay, signalLoss)
	c.scheduler = scheduler
	pending := c.pendingOneShot
	c.pendingOneShot = nil
	tasks := c.tasks
	c.mu.Unlock()

	scheduler.setConnected(true)
	if err := scheduler.StartPing(); err != nil {
		log.Warn().Err(err).Msg("start ping")
	}

	for _, a := range pending {
		if a.Repeat.Periodic {
			_ = scheduler.Register(a)
			continue
		}
		if _, err := registry.Submit(a); err != nil {
			log.Warn().Err(err).Msg("flush pending action")
		}
	}
	// Periodic actions carried over from a prior session (including one
	// surviving a reconnect) get one immediate submission here rather
	// than waiting out their first cron tick.
	scheduler.ReplayAfterReconnect()

	taskCtx, cancelTasks := context.WithCancel(context.Background())
	for _, t := range tasks {
		go t(taskCtx)
	}

	c.setState(StateRunning)
	log.Info().Str("banner", c.session.Banner).Msg("ami client running")

	// Checked once immediately in case the caller reached Running with
	// no subscriptions and no actions at all registered before connect.
	if c.isIdle(registry, dispatcher, scheduler) {
		signalIdle()
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			raw, err := transport.ReadPacket()
			if err != nil {
				signalLoss()
				return
			}
			pkt := Decode(raw, false)
			dispatcher.Dispatch(pkt)

			// Re-checked after every packet so the Running->Closing
			// transition happens within one dispatcher iteration of
			// the registry/subscriptions going empty, not on a
			// polling delay.
			if c.isIdle(registry, dispatcher, scheduler) {
				signalIdle()
			}
		}
	}()

	idleClose := false
	select {
	case <-lossCh:
	case <-idleCh:
		idleClose = true
	}

	cancelTasks()
	// Shutdown stops the cron engine and blocks until any tick already
	// in flight finishes, so no more Submit calls can arrive from the
	// scheduler once it returns. Closing transport and waiting for the
	// read loop to exit similarly guarantees no more Dispatch/Resolve
	// calls are in flight before the worker channels below are closed —
	// closing a channel a producer still writes to panics.
	scheduler.Shutdown() // a fresh Scheduler (and cron engine) is built on the next connect cycle
	_ = transport.Close()
	<-readDone

	dispatcher.Close()
	purged := registry.Purge() // surviving periodic actions, replayed once the next session is running
	registry.Close()

	c.mu.Lock()
	c.connState = ConnectionState{}
	c.pendingOneShot = append(c.pendingOneShot, purged...)
	c.mu.Unlock()

	if idleClose {
		c.setState(StateClosing)
		return false
	}
	return true
}

// isIdle implements the auto-close rule: no event subscriptions remain
// AND no in-flight or periodic actions remain.
func (c *Client) isIdle(r *ActionRegistry, d *Dispatcher, s *Scheduler) bool {
	return d.SubscriptionCount() == 0 && r.Len() == 0 && s.Len() == 0
}

// Close requests an explicit shutdown: the transport is torn down,
// which unblocks the read loop inside the in-flight Connect() call,
// and reconnect is suppressed regardless of ReconnectTimeout so
// Connect() returns rather than dialing again.
func (c *Client) Close() error {
	atomic.StoreInt32(&c.closing, 1)
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport != nil {
		return transport.Close()
	}
	return nil
}
