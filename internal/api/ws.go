package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

// eventFrame is the JSON envelope sent over /ws/events for every AMI
// event: one envelope type, fanned out to every connected client.
type eventFrame struct {
	Event     string            `json:"event"`
	Headers   map[string]string `json:"headers"`
	Timestamp int64             `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The status API is a same-origin operator dashboard by default;
	// cfg.AllowedOrigins already gates normal HTTP requests via CORS,
	// so the websocket upgrade itself doesn't re-check Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventHub fans every broadcast out to all currently connected
// websocket clients, each write serialized through its own mutex so
// one slow client can't corrupt another's frame.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*wsClient]struct{})}
}

func (h *eventHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	// Discard inbound traffic; this is a one-way event feed. The read
	// loop exists only to notice when the client goes away.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *eventHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// broadcast is registered as an ami.Callback via RegisterEvent("*",
// ...) and fans every decoded event out to all connected clients.
func (h *eventHub) broadcast(p *ami.Packet) {
	ev, _ := p.Get("Event")
	frame := eventFrame{Event: ev, Headers: p.ToMap(), Timestamp: time.Now().Unix()}
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Warn().Err(err).Msg("marshal event frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			log.Debug().Err(err).Msg("websocket write failed, dropping client")
			go h.remove(c)
		}
	}
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}
