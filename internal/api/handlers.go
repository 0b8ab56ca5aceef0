package api

import (
	"encoding/json"
	"net/http"
	"time"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// handleHealth reports bare process liveness, independent of whether
// the AMI connection itself is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleStatus reports the Client's current ConnectionState plus a
// count of in-flight work, the way an operator dashboard would poll
// it to render a connection indicator.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cs := s.client.ConnectionState()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":             string(s.client.State()),
		"connected":         cs.Connected,
		"authenticated":     cs.Authenticated,
		"banner":            cs.Banner,
		"pending_actions":   s.client.PendingActionCount(),
		"periodic_actions":  s.client.PeriodicActionCount(),
	})
}

// handleWSEvents upgrades the request to a websocket connection and
// registers it with the hub so every subsequent AMI event is streamed
// to it as a JSON frame.
func (s *Server) handleWSEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.serveWS(w, r)
}
