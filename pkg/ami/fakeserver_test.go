package ami_test

import (
	"bufio"
	"net"
	"testing"
	"time"
)

// Shared polling bounds for require.Eventually/assert.Eventually across
// the package's tests, which wait on goroutine-delivered callbacks.
const (
	assertEventuallyWait = 2 * time.Second
	assertEventuallyTick = 5 * time.Millisecond
)

// fakeAMIServer is a minimal in-process stand-in for an Asterisk
// Manager Interface endpoint: it sends a banner, then hands the
// accepted connection's reader/writer to a handler function so each
// test can script its own reply sequence.
type fakeAMIServer struct {
	ln net.Listener
}

func newFakeAMIServer(t *testing.T, banner string, handle func(conn net.Conn, r *bufio.Reader)) *fakeAMIServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeAMIServer{ln: ln}

	// Accept repeatedly so reconnect-scenario tests have somewhere to
	// land on the second (and later) connect cycle.
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				if banner != "" {
					_, _ = conn.Write([]byte(banner + "\r\n"))
				}
				r := bufio.NewReader(conn)
				if handle != nil {
					handle(conn, r)
				}
			}(conn)
		}
	}()

	return s
}

func (s *fakeAMIServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *fakeAMIServer) Close() {
	_ = s.ln.Close()
}

// readPacketLines reads lines off r until a blank line, returning them
// without the trailing blank line.
func readPacketLines(r *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return lines, err
		}
		trimmed := trimCRLF(line)
		if trimmed == "" {
			return lines, nil
		}
		lines = append(lines, trimmed)
	}
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
