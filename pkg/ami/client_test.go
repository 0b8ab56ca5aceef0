package ami_test

import (
	"bufio"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

func clientConfigFor(t *testing.T, addr string) ami.Config {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	var port int
	_, err = fmt.Sscan(portStr, &port)
	require.NoError(t, err)
	return ami.Config{
		Host:           host,
		Port:           port,
		Username:       "valid_username",
		Secret:         "valid_password",
		ConnectTimeout: time.Second,
	}
}

func TestClientLoginOkThenIdleAutoClose(t *testing.T) {
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		_, _ = readPacketLines(r) // Login
		_, _ = conn.Write([]byte("Response: Success\r\nMessage: Authentication accepted\r\n\r\n"))
		// No further traffic: client has nothing registered, should idle-close on its own.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf) // block until the client closes its side
	})
	defer srv.Close()

	cfg := clientConfigFor(t, srv.Addr())
	client := ami.NewClient(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("connect never returned for an idle session")
	}
	assert.Equal(t, ami.StateDisconnected, client.State())
}

func TestClientLoginFailedReturnsError(t *testing.T) {
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		_, _ = readPacketLines(r)
		_, _ = conn.Write([]byte("Response: Error\r\nMessage: Authentication failed\r\n\r\n"))
	})
	defer srv.Close()

	cfg := clientConfigFor(t, srv.Addr())
	cfg.ReconnectTimeout = 0
	client := ami.NewClient(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case err := <-errCh:
		require.Error(t, err)
		var amiErr *ami.Error
		require.ErrorAs(t, err, &amiErr)
		assert.Equal(t, ami.KindAuthFailed, amiErr.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("connect never returned after login rejection")
	}
	assert.Equal(t, ami.StateDisconnected, client.State())
}

func TestClientSimpleActionInvokesCallbackOnce(t *testing.T) {
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		_, _ = readPacketLines(r) // Login
		_, _ = conn.Write([]byte("Response: Success\r\nMessage: Authentication accepted\r\n\r\n"))

		lines, err := readPacketLines(r) // the Ping action
		if err != nil {
			return
		}
		id := headerValue(lines, "ActionID")
		_, _ = conn.Write([]byte("Response: Success\r\nActionID: " + id + "\r\nPing: Pong\r\n\r\n"))

		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	})
	defer srv.Close()

	cfg := clientConfigFor(t, srv.Addr())
	client := ami.NewClient(cfg)

	var calls int
	done := make(chan struct{})
	client.CreateAction(ami.PacketFromMap(map[string]string{"Action": "Ping"}), func(p *ami.Packet) {
		calls++
		close(done)
	}, ami.Once)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("action callback never fired")
	}
	assert.Equal(t, 1, calls)

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("connect never returned after going idle")
	}
}

func TestClientShutdownEventTriggersReconnect(t *testing.T) {
	logins := make(chan int32, 4)
	var generation int32
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		gen := atomic.AddInt32(&generation, 1)
		_, _ = readPacketLines(r)
		_, _ = conn.Write([]byte("Response: Success\r\nMessage: Authentication accepted\r\n\r\n"))
		logins <- gen
		if gen == 1 {
			_, _ = readPacketLines(r) // the pending Ping
			_, _ = conn.Write([]byte("Event: Shutdown\r\n\r\n"))
			return
		}
		// Second login onward: keep the session open and idle so the
		// client's own idle auto-close ends the test cleanly.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	})
	defer srv.Close()

	cfg := clientConfigFor(t, srv.Addr())
	cfg.ReconnectTimeout = 20 * time.Millisecond
	client := ami.NewClient(cfg)
	// A pending one-shot action keeps the first session from idle
	// auto-closing before the Shutdown event arrives; it is dropped on
	// the connection loss, so the second session has nothing left and
	// idle-closes on its own.
	client.CreateAction(ami.PacketFromMap(map[string]string{"Action": "Ping"}), nil, ami.Once)

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case gen := <-logins:
		assert.EqualValues(t, 1, gen)
	case <-time.After(2 * time.Second):
		t.Fatal("first login never observed")
	}

	select {
	case gen := <-logins:
		assert.EqualValues(t, 2, gen)
	case <-time.After(2 * time.Second):
		t.Fatal("client never reconnected after Event: Shutdown")
	}

	select {
	case err := <-errCh:
		require.NoError(t, err) // second session goes idle and closes cleanly
	case <-time.After(3 * time.Second):
		t.Fatal("connect never returned after the reconnected idle session")
	}
}

// headerValue extracts the first "Name: Value" match from a decoded
// line slice, used by handlers that must echo the client's ActionID.
func headerValue(lines []string, name string) string {
	prefix := name + ": "
	for _, l := range lines {
		if len(l) > len(prefix) && l[:len(prefix)] == prefix {
			return l[len(prefix):]
		}
	}
	return ""
}
