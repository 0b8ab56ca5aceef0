package ami_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

func TestSessionLoginAccepted(t *testing.T) {
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		lines, err := readPacketLines(r)
		if err != nil {
			return
		}
		assertContainsLine(t, lines, "Action: Login")
		assertContainsLine(t, lines, "Username: valid_username")
		assertContainsLine(t, lines, "Secret: valid_password")
		_, _ = conn.Write([]byte("Response: Success\r\nMessage: Authentication accepted\r\n\r\n"))
	})
	defer srv.Close()

	tr, err := ami.Connect(srv.Addr(), time.Second)
	require.NoError(t, err)
	defer tr.Close()

	sess := ami.NewSession(tr, ami.NewIdGenerator("ami"))
	err = sess.Login("valid_username", "valid_password")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated)
	assert.Equal(t, "Asterisk Call Manager/5.0.1", sess.Banner)
}

func TestSessionLoginRejected(t *testing.T) {
	srv := newFakeAMIServer(t, "Asterisk Call Manager/5.0.1", func(conn net.Conn, r *bufio.Reader) {
		_, _ = readPacketLines(r)
		_, _ = conn.Write([]byte("Response: Error\r\nMessage: Authentication failed\r\n\r\n"))
	})
	defer srv.Close()

	tr, err := ami.Connect(srv.Addr(), time.Second)
	require.NoError(t, err)
	defer tr.Close()

	sess := ami.NewSession(tr, ami.NewIdGenerator("ami"))
	err = sess.Login("not_valid_username", "not_valid_password")
	require.Error(t, err)
	assert.False(t, sess.Authenticated)

	var amiErr *ami.Error
	require.ErrorAs(t, err, &amiErr)
	assert.Equal(t, ami.KindAuthFailed, amiErr.Kind)
}

func assertContainsLine(t *testing.T, lines []string, want string) {
	t.Helper()
	for _, l := range lines {
		if l == want {
			return
		}
	}
	t.Fatalf("expected line %q in %v", want, lines)
}
