package ami

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultConnectTimeout is the default TCP dial timeout.
const DefaultConnectTimeout = 5 * time.Second

// Transport owns the one TCP socket per session and enforces a
// writes-are-serialized invariant with a write mutex, the way an
// AMI client typically guards its connection against concurrent
// action submissions.
type Transport struct {
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex
}

// Connect opens a TCP connection with the given timeout (default 5s).
// Fails with a *Error{Kind: KindConnectFailed} on timeout or refusal.
func Connect(addr string, timeout time.Duration) (*Transport, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, newErr(KindConnectFailed, "dial "+addr, err)
	}
	return &Transport{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 4096),
	}, nil
}

// ReadBanner reads the single header-less line Asterisk sends
// immediately after accept, e.g. "Asterisk Call Manager/5.0.1".
func (t *Transport) ReadBanner() (string, error) {
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	return string(line), nil
}

// ReadPacket reads until the CRLF-CRLF delimiter and returns the raw
// bytes of the packet body (without the trailing blank line). If a
// line is too long for the internal read buffer, bufio.Reader.ReadLine
// reports it via isPrefix==true instead of erroring; readLine loops to
// stitch the fragments back into one line so oversized event payloads
// (e.g. a verbose Originate variable dump) are never silently
// truncated.
func (t *Transport) ReadPacket() ([]byte, error) {
	var body []byte
	for {
		line, err := t.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			if len(body) == 0 {
				continue // stray blank line before any content
			}
			break
		}
		body = append(body, line...)
		body = append(body, lineSep...)
	}
	return body, nil
}

// readLine reads one CRLF- or LF-terminated line, with bufio's
// buffer-overrun fragments stitched back together.
func (t *Transport) readLine() ([]byte, error) {
	var full []byte
	for {
		frag, isPrefix, err := t.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, newErr(KindConnectionLost, "connection closed", err)
			}
			return nil, newErr(KindConnectionLost, "read line", err)
		}
		full = append(full, frag...)
		if !isPrefix {
			break
		}
	}
	return full, nil
}

// WritePacket writes one encoded packet. Concurrent Submit calls are
// serialized through wmu so writes never interleave on the wire.
func (t *Transport) WritePacket(data []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if t.conn == nil {
		return newErr(KindConnectionLost, "write packet", net.ErrClosed)
	}
	if _, err := t.conn.Write(data); err != nil {
		return newErr(KindConnectionLost, "write packet", err)
	}
	return nil
}

// Close half-closes the writer then tears down the socket. Idempotent:
// a second call observes conn == nil and returns nil.
func (t *Transport) Close() error {
	t.wmu.Lock()
	conn := t.conn
	t.conn = nil
	t.wmu.Unlock()
	if conn == nil {
		return nil
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Msg("transport close")
		return err
	}
	return nil
}
