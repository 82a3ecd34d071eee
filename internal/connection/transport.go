package connection

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Transport carries lines. ReadLine is only called from the reader
// goroutine and WriteLine only from the writer goroutine; Close may be
// called from anywhere.
type Transport interface {
	// ReadLine blocks for the next line and strips its terminator.
	ReadLine() (string, error)

	// WriteLine appends CRLF and writes line before deadline.
	WriteLine(line string, deadline time.Time) error

	Close() error
	RemoteAddr() string
}

// DialFunc opens a transport to host:port. The context carries the connect
// timeout.
type DialFunc func(ctx context.Context, host string, port int) (Transport, error)

const lineTerminator = "\r\n"

// DialTCP opens a plain TCP line transport.
func DialTCP(ctx context.Context, host string, port int) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn, r: bufio.NewReader(conn)}, nil
}

type tcpTransport struct {
	conn net.Conn
	r    *bufio.Reader
}

func (t *tcpTransport) ReadLine() (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil {
		// A final unterminated line is still delivered; the error
		// surfaces on the next read.
		if err == io.EOF && line != "" {
			return trimLine(line), nil
		}
		return "", err
	}
	return trimLine(line), nil
}

func (t *tcpTransport) WriteLine(line string, deadline time.Time) error {
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := io.WriteString(t.conn, line+lineTerminator)
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// WebSocketDialer returns a DialFunc for the websocket transport. Each text
// frame carries one or more CRLF-terminated lines.
func WebSocketDialer(path string, handshakeTimeout time.Duration) DialFunc {
	return func(ctx context.Context, host string, port int) (Transport, error) {
		u := url.URL{
			Scheme: "ws",
			Host:   net.JoinHostPort(host, strconv.Itoa(port)),
			Path:   path,
		}

		dialer := websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		}

		conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return &wsTransport{conn: conn}, nil
	}
}

type wsTransport struct {
	conn    *websocket.Conn
	pending []string
}

func (t *wsTransport) ReadLine() (string, error) {
	for len(t.pending) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		t.pending = splitFrame(string(data))
	}

	line := t.pending[0]
	t.pending = t.pending[1:]
	return line, nil
}

func (t *wsTransport) WriteLine(line string, deadline time.Time) error {
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line+lineTerminator))
}

func (t *wsTransport) Close() error {
	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// splitFrame splits a frame payload into lines. A trailing terminator does
// not produce an extra empty line.
func splitFrame(payload string) []string {
	payload = strings.TrimSuffix(payload, "\n")
	if payload == "" {
		return nil
	}
	parts := strings.Split(payload, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
