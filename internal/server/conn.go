package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netsnake/internal/protocol"
)

// maxLineLength bounds a client line. Setup and command lines are tiny.
const maxLineLength = 4096

// Conn is one client connection as seen by the session handler. Lines go
// in, frames come out.
type Conn interface {
	// ReadLine returns the next client line without its terminator.
	ReadLine() (string, error)

	// WriteFrame sends one frame to the client. It fails once the write
	// timeout passes without the client reading.
	WriteFrame(f protocol.Frame) error

	// SetReadDeadline bounds the next ReadLine. Zero clears it.
	SetReadDeadline(t time.Time) error

	RemoteAddr() string
	Close() error
}

// streamConn speaks newline-delimited lines and length-prefixed frames over a
// byte stream (TCP, or an in-process pipe for SSH sessions).
type streamConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// NewStreamConn wraps a byte stream connection. A zero writeTimeout lets
// writes block indefinitely.
func NewStreamConn(c net.Conn, writeTimeout time.Duration) Conn {
	scanner := bufio.NewScanner(c)
	scanner.Buffer(make([]byte, 256), maxLineLength)
	return &streamConn{conn: c, scanner: scanner, writeTimeout: writeTimeout}
}

func (c *streamConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

func (c *streamConn) WriteFrame(f protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(writeDeadline(c.writeTimeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(c.conn, f)
}

func (c *streamConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *streamConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

// wsConn carries one line per text message in and one frame per text message out.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex // gorilla allows one concurrent writer
	closed       bool
}

// NewWebSocketConn wraps an upgraded WebSocket connection.
func NewWebSocketConn(ws *websocket.Conn, writeTimeout time.Duration) Conn {
	ws.SetReadLimit(maxLineLength)
	return &wsConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsConn) WriteFrame(f protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if err := c.ws.SetWriteDeadline(writeDeadline(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, f.Encode())
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return errors.Join(ignoreClosed(err), c.ws.Close())
}

// writeDeadline returns the deadline for a write starting now. The zero
// time clears any deadline.
func writeDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
