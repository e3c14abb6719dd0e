// Package client is the terminal side of a snake session: it sends the setup
// line and keystroke commands, and renders the frames the server sends back.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/vovakirdan/netsnake/internal/protocol"
)

// Conn is a client connection to a snake server.
type Conn struct {
	rwc     io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex
}

// Dial connects to a server over TCP.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return NewConn(c), nil
}

// NewConn wraps an established byte stream.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{rwc: rwc, reader: bufio.NewReader(rwc)}
}

// SendSetup sends the one-time setup line.
func (c *Conn) SendSetup(s protocol.Setup) error {
	return c.writeLine(s.String())
}

// Send sends one command line.
func (c *Conn) Send(cmd protocol.Command) error {
	return c.writeLine(cmd.String())
}

func (c *Conn) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := io.WriteString(c.rwc, line+"\n"); err != nil {
		return fmt.Errorf("client: send %q: %w", line, err)
	}
	return nil
}

// ReadFrame blocks until the next server frame arrives.
func (c *Conn) ReadFrame() (protocol.Frame, error) {
	return protocol.ReadFrame(c.reader)
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.rwc.Close()
}
