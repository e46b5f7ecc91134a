package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrClosed is returned when the recorder hangs up.
var ErrClosed = errors.New("connection closed")

// Client talks to a running recorder over its control socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex

	// Timeout bounds each SendCommand round trip. Zero waits forever.
	Timeout time.Duration
}

// Connect dials the control socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to recorder: %w", err)
	}
	return newClient(conn), nil
}

func newClient(conn net.Conn) *Client {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Client{conn: conn, scanner: scanner, Timeout: 15 * time.Second}
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// SendCommand writes cmd and waits for its response line.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	if c.Timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.Timeout))
		defer c.conn.SetDeadline(time.Time{})
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	var resp Response
	if err := c.readLine(&resp, "response"); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Subscribe asks the recorder to stream events on this connection.
// Follow it with ReadEvent in a loop.
func (c *Client) Subscribe() error {
	resp, err := c.SendCommand(Command{Cmd: CmdSubscribe})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("subscribe: %s", resp.Error)
	}
	return nil
}

// ReadEvent blocks until the next event line arrives.
func (c *Client) ReadEvent() (Event, error) {
	var ev Event
	if err := c.readLine(&ev, "event"); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (c *Client) readLine(v any, what string) error {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("read %s: %w", what, err)
		}
		return ErrClosed
	}
	if err := json.Unmarshal(c.scanner.Bytes(), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
