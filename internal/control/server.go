package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Handler answers one command. It is called from the connection's goroutine.
type Handler func(Command) Response

// Server accepts control connections on a Unix socket.
type Server struct {
	path    string
	handler Handler
	log     *log.Logger
	ln      net.Listener

	mu    sync.Mutex
	peers map[*peer]struct{}
	subs  map[*peer]struct{}
}

type peer struct {
	conn net.Conn
	mu   sync.Mutex
}

func (p *peer) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = p.conn.Write(append(data, '\n'))
	return err
}

// Listen binds the socket at path. A stale socket left by a dead process is
// replaced; a live one is an error.
func Listen(path string, handler Handler, logger *log.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.DialTimeout("unix", path, 500*time.Millisecond); err == nil {
			conn.Close()
			return nil, fmt.Errorf("recorder already listening on %s", path)
		}
		os.Remove(path)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	return &Server{
		path:    path,
		handler: handler,
		log:     logger,
		ln:      ln,
		peers:   make(map[*peer]struct{}),
		subs:    make(map[*peer]struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Serve accepts connections until ctx is done or the server is closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		p := &peer{conn: conn}
		s.mu.Lock()
		s.peers[p] = struct{}{}
		s.mu.Unlock()
		go s.serveConn(p)
	}
}

func (s *Server) serveConn(p *peer) {
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		delete(s.subs, p)
		s.mu.Unlock()
		p.conn.Close()
	}()

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			p.send(Fail(fmt.Errorf("bad command: %w", err)))
			continue
		}
		s.log.Debug("control: command", "cmd", cmd.Cmd)

		var resp Response
		if cmd.Cmd == CmdSubscribe {
			s.mu.Lock()
			s.subs[p] = struct{}{}
			s.mu.Unlock()
			resp = Response{OK: true}
		} else {
			resp = s.handler(cmd)
		}
		if err := p.send(resp); err != nil {
			s.log.Debug("control: write failed", "error", err)
			return
		}
	}
}

// Broadcast sends ev to every subscribed connection. Slow or closed
// subscribers are dropped.
func (s *Server) Broadcast(ev Event) {
	s.mu.Lock()
	subs := make([]*peer, 0, len(s.subs))
	for p := range s.subs {
		subs = append(subs, p)
	}
	s.mu.Unlock()

	for _, p := range subs {
		if err := p.send(ev); err != nil {
			s.log.Debug("control: dropping subscriber", "error", err)
			s.mu.Lock()
			delete(s.subs, p)
			s.mu.Unlock()
			p.conn.Close()
		}
	}
}

// Close stops accepting, disconnects clients and removes the socket.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for p := range s.peers {
		p.conn.Close()
	}
	s.mu.Unlock()
	os.Remove(s.path)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
