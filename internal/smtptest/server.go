// Package smtptest provides an in-process SMTP server that records the
// messages submitted to it, for testing SMTP clients.
package smtptest

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
)

// Options configures a Server.
type Options struct {
	// Hostname is used in the greeting and EHLO reply.
	Hostname string

	// Username and Password enable AUTH PLAIN and LOGIN. When both are
	// empty no authentication is required.
	Username string
	Password string

	// TLSConfig enables STARTTLS, or implicit TLS when ImplicitTLS is set.
	TLSConfig   *tls.Config
	ImplicitTLS bool

	// DataReply, when set, replaces the 250 reply to a completed DATA
	// command, e.g. "554 5.7.1 Message rejected". The message is not
	// recorded.
	DataReply string
}

// Message is one accepted submission.
type Message struct {
	// Envelope
	From string
	To   []string

	// User is the authenticated user, if any.
	User string
	// TLS reports whether the transaction ran over TLS.
	TLS bool

	Raw    []byte
	Parsed *email.Email
}

// Server is a recording SMTP server listening on a loopback port.
type Server struct {
	opts     Options
	auth     *authenticator
	listener net.Listener

	mu       sync.Mutex
	messages []Message
	sessions int
	conns    map[net.Conn]struct{}

	wg sync.WaitGroup
}

// Start listens on 127.0.0.1 and serves connections until Close.
func Start(opts Options) (*Server, error) {
	if opts.Hostname == "" {
		opts.Hostname = "localhost"
	}
	if opts.ImplicitTLS && opts.TLSConfig == nil {
		return nil, fmt.Errorf("implicit TLS requires a TLS config")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if opts.ImplicitTLS {
		ln = tls.NewListener(ln, opts.TLSConfig)
	}

	s := &Server{
		opts:     opts,
		auth:     &authenticator{username: opts.Username, password: opts.Password},
		listener: ln,
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.sessions++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			newSession(s, conn).handle()
		}()
	}
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Host returns the listener IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listener port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Messages returns a copy of the accepted messages in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sessions returns the number of connections accepted so far.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Close stops the listener, drops open connections and waits for their
// sessions to end.
func (s *Server) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) record(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	slog.Debug("smtptest accepted message", "from", m.From, "to", m.To)
}
