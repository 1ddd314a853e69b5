package smtptest

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/parser"
)

// Session states.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

// idleTimeout closes sessions whose client stopped talking.
const idleTimeout = 10 * time.Second

// session runs the SMTP state machine for one connection.
type session struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  int

	tlsActive bool
	user      string

	mailFrom string
	rcptTo   []string
}

func newSession(s *Server, conn net.Conn) *session {
	_, isTLS := conn.(*tls.Conn)
	return &session{
		server:    s,
		conn:      conn,
		reader:    bufio.NewReader(conn),
		writer:    bufio.NewWriter(conn),
		state:     stateConnected,
		tlsActive: isTLS,
	}
}

// handle processes commands until the client quits or disconnects.
func (s *session) handle() {
	defer s.conn.Close()

	s.writeLine("220 %s ESMTP smtptest", s.server.opts.Hostname)

	for {
		line, ok := s.readLine()
		if !ok {
			return
		}
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.handleCommand(cmd, arg) {
			return
		}
	}
}

func (s *session) readLine() (string, bool) {
	if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
		return "", false
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// handleCommand processes one command and reports whether the session ends.
func (s *session) handleCommand(cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleEHLO(cmd, arg)
	case "STARTTLS":
		return s.handleSTARTTLS()
	case "AUTH":
		s.handleAUTH(arg)
	case "MAIL":
		s.handleMAIL(arg)
	case "RCPT":
		s.handleRCPT(arg)
	case "DATA":
		return s.handleDATA()
	case "QUIT":
		s.writeLine("221 Bye")
		return true
	default:
		s.writeLine("500 Unrecognized command")
	}
	return false
}

func (s *session) handleEHLO(cmd, arg string) {
	if arg == "" {
		s.writeLine("501 Syntax: %s hostname", cmd)
		return
	}

	s.state = stateGreeted
	s.resetTransaction()
	if cmd == "HELO" {
		s.writeLine("250 %s Hello %s", s.server.opts.Hostname, arg)
		return
	}

	s.writeLine("250-%s Hello %s", s.server.opts.Hostname, arg)
	if s.server.opts.TLSConfig != nil && !s.tlsActive {
		s.writeLine("250-STARTTLS")
	}
	if s.server.auth.enabled() {
		s.writeLine("250-AUTH PLAIN LOGIN")
	}
	s.writeLine("250 8BITMIME")
}

// handleSTARTTLS upgrades the connection. It reports true when the session
// cannot continue.
func (s *session) handleSTARTTLS() bool {
	if s.server.opts.TLSConfig == nil || s.tlsActive {
		s.writeLine("454 TLS not available")
		return false
	}

	s.writeLine("220 Ready to start TLS")

	tlsConn := tls.Server(s.conn, s.server.opts.TLSConfig)
	if err := tlsConn.Handshake(); err != nil {
		slog.Debug("smtptest TLS handshake failed", "error", err)
		return true
	}

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true
	s.state = stateConnected
	s.user = ""
	return false
}

func (s *session) handleAUTH(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if !s.server.auth.enabled() {
		s.writeLine("503 AUTH not available")
		return
	}

	mechanism, initial, _ := strings.Cut(arg, " ")
	switch strings.ToUpper(mechanism) {
	case "PLAIN":
		s.authPlain(initial)
	case "LOGIN":
		s.authLogin(initial)
	default:
		s.writeLine("504 Unrecognized authentication type")
	}
}

func (s *session) authPlain(encoded string) {
	if encoded == "" {
		s.writeLine("334 ")
		line, ok := s.readLine()
		if !ok {
			return
		}
		encoded = line
	}
	if encoded == "*" {
		s.writeLine("501 Authentication cancelled")
		return
	}

	user, err := s.server.auth.verifyPlain(encoded)
	if err != nil {
		s.writeLine("535 Authentication failed")
		return
	}
	s.authenticated(user)
}

// authLogin accepts the username either inline or after a challenge.
func (s *session) authLogin(encodedUser string) {
	if encodedUser == "" {
		s.writeLine("334 VXNlcm5hbWU6")
		line, ok := s.readLine()
		if !ok {
			return
		}
		encodedUser = line
	}
	if encodedUser == "*" {
		s.writeLine("501 Authentication cancelled")
		return
	}

	s.writeLine("334 UGFzc3dvcmQ6")
	encodedPass, ok := s.readLine()
	if !ok {
		return
	}
	if encodedPass == "*" {
		s.writeLine("501 Authentication cancelled")
		return
	}

	user, err := s.server.auth.verifyLogin(encodedUser, encodedPass)
	if err != nil {
		s.writeLine("535 Authentication failed")
		return
	}
	s.authenticated(user)
}

func (s *session) authenticated(user string) {
	s.user = user
	s.state = stateAuthOK
	s.writeLine("235 Authentication successful")
}

func (s *session) handleMAIL(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if s.server.auth.enabled() && s.state < stateAuthOK {
		s.writeLine("530 Authentication required")
		return
	}
	if !strings.HasPrefix(strings.ToUpper(arg), "FROM:") {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	s.mailFrom = extractAddress(arg[5:])
	s.rcptTo = nil
	s.state = stateMailFrom
	s.writeLine("250 OK")
}

func (s *session) handleRCPT(arg string) {
	if s.state < stateMailFrom {
		s.writeLine("503 Send MAIL FROM first")
		return
	}
	if !strings.HasPrefix(strings.ToUpper(arg), "TO:") {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	addr := extractAddress(arg[3:])
	if addr == "" {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.writeLine("250 OK")
}

// handleDATA reads the dot-terminated message and records it. It reports
// true when the connection broke mid-message.
func (s *session) handleDATA() bool {
	if s.state < stateRcptTo {
		s.writeLine("503 Send RCPT TO first")
		return false
	}

	s.writeLine("354 Start mail input; end with <CRLF>.<CRLF>")

	var data strings.Builder
	for {
		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return true
		}
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return true
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		// Dot-stuffing: a leading ".." carries one literal dot.
		if strings.HasPrefix(trimmed, "..") {
			line = line[1:]
		}
		data.WriteString(line)
	}

	if reply := s.server.opts.DataReply; reply != "" {
		s.writeLine("%s", reply)
		s.resetTransaction()
		return false
	}

	raw := []byte(data.String())
	parsed, err := parser.Parse(raw)
	if err != nil {
		s.writeLine("550 Failed to parse message")
		s.resetTransaction()
		return false
	}

	s.server.record(Message{
		From:   s.mailFrom,
		To:     s.rcptTo,
		User:   s.user,
		TLS:    s.tlsActive,
		Raw:    raw,
		Parsed: parsed,
	})
	s.writeLine("250 OK message accepted")
	s.resetTransaction()
	return false
}

// resetTransaction clears the current transaction without touching the
// greeting or authentication state.
func (s *session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil
	if s.state > stateAuthOK {
		s.state = stateAuthOK
		if s.user == "" {
			s.state = stateGreeted
		}
	}
}

// writeLine writes a formatted line followed by CRLF.
func (s *session) writeLine(format string, args ...any) {
	if _, err := fmt.Fprintf(s.writer, format+"\r\n", args...); err != nil {
		return
	}
	s.writer.Flush()
}

// parseCommand splits a command line into the upper-cased verb and its argument.
func parseCommand(line string) (string, string) {
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), arg
}

// extractAddress returns the address inside angle brackets, or the bare
// argument up to the first space.
func extractAddress(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		end := strings.Index(s, ">")
		if end < 0 {
			return ""
		}
		return s[1:end]
	}
	addr, _, _ := strings.Cut(s, " ")
	return addr
}
