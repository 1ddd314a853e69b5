package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// errQuit is returned by ask when the user types a quit word.
var errQuit = errors.New("quit requested")

// lineReader reads input lines on its own goroutine so a prompt can be
// abandoned when the context is cancelled.
type lineReader struct {
	lines chan string
	stop  chan struct{}
	err   error // set before lines is closed
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string), stop: make(chan struct{})}
	go lr.run(r)
	return lr
}

func (lr *lineReader) run(r io.Reader) {
	defer close(lr.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		select {
		case lr.lines <- sc.Text():
		case <-lr.stop:
			return
		}
	}
	lr.err = sc.Err()
}

// read returns the next line, io.EOF at end of input, or the context error.
func (lr *lineReader) read(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			if lr.err != nil {
				return "", lr.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// close releases the reader goroutine once it is no longer blocked in Read.
func (lr *lineReader) close() {
	close(lr.stop)
}

func isQuit(s string) bool {
	return strings.EqualFold(s, "quit") || strings.EqualFold(s, "exit")
}

// looksLikeAddress reports whether the recipient input should be used as an
// address directly instead of being looked up.
func looksLikeAddress(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

func isYes(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "y")
}
