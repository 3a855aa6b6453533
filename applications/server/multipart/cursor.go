package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const maxConsecutiveEmptyReads = 100

var crlf = []byte("\r\n")

// cursor is a forward-only window over the source of one message.
// Unread bytes live in buf[r:w]. A source error is sticky and only surfaces
// once the window can no longer satisfy a request.
type cursor struct {
	src  io.Reader
	buf  []byte
	r, w int
	err  error
	read int64 // bytes taken from src
}

func newCursor(src io.Reader, size int) *cursor {
	c := &cursor{src: src, buf: make([]byte, size)}
	// The opening delimiter usually starts the body with no line break before it.
	c.w = copy(c.buf, crlf)
	return c
}

// fill slides unread bytes to the front of buf and reads more from the source.
// It reports whether the window grew.
func (c *cursor) fill() bool {
	if c.err != nil {
		return false
	}
	if c.r > 0 {
		copy(c.buf, c.buf[c.r:c.w])
		c.w -= c.r
		c.r = 0
	}
	if c.w == len(c.buf) {
		return false
	}
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := c.src.Read(c.buf[c.w:])
		if n < 0 {
			panic("multipart: source returned negative count from Read")
		}
		c.w += n
		c.read += int64(n)
		if err != nil {
			c.err = err
			return n > 0
		}
		if n > 0 {
			return true
		}
	}
	c.err = io.ErrNoProgress
	return false
}

// failure converts the sticky source error into the error reported to callers.
func (c *cursor) failure() error {
	if c.err == nil || errors.Is(c.err, io.EOF) || errors.Is(c.err, io.ErrUnexpectedEOF) {
		return ErrUnterminatedPart
	}
	return fmt.Errorf("can't read multipart source: %w", c.err)
}

// need makes at least n unread bytes available.
func (c *cursor) need(n int) error {
	for c.w-c.r < n {
		if !c.fill() {
			return c.failure()
		}
	}
	return nil
}

// copyUntil copies bytes to dst up to the next occurrence of m's delimiter,
// then consumes the delimiter. It returns the number of bytes written to dst.
//
// A window tail that is a proper prefix of the delimiter is held back until
// the next fill decides it: either the delimiter completes, or the held bytes
// are flushed in order ahead of the new data.
func (c *cursor) copyUntil(dst io.Writer, m *matcher) (int64, error) {
	var written int64
	for {
		window := c.buf[c.r:c.w]
		if i := bytes.Index(window, m.delim); i >= 0 {
			if err := writeAll(dst, window[:i]); err != nil {
				return written, err
			}
			written += int64(i)
			c.r += i + len(m.delim)
			return written, nil
		}

		safe := len(window) - m.heldSuffix(window)
		if safe > 0 {
			if err := writeAll(dst, window[:safe]); err != nil {
				return written, err
			}
			written += int64(safe)
			c.r += safe
		}

		if !c.fill() {
			return written, c.failure()
		}
	}
}

// readLine returns the next CRLF terminated line without the line break.
// The returned slice is only valid until the next cursor call.
func (c *cursor) readLine() ([]byte, error) {
	for {
		window := c.buf[c.r:c.w]
		if i := bytes.Index(window, crlf); i >= 0 {
			c.r += i + len(crlf)
			return window[:i], nil
		}
		if c.r == 0 && c.w == len(c.buf) {
			return nil, fmt.Errorf("%w: line exceeds %d bytes", ErrHeaderTooLarge, len(c.buf))
		}
		if !c.fill() {
			return nil, c.failure()
		}
	}
}

// delimiterTail consumes the bytes following a delimiter and reports whether
// it was the closing delimiter. Anything after the closing delimiter is
// epilogue and is never read.
func (c *cursor) delimiterTail() (bool, error) {
	if err := c.need(2); err != nil {
		return false, err
	}
	if c.buf[c.r] == '-' && c.buf[c.r+1] == '-' {
		c.r += 2
		return true, nil
	}

	// Transport padding.
	for {
		if err := c.need(1); err != nil {
			return false, err
		}
		if b := c.buf[c.r]; b != ' ' && b != '\t' {
			break
		}
		c.r++
	}

	if err := c.need(2); err != nil {
		return false, err
	}
	if c.buf[c.r] != '\r' || c.buf[c.r+1] != '\n' {
		return false, fmt.Errorf("%w: unexpected %q after boundary", ErrMalformedDelimiter, c.buf[c.r:c.r+2])
	}
	c.r += 2
	return false, nil
}

func writeAll(dst io.Writer, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := dst.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}
