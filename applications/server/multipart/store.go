package multipart

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// file IO buffer size for the spill file
const fileBufferSize = 1 << 16 // 64k

var errSealed = errors.New("multipart: write to sealed store")

type medium int

const (
	inMemory medium = iota
	spilled
)

// store is the arena holding the bodies of every part of one message.
// Parts refer to it by byte range only. It is written once by the decoder,
// sealed, and then read by any number of parts until it is closed.
type store struct {
	mu sync.RWMutex

	medium    medium
	threshold int64
	dir       string
	pattern   string
	logger    log.Logger

	mem  []byte
	file *os.File
	fw   *bufio.Writer

	size   int64
	sealed bool
	closed bool
}

func newStore(cfg *Config) *store {
	return &store{
		medium:    inMemory,
		threshold: cfg.SpillThreshold,
		dir:       cfg.TempDir,
		pattern:   cfg.TempPattern,
		logger:    cfg.Logger,
	}
}

// Size returns the number of bytes appended so far.
func (s *store) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Spilled reports whether the store has moved to a temp file.
func (s *store) Spilled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.medium == spilled
}

// Write appends p. The first append that would take the store past its
// threshold moves everything buffered so far into a temp file; offsets handed
// out before that stay valid.
func (s *store) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	if s.sealed {
		return 0, errSealed
	}
	if s.medium == inMemory && s.size+int64(len(p)) > s.threshold {
		if err := s.spill(); err != nil {
			return 0, err
		}
	}

	switch s.medium {
	case inMemory:
		s.mem = append(s.mem, p...)
		s.size += int64(len(p))
		return len(p), nil
	case spilled:
		n, err := s.fw.Write(p)
		s.size += int64(n)
		if err != nil {
			return n, fmt.Errorf("can't write spill file: %w", err)
		}
		return n, nil
	}
	panic("multipart: unknown store medium")
}

func (s *store) spill() error {
	file, err := os.CreateTemp(s.dir, s.pattern)
	if err != nil {
		return fmt.Errorf("can't create spill file: %w", err)
	}
	s.file = file
	s.fw = bufio.NewWriterSize(file, fileBufferSize)
	if _, err = s.fw.Write(s.mem); err != nil {
		return fmt.Errorf("can't move buffered bytes to spill file: %w", err)
	}

	level.Debug(s.logger).Log("msg", "multipart store spilled to disk",
		"file", file.Name(),
		"buffered", humanize.IBytes(uint64(len(s.mem))),
		"threshold", humanize.IBytes(uint64(s.threshold)),
	)

	s.mem = nil
	s.medium = spilled
	return nil
}

// seal flushes pending writes and makes the store read-only.
func (s *store) seal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.sealed = true
	if s.fw == nil {
		return nil
	}
	if err := s.fw.Flush(); err != nil {
		return fmt.Errorf("can't flush spill file: %w", err)
	}
	s.fw = nil
	return nil
}

// ReadAt implements io.ReaderAt over the bytes appended so far. A spilled
// store can only be read once it is sealed.
func (s *store) ReadAt(p []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("multipart: negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	switch s.medium {
	case inMemory:
		n := copy(p, s.mem[off:])
		if n < len(p) {
			return n, io.EOF
		}
		return n, nil
	case spilled:
		if !s.sealed {
			return 0, errors.New("multipart: read from unsealed spilled store")
		}
		return s.file.ReadAt(p, off)
	}
	panic("multipart: unknown store medium")
}

// Close releases the store and removes the spill file, if any.
// Closing an already closed store does nothing.
func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mem = nil
	s.fw = nil
	if s.file == nil {
		return nil
	}

	name := s.file.Name()
	err := s.file.Close()
	if rerr := os.Remove(name); err == nil {
		err = rerr
	}
	s.file = nil
	if err != nil {
		return fmt.Errorf("can't release spill file: %w", err)
	}
	level.Debug(s.logger).Log("msg", "multipart spill file removed", "file", name)
	return nil
}
