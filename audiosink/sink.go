// Package audiosink implements the append-only audio byte store shared by
// the synthesis and stream packaging stages. A sink has a single writer and
// a single tail-reader; the reader must never read past the committed-length
// watermark, which only advances after the bytes behind it are flushed to
// disk.
package audiosink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/catsite05/novelvoice/domain"
)

type Sink struct {
	path string

	mu        sync.Mutex
	file      *os.File
	pending   int64
	finalized atomic.Bool
	watermark atomic.Int64

	// committed is signalled (non-blocking) on every watermark advance and
	// on finalization, so the packaging stage reacts without waiting for its
	// poll tick.
	committed chan struct{}
}

// Open creates or truncates the sink file at path. Resume reopens an
// existing sink instead.
func Open(path string) (*Sink, error) {
	return open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0)
}

// Resume reopens an existing sink for appending, trusting committed bytes up
// to the given watermark. Bytes past the watermark were never committed and
// are truncated away.
func Resume(path string, watermark int64) (*Sink, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat sink: %w", err)
	}
	if watermark > info.Size() {
		return nil, fmt.Errorf("resume watermark %d beyond sink size %d", watermark, info.Size())
	}
	if err := os.Truncate(path, watermark); err != nil {
		return nil, fmt.Errorf("truncate sink to watermark: %w", err)
	}
	return open(path, os.O_WRONLY|os.O_APPEND, watermark)
}

func open(path string, flag int, watermark int64) (*Sink, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	s := &Sink{
		path:      path,
		file:      f,
		committed: make(chan struct{}, 1),
	}
	s.watermark.Store(watermark)
	return s, nil
}

// Path returns the sink file location.
func (s *Sink) Path() string {
	return s.path
}

// Append writes p to the sink file. The bytes are not readable by the tail
// reader until Commit advances the watermark.
func (s *Sink) Append(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized.Load() {
		return 0, domain.ErrSinkFinalized
	}
	n, err := s.file.Write(p)
	s.pending += int64(n)
	if err != nil {
		return n, fmt.Errorf("append to sink: %w", err)
	}
	return n, nil
}

// Commit flushes appended bytes to disk and advances the watermark over
// them. Returns the new watermark.
func (s *Sink) Commit() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized.Load() {
		return s.watermark.Load(), domain.ErrSinkFinalized
	}
	if s.pending == 0 {
		return s.watermark.Load(), nil
	}
	if err := s.file.Sync(); err != nil {
		return s.watermark.Load(), fmt.Errorf("sync sink: %w", err)
	}
	w := s.watermark.Add(s.pending)
	s.pending = 0
	s.notify()
	return w, nil
}

// Watermark returns the committed length: the highest offset safe to read.
func (s *Sink) Watermark() int64 {
	return s.watermark.Load()
}

// Committed is signalled whenever the watermark advances or the sink is
// finalized. The packaging stage also polls, so missed signals are harmless.
func (s *Sink) Committed() <-chan struct{} {
	return s.committed
}

// Finalize marks the sink complete: no further appends are accepted and the
// packaging stage may convert the remaining tail and close the playlist.
// Uncommitted appends are discarded. Idempotent.
func (s *Sink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized.Swap(true) {
		return nil
	}
	err := s.file.Close()
	s.notify()
	if err != nil {
		return fmt.Errorf("close sink: %w", err)
	}
	return nil
}

// Finalized reports whether the sink was finalized.
func (s *Sink) Finalized() bool {
	return s.finalized.Load()
}

func (s *Sink) notify() {
	select {
	case s.committed <- struct{}{}:
	default:
	}
}

// ReadRange reads exactly length bytes starting at off through an
// independent read handle. Callers must stay below the watermark they last
// observed.
func (s *Sink) ReadRange(off, length int64) ([]byte, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open sink for read: %w", err)
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek sink: %w", err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read sink range [%d,%d): %w", off, off+length, err)
	}
	return buf, nil
}
