// Package playlist maintains the streaming state of one generation task: the
// ordered, append-only list of packaged media segments and the HLS playlist
// rendered from it.
package playlist

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/catsite05/novelvoice/domain"
)

// SegmentDescriptor describes one packaged media segment. Immutable once
// recorded.
type SegmentDescriptor struct {
	Index    int     `json:"index"`
	Duration float64 `json:"duration"`
	ByteSize int64   `json:"byte_size"`
	URI      string  `json:"uri"`
}

// State is the streaming state for one task: last-converted sink offset,
// segment descriptors in playback order, and the open/closed flag. Closing
// is one-way and happens only after the sink is finalized and its tail
// converted.
type State struct {
	dir            string
	targetDuration float64

	mu            sync.Mutex
	lastConverted int64
	segments      []SegmentDescriptor
	closed        bool
}

// NewState creates the streaming state rooted at the task's artifact
// directory. targetDuration is the playlist's target-duration hint in
// seconds.
func NewState(dir string, targetDuration float64) *State {
	return &State{dir: dir, targetDuration: targetDuration}
}

// Dir returns the artifact directory the playlist and segments live in.
func (s *State) Dir() string {
	return s.dir
}

// LastConverted returns the highest sink offset already covered by packaged
// segments.
func (s *State) LastConverted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConverted
}

// NextMediaSequence returns the index the next packaged segment must carry.
func (s *State) NextMediaSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

// Append records newly packaged segments covering consumed sink bytes and
// advances the conversion offset. Descriptors out of sequence are rejected:
// a range already covered by lastConverted must never produce new segments.
func (s *State) Append(descriptors []SegmentDescriptor, consumed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrPlaylistClosed
	}
	for _, d := range descriptors {
		if d.Index != len(s.segments) {
			return fmt.Errorf("segment index %d out of sequence, want %d", d.Index, len(s.segments))
		}
		s.segments = append(s.segments, d)
	}
	s.lastConverted += consumed
	return nil
}

// Close flips the playlist to closed. One-way; idempotent.
func (s *State) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether the playlist accepts further segments.
func (s *State) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Segments returns a copy of the recorded descriptors in playback order.
func (s *State) Segments() []SegmentDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SegmentDescriptor(nil), s.segments...)
}

// TotalDuration sums the recorded segment durations in seconds.
func (s *State) TotalDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, d := range s.segments {
		total += d.Duration
	}
	return total
}

// Render produces the m3u8 playlist document. While open it carries no
// end marker so players keep polling for appended segments.
func (s *State) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.targetDuration
	for _, d := range s.segments {
		if d.Duration > target {
			target = d.Duration
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(math.Ceil(target)))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")
	for _, d := range s.segments {
		fmt.Fprintf(&b, "#EXTINF:%.6f,\n", d.Duration)
		b.WriteString(d.URI + "\n")
	}
	if s.closed {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

// Write persists the rendered playlist into the artifact directory.
func (s *State) Write() error {
	path := filepath.Join(s.dir, "playlist.m3u8")
	if err := os.WriteFile(path, []byte(s.Render()), 0o644); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}
